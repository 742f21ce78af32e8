package migrate

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
)

func TestAutoMigrateSeedsReferenceDataIdempotently(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := AutoMigrate(ctx, conn); err != nil {
			t.Fatalf("auto migrate run %d: %v", i, err)
		}
	}

	var types int64
	if err := conn.Model(&models.MovementType{}).Count(&types).Error; err != nil {
		t.Fatalf("count movement types: %v", err)
	}
	if types != 6 {
		t.Fatalf("expected 6 movement types, got %d", types)
	}

	var methods []models.PaymentMethod
	if err := conn.Order("id").Find(&methods).Error; err != nil {
		t.Fatalf("load payment methods: %v", err)
	}
	if len(methods) != 5 || methods[0].Code != "CASH" || !methods[0].Active {
		t.Fatalf("unexpected payment methods %+v", methods)
	}
}
