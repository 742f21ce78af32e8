package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
)

var paymentMethodNames = map[enums.PaymentMethodCode]string{
	enums.PaymentMethodCash:     "Cash",
	enums.PaymentMethodCard:     "Card",
	enums.PaymentMethodTransfer: "Bank transfer",
	enums.PaymentMethodYape:     "Yape",
	enums.PaymentMethodPlin:     "Plin",
}

// AutoMigrate creates the schema from the gorm models and seeds reference data.
func AutoMigrate(ctx context.Context, conn *gorm.DB) error {
	if err := conn.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return SeedReferenceData(ctx, conn)
}

// SeedReferenceData inserts the movement vocabulary and payment methods,
// leaving existing rows untouched.
func SeedReferenceData(ctx context.Context, conn *gorm.DB) error {
	defs := enums.MovementDefinitions()
	types := make([]models.MovementType, 0, len(defs))
	for _, def := range defs {
		types = append(types, models.MovementType{Code: def.Code, Name: def.Name, Sign: def.Sign})
	}
	if err := conn.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&types).Error; err != nil {
		return fmt.Errorf("seed movement types: %w", err)
	}

	codes := enums.PaymentMethodCodes()
	methods := make([]models.PaymentMethod, 0, len(codes))
	for _, code := range codes {
		methods = append(methods, models.PaymentMethod{Code: code, Name: paymentMethodNames[code], Active: true})
	}
	if err := conn.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&methods).Error; err != nil {
		return fmt.Errorf("seed payment methods: %w", err)
	}
	return nil
}
