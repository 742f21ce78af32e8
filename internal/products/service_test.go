package products

import (
	"context"
	"testing"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
)

func TestCreateProductRecordsInitialStockThroughLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	product, err := env.service.CreateProduct(ctx, CreateProductInput{
		Name:          "  Rice 1kg ",
		SKU:           strPtr("RICE-1"),
		Barcode:       strPtr("7750000000011"),
		MinimumStock:  dec("5"),
		PurchasePrice: dec("3.20"),
		SalePrice:     dec("4.50"),
		InitialStock:  dec("10"),
		CreatedBy:     "admin",
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if product.Name != "Rice 1kg" {
		t.Fatalf("expected trimmed name, got %q", product.Name)
	}
	if !product.CurrentStock.Equal(dec("10")) {
		t.Fatalf("expected stock 10, got %s", product.CurrentStock)
	}

	stored, err := env.service.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if !stored.CurrentStock.Equal(dec("10")) || !stored.Active {
		t.Fatalf("unexpected stored product %+v", stored)
	}

	history, err := env.ledger.History(ctx, product.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one movement, got %d", len(history))
	}
	movement := history[0]
	if movement.MovementCode != enums.MovementPositiveAdjustment {
		t.Fatalf("unexpected movement code %s", movement.MovementCode)
	}
	if !movement.PreviousStock.IsZero() || !movement.NewStock.Equal(dec("10")) {
		t.Fatalf("unexpected movement balances %s -> %s", movement.PreviousStock, movement.NewStock)
	}
	if movement.Notes == nil || *movement.Notes != initialStockNote {
		t.Fatalf("expected initial stock note, got %v", movement.Notes)
	}
	if movement.CreatedBy == nil || *movement.CreatedBy != "admin" {
		t.Fatalf("expected created_by admin, got %v", movement.CreatedBy)
	}

	var events int64
	if err := env.db.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventStockMovementRecorded).Count(&events).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected one stock_movement_recorded event, got %d", events)
	}
}

func TestCreateProductWithoutInitialStockWritesNoMovement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	product, err := env.service.CreateProduct(ctx, CreateProductInput{Name: "Sugar", SalePrice: dec("2")})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	history, err := env.ledger.History(ctx, product.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 || !product.CurrentStock.IsZero() {
		t.Fatalf("expected empty ledger and zero stock, got %d rows stock=%s", len(history), product.CurrentStock)
	}
}

func TestCreateProductValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.service.CreateProduct(ctx, CreateProductInput{Name: "Oil", SKU: strPtr("OIL")}); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	cases := map[string]struct {
		input CreateProductInput
		field string
	}{
		"blank name":        {CreateProductInput{Name: "   "}, "name"},
		"negative price":    {CreateProductInput{Name: "x", SalePrice: dec("-1")}, "sale_price"},
		"negative purchase": {CreateProductInput{Name: "x", PurchasePrice: dec("-0.01")}, "purchase_price"},
		"negative minimum":  {CreateProductInput{Name: "x", MinimumStock: dec("-2")}, "minimum_stock"},
		"negative initial":  {CreateProductInput{Name: "x", InitialStock: dec("-2")}, "initial_stock"},
		"duplicate sku":     {CreateProductInput{Name: "x", SKU: strPtr(" OIL ")}, "sku"},
		"unknown category":  {CreateProductInput{Name: "x", CategoryID: int64Ptr(99)}, "category_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.service.CreateProduct(ctx, tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			details, _ := typed.Details().(map[string]any)
			if details["field"] != tc.field {
				t.Fatalf("expected field %s, got %v", tc.field, details["field"])
			}
		})
	}
}

func TestUpdateProductNeverChangesStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	product, err := env.service.CreateProduct(ctx, CreateProductInput{Name: "Milk", SKU: strPtr("MILK"), SalePrice: dec("3"), InitialStock: dec("8")})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	other, err := env.service.CreateProduct(ctx, CreateProductInput{Name: "Bread", SKU: strPtr("BREAD")})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	newName := "Milk 1L"
	newPrice := dec("3.40")
	updated, err := env.service.UpdateProduct(ctx, product.ID, UpdateProductInput{Name: &newName, SalePrice: &newPrice, SKU: strPtr("MILK")})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if updated.Name != newName || !updated.SalePrice.Equal(newPrice) {
		t.Fatalf("update not applied %+v", updated)
	}

	stored, err := env.service.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if !stored.CurrentStock.Equal(dec("8")) {
		t.Fatalf("stock changed by update: %s", stored.CurrentStock)
	}

	if _, err := env.service.UpdateProduct(ctx, other.ID, UpdateProductInput{SKU: strPtr("MILK")}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected duplicate sku validation, got %v", err)
	}
	if _, err := env.service.UpdateProduct(ctx, 404, UpdateProductInput{Name: &newName}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteProductIsSoft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	product, err := env.service.CreateProduct(ctx, CreateProductInput{Name: "Soap", Barcode: strPtr("123")})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if err := env.service.DeleteProduct(ctx, product.ID); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}

	stored, err := env.service.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct after delete: %v", err)
	}
	if stored.Active {
		t.Fatalf("expected product to be inactive")
	}
	if _, err := env.service.FindByCode(ctx, "123"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("inactive product should not resolve by code, got %v", err)
	}
	if err := env.service.DeleteProduct(ctx, 999); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindByCodeAndSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rice, err := env.service.CreateProduct(ctx, CreateProductInput{Name: "Rice", SKU: strPtr("R-1"), Barcode: strPtr("111"), MinimumStock: dec("5"), InitialStock: dec("3")})
	if err != nil {
		t.Fatalf("create rice: %v", err)
	}
	beans, err := env.service.CreateProduct(ctx, CreateProductInput{Name: "Black beans", SKU: strPtr("B-1"), MinimumStock: dec("1"), InitialStock: dec("20")})
	if err != nil {
		t.Fatalf("create beans: %v", err)
	}

	found, err := env.service.FindByCode(ctx, "111")
	if err != nil || found.ID != rice.ID {
		t.Fatalf("barcode lookup failed: %v %+v", err, found)
	}
	found, err = env.service.FindByCode(ctx, "B-1")
	if err != nil || found.ID != beans.ID {
		t.Fatalf("sku lookup failed: %v %+v", err, found)
	}

	results, err := env.service.SearchProducts(ctx, SearchInput{Query: "BEAN"})
	if err != nil {
		t.Fatalf("SearchProducts: %v", err)
	}
	if len(results) != 1 || results[0].ID != beans.ID {
		t.Fatalf("unexpected search results %+v", results)
	}

	low, err := env.service.SearchProducts(ctx, SearchInput{LowStockOnly: true})
	if err != nil {
		t.Fatalf("SearchProducts low: %v", err)
	}
	if len(low) != 1 || low[0].ID != rice.ID {
		t.Fatalf("unexpected low stock results %+v", low)
	}

	lowList, err := env.service.LowStockProducts(ctx)
	if err != nil {
		t.Fatalf("LowStockProducts: %v", err)
	}
	if len(lowList) != 1 || lowList[0].ID != rice.ID {
		t.Fatalf("unexpected low stock list %+v", lowList)
	}
}

func TestSearchFiltersByCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	drinks := models.Category{Name: "Drinks", Active: true}
	snacks := models.Category{Name: "Snacks", Active: true}
	if err := env.db.DB().Create(&drinks).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	if err := env.db.DB().Create(&snacks).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	cola, err := env.service.CreateProduct(ctx, CreateProductInput{Name: "Cola", CategoryID: &drinks.ID})
	if err != nil {
		t.Fatalf("create cola: %v", err)
	}
	water, err := env.service.CreateProduct(ctx, CreateProductInput{Name: "Water", CategoryID: &drinks.ID})
	if err != nil {
		t.Fatalf("create water: %v", err)
	}
	if _, err := env.service.CreateProduct(ctx, CreateProductInput{Name: "Chips", CategoryID: &snacks.ID}); err != nil {
		t.Fatalf("create chips: %v", err)
	}
	if _, err := env.service.CreateProduct(ctx, CreateProductInput{Name: "Loose item"}); err != nil {
		t.Fatalf("create uncategorized: %v", err)
	}
	if err := env.service.DeleteProduct(ctx, water.ID); err != nil {
		t.Fatalf("delete water: %v", err)
	}

	rows, err := env.service.SearchProducts(ctx, SearchInput{CategoryID: &drinks.ID})
	if err != nil {
		t.Fatalf("SearchProducts: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != cola.ID {
		t.Fatalf("expected only active drinks, got %+v", rows)
	}

	rows, err = env.service.SearchProducts(ctx, SearchInput{Query: "cola", CategoryID: &snacks.ID})
	if err != nil {
		t.Fatalf("SearchProducts: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("filters must combine, got %+v", rows)
	}

	all, err := env.service.SearchProducts(ctx, SearchInput{})
	if err != nil {
		t.Fatalf("SearchProducts: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 active products without a filter, got %d", len(all))
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}
