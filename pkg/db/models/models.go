package models

// All lists every persisted model in dependency order. AutoMigrate uses it for
// sqlite databases, where the goose SQL (written for postgres) is not applied.
func All() []any {
	return []any{
		&Category{},
		&Product{},
		&MovementType{},
		&StockMovement{},
		&Customer{},
		&PaymentMethod{},
		&Sale{},
		&SaleItem{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
