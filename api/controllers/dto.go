package controllers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
)

type productResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	SKU           *string         `json:"sku,omitempty"`
	Barcode       *string         `json:"barcode,omitempty"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
	MinimumStock  decimal.Decimal `json:"minimum_stock"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Description   *string         `json:"description,omitempty"`
	ImagePath     *string         `json:"image_path,omitempty"`
	Active        bool            `json:"active"`
	LowStock      bool            `json:"low_stock"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func toProductResponse(p *models.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		SKU:           p.SKU,
		Barcode:       p.Barcode,
		CategoryID:    p.CategoryID,
		CurrentStock:  p.CurrentStock,
		MinimumStock:  p.MinimumStock,
		PurchasePrice: p.PurchasePrice,
		SalePrice:     p.SalePrice,
		Description:   p.Description,
		ImagePath:     p.ImagePath,
		Active:        p.Active,
		LowStock:      p.IsLowStock(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toProductList(rows []models.Product) []productResponse {
	out := make([]productResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toProductResponse(&rows[i]))
	}
	return out
}

type movementResponse struct {
	ID            int64              `json:"id"`
	ProductID     int64              `json:"product_id"`
	MovementCode  enums.MovementCode `json:"movement_code"`
	Quantity      decimal.Decimal    `json:"quantity"`
	PreviousStock decimal.Decimal    `json:"previous_stock"`
	NewStock      decimal.Decimal    `json:"new_stock"`
	UnitPrice     *decimal.Decimal   `json:"unit_price,omitempty"`
	Reference     *string            `json:"reference,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	CreatedBy     *string            `json:"created_by,omitempty"`
}

func toMovementResponse(m *models.StockMovement) movementResponse {
	resp := movementResponse{
		ID:            m.ID,
		ProductID:     m.ProductID,
		MovementCode:  m.MovementCode,
		Quantity:      m.Quantity,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		Reference:     m.Reference,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
		CreatedBy:     m.CreatedBy,
	}
	if m.UnitPrice.Valid {
		price := m.UnitPrice.Decimal
		resp.UnitPrice = &price
	}
	return resp
}

type historyResponse struct {
	Movements  []movementResponse `json:"movements"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type saleItemResponse struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type saleResponse struct {
	ID              int64              `json:"id"`
	InvoiceNumber   string             `json:"invoice_number"`
	CustomerID      *int64             `json:"customer_id,omitempty"`
	PaymentMethodID *int64             `json:"payment_method_id,omitempty"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Tax             decimal.Decimal    `json:"tax"`
	Discount        decimal.Decimal    `json:"discount"`
	Total           decimal.Decimal    `json:"total"`
	Status          enums.SaleStatus   `json:"status"`
	Notes           *string            `json:"notes,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	CreatedBy       *string            `json:"created_by,omitempty"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
	CancelledBy     *string            `json:"cancelled_by,omitempty"`
	Items           []saleItemResponse `json:"items,omitempty"`
}

func toSaleResponse(s *models.Sale) saleResponse {
	resp := saleResponse{
		ID:              s.ID,
		InvoiceNumber:   s.InvoiceNumber,
		CustomerID:      s.CustomerID,
		PaymentMethodID: s.PaymentMethodID,
		Subtotal:        s.Subtotal,
		Tax:             s.Tax,
		Discount:        s.Discount,
		Total:           s.Total,
		Status:          s.Status,
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt,
		CreatedBy:       s.CreatedBy,
		CancelledAt:     s.CancelledAt,
		CancelledBy:     s.CancelledBy,
	}
	for _, item := range s.Items {
		resp.Items = append(resp.Items, saleItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}
	return resp
}

type customerResponse struct {
	ID             int64               `json:"id"`
	Name           string              `json:"name"`
	DocumentType   *enums.DocumentType `json:"document_type,omitempty"`
	DocumentNumber *string             `json:"document_number,omitempty"`
	Email          *string             `json:"email,omitempty"`
	Phone          *string             `json:"phone,omitempty"`
	Address        *string             `json:"address,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

func toCustomerResponse(c *models.Customer) customerResponse {
	return customerResponse{
		ID:             c.ID,
		Name:           c.Name,
		DocumentType:   c.DocumentType,
		DocumentNumber: c.DocumentNumber,
		Email:          c.Email,
		Phone:          c.Phone,
		Address:        c.Address,
		CreatedAt:      c.CreatedAt,
	}
}

type movementTypeResponse struct {
	Code enums.MovementCode `json:"code"`
	Name string             `json:"name"`
	Sign int                `json:"sign"`
}

type paymentMethodResponse struct {
	Code   enums.PaymentMethodCode `json:"code"`
	Name   string                  `json:"name"`
	Active bool                    `json:"active"`
}
