// Package sales coordinates the units of work that move stock: sales,
// cancellations and manual movements.
package sales

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/internal/invoicing"
	"github.com/angelmondragon/kardex-pos/internal/kardex"
	"github.com/angelmondragon/kardex-pos/internal/products"
	"github.com/angelmondragon/kardex-pos/pkg/db"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/metrics"
	"github.com/angelmondragon/kardex-pos/pkg/outbox"
	"github.com/angelmondragon/kardex-pos/pkg/outbox/payloads"
	"github.com/angelmondragon/kardex-pos/pkg/pagination"
)

const (
	opCreateSale     = "create_sale"
	opCancelSale     = "cancel_sale"
	opRegisterMove   = "register_movement"
	opAdjustStock    = "adjust_stock"
	maxListRangeDays = 366
)

// Service is the sale transaction coordinator.
type Service interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*CreateSaleResult, error)
	CancelSale(ctx context.Context, saleID int64, actor string) error
	RegisterStockMovement(ctx context.Context, input RegisterMovementInput) (*models.StockMovement, error)
	AdjustStock(ctx context.Context, input AdjustStockInput) (*models.StockMovement, error)
	GetStockHistory(ctx context.Context, productID int64) ([]models.StockMovement, error)
	GetStockHistoryPage(ctx context.Context, productID int64, params pagination.Params) (*kardex.HistoryPage, error)
	GetSale(ctx context.Context, saleID int64) (*models.Sale, error)
	GetSaleByInvoice(ctx context.Context, invoice string) (*models.Sale, error)
	ListSales(ctx context.Context, from, to time.Time) ([]models.Sale, error)
	ListTodaySales(ctx context.Context) ([]models.Sale, error)
}

type SaleItemInput struct {
	ProductID int64
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// CreateSaleInput is a proposed sale. Aggregates are recomputed from Items.
type CreateSaleInput struct {
	Items         []SaleItemInput
	CustomerID    *int64
	PaymentMethod *enums.PaymentMethodCode
	Tax           decimal.Decimal
	Discount      decimal.Decimal
	InvoiceNumber string
	Notes         string
	CreatedBy     string
}

type CreateSaleResult struct {
	SaleID        int64
	InvoiceNumber string
	Total         decimal.Decimal
}

type RegisterMovementInput struct {
	ProductID int64
	Code      enums.MovementCode
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal
	Reference string
	Notes     string
	CreatedBy string
}

// AdjustStockInput sets a product's stock to TargetStock through an adjustment movement.
type AdjustStockInput struct {
	ProductID   int64
	TargetStock decimal.Decimal
	Reason      string
	CreatedBy   string
}

type ServiceParams struct {
	DB         *db.Client
	Repository *Repository
	Ledger     kardex.Store
	Gateway    *products.Gateway
	Numberer   invoicing.Numberer
	Outbox     *outbox.Service
	Listener   Listener
	Metrics    *metrics.SalesMetrics
	Logger     *logger.Logger
	Location   *time.Location
	Now        func() time.Time
}

type service struct {
	db       *db.Client
	repo     *Repository
	ledger   kardex.Store
	gateway  *products.Gateway
	numberer invoicing.Numberer
	outbox   *outbox.Service
	listener Listener
	metrics  *metrics.SalesMetrics
	logg     *logger.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("kardex store required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("stock gateway required")
	}
	if params.Numberer == nil {
		return nil, fmt.Errorf("invoice numberer required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	listener := params.Listener
	if listener == nil {
		listener = NopListener{}
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:       params.DB,
		repo:     params.Repository,
		ledger:   params.Ledger,
		gateway:  params.Gateway,
		numberer: params.Numberer,
		outbox:   params.Outbox,
		listener: listener,
		metrics:  params.Metrics,
		logg:     params.Logger,
		loc:      loc,
		now:      now,
	}, nil
}

// committed collects what a unit produced so listeners run only after commit.
type committed struct {
	changes []StockChange
	alerts  []LowStockAlert
}

func (c *committed) record(movement *models.StockMovement, product *models.Product) {
	c.changes = append(c.changes, StockChange{
		ProductID:     movement.ProductID,
		MovementCode:  movement.MovementCode,
		PreviousStock: movement.PreviousStock,
		NewStock:      movement.NewStock,
	})
	if movement.NewStock.LessThanOrEqual(product.MinimumStock) {
		c.alerts = append(c.alerts, LowStockAlert{
			ProductID:    product.ID,
			ProductName:  product.Name,
			CurrentStock: movement.NewStock,
			MinimumStock: product.MinimumStock,
		})
	}
}

func (s *service) CreateSale(ctx context.Context, input CreateSaleInput) (*CreateSaleResult, error) {
	totals, err := ValidateSale(input)
	if err != nil {
		s.metrics.IncRejected(opCreateSale, codeOf(err))
		return nil, err
	}

	start := time.Now()
	createdAt := s.now().UTC()
	actor := kardex.ActorFor(input.CreatedBy)
	var (
		sale  *models.Sale
		moved committed
	)

	err = s.db.Run(ctx, func(u *db.Unit) error {
		tx := u.Tx()
		repo := s.repo.WithTx(tx)

		paymentMethodID, err := s.resolveReferences(ctx, repo, input)
		if err != nil {
			return err
		}

		invoice, err := s.invoiceFor(ctx, u, repo, input.InvoiceNumber, createdAt)
		if err != nil {
			return err
		}

		sale = &models.Sale{
			InvoiceNumber:   invoice,
			CustomerID:      input.CustomerID,
			Subtotal:        totals.Subtotal,
			Tax:             totals.Tax,
			Discount:        totals.Discount,
			Total:           totals.Total,
			PaymentMethodID: paymentMethodID,
			Status:          enums.SaleStatusCompleted,
			Notes:           optional(input.Notes),
			CreatedAt:       createdAt,
			CreatedBy:       optional(input.CreatedBy),
		}

		var movements []*models.StockMovement
		for i, item := range input.Items {
			product, err := s.gateway.Product(ctx, u, item.ProductID)
			if err != nil {
				return annotateItem(err, i, item.ProductID, "")
			}
			if !product.Active {
				return itemError(i, item.ProductID, "product_id", fmt.Sprintf("product %q is inactive", product.Name))
			}
			movement, err := products.ApplyMovement(ctx, u, s.ledger, s.gateway, kardex.AppendInput{
				ProductID: item.ProductID,
				Code:      enums.MovementSale,
				Quantity:  item.Quantity,
				UnitPrice: decimal.NewNullDecimal(item.UnitPrice),
				Reference: invoice,
				CreatedBy: input.CreatedBy,
			})
			if err != nil {
				return annotateItem(err, i, item.ProductID, product.Name)
			}
			movements = append(movements, movement)
			moved.record(movement, product)
			sale.Items = append(sale.Items, models.SaleItem{
				ProductID:   item.ProductID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				Subtotal:    totals.Lines[i],
			})
		}

		if err := repo.Create(ctx, sale); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "invoice number already used").
					WithDetails(map[string]any{"invoice_number": invoice})
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert sale")
		}

		if err := s.outbox.Emit(ctx, tx, saleCompletedEvent(sale, input.PaymentMethod, actor)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit sale_completed")
		}
		return s.emitMovementEvents(ctx, u, movements, moved.alerts, actor)
	})
	s.metrics.ObserveUnitOfWork(opCreateSale, time.Since(start))
	if err != nil {
		s.metrics.IncRejected(opCreateSale, codeOf(err))
		return nil, err
	}

	s.metrics.IncSaleCreated()
	s.metrics.AddMovements(string(enums.MovementSale), len(sale.Items))
	notice := SaleNotice{SaleID: sale.ID, InvoiceNumber: sale.InvoiceNumber, Total: sale.Total}
	s.listener.SaleCompleted(ctx, notice)
	s.notifyStock(ctx, moved)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"sale_id":        sale.ID,
		"invoice_number": sale.InvoiceNumber,
		"total":          sale.Total.String(),
		"items":          len(sale.Items),
	})
	s.logg.Info(logCtx, "sale completed")

	return &CreateSaleResult{SaleID: sale.ID, InvoiceNumber: sale.InvoiceNumber, Total: sale.Total}, nil
}

func (s *service) resolveReferences(ctx context.Context, repo *Repository, input CreateSaleInput) (*int64, error) {
	if input.CustomerID != nil {
		ok, err := repo.CustomerExists(ctx, *input.CustomerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check customer")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("customer %d not found", *input.CustomerID)).
				WithDetails(map[string]any{"customer_id": *input.CustomerID})
		}
	}
	if input.PaymentMethod == nil {
		return nil, nil
	}
	method, err := repo.FindPaymentMethod(ctx, *input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment method")
	}
	if method == nil || !method.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment method %s is not available", *input.PaymentMethod)).
			WithDetails(map[string]any{"field": "payment_method"})
	}
	return &method.ID, nil
}

func (s *service) invoiceFor(ctx context.Context, u *db.Unit, repo *Repository, requested string, at time.Time) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return s.numberer.Next(ctx, u, at)
	}
	exists, err := repo.InvoiceExists(ctx, requested)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check invoice number")
	}
	if exists {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "invoice number already used").
			WithDetails(map[string]any{"invoice_number": requested})
	}
	return requested, nil
}

func (s *service) CancelSale(ctx context.Context, saleID int64, actor string) error {
	start := time.Now()
	cancelledAt := s.now().UTC()
	actorRef := kardex.ActorFor(actor)
	var (
		sale  *models.Sale
		moved committed
	)

	err := s.db.Run(ctx, func(u *db.Unit) error {
		tx := u.Tx()
		repo := s.repo.WithTx(tx)

		var err error
		sale, err = repo.FindByIDForUpdate(ctx, saleID)
		if err != nil {
			if isNotFound(err) {
				return saleNotFound(saleID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sale")
		}
		if err := checkCancellable(sale); err != nil {
			return err
		}

		var movements []*models.StockMovement
		for _, item := range sale.Items {
			product, err := s.gateway.Product(ctx, u, item.ProductID)
			if err != nil {
				return err
			}
			movement, err := products.ApplyMovement(ctx, u, s.ledger, s.gateway, kardex.AppendInput{
				ProductID: item.ProductID,
				Code:      enums.MovementSaleReturn,
				Quantity:  item.Quantity,
				UnitPrice: decimal.NewNullDecimal(item.UnitPrice),
				Reference: sale.InvoiceNumber,
				Notes:     "sale cancelled",
				CreatedBy: actor,
			})
			if err != nil {
				return err
			}
			movements = append(movements, movement)
			moved.changes = append(moved.changes, StockChange{
				ProductID:     product.ID,
				MovementCode:  movement.MovementCode,
				PreviousStock: movement.PreviousStock,
				NewStock:      movement.NewStock,
			})
		}

		rows, err := repo.MarkCancelled(ctx, sale.ID, cancelledAt, optional(actor))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel sale")
		}
		if rows == 0 {
			return alreadyCancelled(sale)
		}
		sale.Status = enums.SaleStatusCancelled
		sale.CancelledAt = &cancelledAt

		if err := s.outbox.Emit(ctx, tx, saleCancelledEvent(sale, actor, actorRef)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit sale_cancelled")
		}
		return s.emitMovementEvents(ctx, u, movements, nil, actorRef)
	})
	s.metrics.ObserveUnitOfWork(opCancelSale, time.Since(start))
	if err != nil {
		s.metrics.IncRejected(opCancelSale, codeOf(err))
		return err
	}

	s.metrics.IncSaleCancelled()
	s.metrics.AddMovements(string(enums.MovementSaleReturn), len(sale.Items))
	s.listener.SaleCancelled(ctx, SaleNotice{SaleID: sale.ID, InvoiceNumber: sale.InvoiceNumber, Total: sale.Total})
	s.notifyStock(ctx, moved)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"sale_id":        sale.ID,
		"invoice_number": sale.InvoiceNumber,
	})
	s.logg.Info(logCtx, "sale cancelled")
	return nil
}

func checkCancellable(sale *models.Sale) error {
	switch sale.Status {
	case enums.SaleStatusCompleted:
		return nil
	case enums.SaleStatusCancelled:
		return alreadyCancelled(sale)
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("sale in status %s cannot be cancelled", sale.Status)).
			WithDetails(map[string]any{"sale_id": sale.ID, "status": string(sale.Status)})
	}
}

func (s *service) RegisterStockMovement(ctx context.Context, input RegisterMovementInput) (*models.StockMovement, error) {
	start := time.Now()
	var (
		movement *models.StockMovement
		moved    committed
	)
	err := s.db.Run(ctx, func(u *db.Unit) error {
		product, err := s.gateway.Product(ctx, u, input.ProductID)
		if err != nil {
			return err
		}
		unitPrice := decimal.NullDecimal{}
		if input.UnitPrice != nil {
			if input.UnitPrice.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative").
					WithDetails(map[string]any{"field": "unit_price"})
			}
			unitPrice = decimal.NewNullDecimal(*input.UnitPrice)
		}
		movement, err = s.recordMovement(ctx, u, product, kardex.AppendInput{
			ProductID: input.ProductID,
			Code:      input.Code,
			Quantity:  input.Quantity,
			UnitPrice: unitPrice,
			Reference: input.Reference,
			Notes:     input.Notes,
			CreatedBy: input.CreatedBy,
		}, &moved)
		return err
	})
	s.metrics.ObserveUnitOfWork(opRegisterMove, time.Since(start))
	if err != nil {
		s.metrics.IncRejected(opRegisterMove, codeOf(err))
		return nil, err
	}
	s.afterMovement(ctx, movement, moved)
	return movement, nil
}

// AdjustStock registers the signed difference to reach TargetStock. A zero
// difference succeeds without writing anything and returns nil.
func (s *service) AdjustStock(ctx context.Context, input AdjustStockInput) (*models.StockMovement, error) {
	if input.TargetStock.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target stock cannot be negative").
			WithDetails(map[string]any{"field": "target_stock"})
	}
	start := time.Now()
	var (
		movement *models.StockMovement
		moved    committed
	)
	err := s.db.Run(ctx, func(u *db.Unit) error {
		product, err := s.gateway.Product(ctx, u, input.ProductID)
		if err != nil {
			return err
		}
		diff := input.TargetStock.Sub(product.CurrentStock)
		if diff.IsZero() {
			return nil
		}
		code := enums.MovementPositiveAdjustment
		if diff.IsNegative() {
			code = enums.MovementNegativeAdjustment
		}
		movement, err = s.recordMovement(ctx, u, product, kardex.AppendInput{
			ProductID: input.ProductID,
			Code:      code,
			Quantity:  diff.Abs(),
			Notes:     input.Reason,
			CreatedBy: input.CreatedBy,
		}, &moved)
		return err
	})
	s.metrics.ObserveUnitOfWork(opAdjustStock, time.Since(start))
	if err != nil {
		s.metrics.IncRejected(opAdjustStock, codeOf(err))
		return nil, err
	}
	if movement == nil {
		return nil, nil
	}
	s.afterMovement(ctx, movement, moved)
	return movement, nil
}

func (s *service) recordMovement(ctx context.Context, u *db.Unit, product *models.Product, input kardex.AppendInput, moved *committed) (*models.StockMovement, error) {
	movement, err := products.ApplyMovement(ctx, u, s.ledger, s.gateway, input)
	if err != nil {
		return nil, err
	}
	moved.record(movement, product)
	actor := kardex.ActorFor(input.CreatedBy)
	if err := s.emitMovementEvents(ctx, u, []*models.StockMovement{movement}, moved.alerts, actor); err != nil {
		return nil, err
	}
	return movement, nil
}

func (s *service) emitMovementEvents(ctx context.Context, u *db.Unit, movements []*models.StockMovement, alerts []LowStockAlert, actor *outbox.ActorRef) error {
	for _, movement := range movements {
		if err := s.outbox.Emit(ctx, u.Tx(), kardex.MovementRecordedEvent(movement, actor)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit stock_movement_recorded")
		}
	}
	for _, alert := range alerts {
		event := kardex.LowStockEvent(alert.ProductID, alert.ProductName, alert.CurrentStock, alert.MinimumStock, actor)
		if err := s.outbox.Emit(ctx, u.Tx(), event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit stock_low")
		}
	}
	return nil
}

func (s *service) afterMovement(ctx context.Context, movement *models.StockMovement, moved committed) {
	s.metrics.AddMovements(string(movement.MovementCode), 1)
	s.notifyStock(ctx, moved)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"product_id":    movement.ProductID,
		"movement_id":   movement.ID,
		"movement_code": movement.MovementCode,
		"new_stock":     movement.NewStock.String(),
	})
	s.logg.Info(logCtx, "stock movement registered")
}

func (s *service) notifyStock(ctx context.Context, moved committed) {
	for _, change := range moved.changes {
		s.listener.StockChanged(ctx, change)
	}
	for _, alert := range moved.alerts {
		s.listener.LowStock(ctx, alert)
	}
}

func (s *service) GetStockHistory(ctx context.Context, productID int64) ([]models.StockMovement, error) {
	return s.ledger.History(ctx, productID)
}

func (s *service) GetStockHistoryPage(ctx context.Context, productID int64, params pagination.Params) (*kardex.HistoryPage, error) {
	return s.ledger.HistoryPage(ctx, productID, params)
}

func (s *service) GetSale(ctx context.Context, saleID int64) (*models.Sale, error) {
	sale, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		if isNotFound(err) {
			return nil, saleNotFound(saleID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sale")
	}
	return sale, nil
}

func (s *service) GetSaleByInvoice(ctx context.Context, invoice string) (*models.Sale, error) {
	invoice = strings.TrimSpace(invoice)
	sale, err := s.repo.FindByInvoice(ctx, invoice)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("invoice %s not found", invoice)).
				WithDetails(map[string]any{"invoice_number": invoice})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sale by invoice")
	}
	return sale, nil
}

func (s *service) ListSales(ctx context.Context, from, to time.Time) ([]models.Sale, error) {
	if !from.Before(to) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to").
			WithDetails(map[string]any{"field": "from"})
	}
	if to.Sub(from) > maxListRangeDays*24*time.Hour {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("range cannot exceed %d days", maxListRangeDays)).
			WithDetails(map[string]any{"field": "to"})
	}
	rows, err := s.repo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sales")
	}
	return rows, nil
}

func (s *service) ListTodaySales(ctx context.Context) ([]models.Sale, error) {
	local := s.now().In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return s.ListSales(ctx, start, start.AddDate(0, 0, 1))
}

func saleCompletedEvent(sale *models.Sale, method *enums.PaymentMethodCode, actor *outbox.ActorRef) outbox.DomainEvent {
	lines := make([]payloads.SaleLine, 0, len(sale.Items))
	for _, item := range sale.Items {
		lines = append(lines, payloads.SaleLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}
	data := payloads.SaleCompletedEvent{
		SaleID:            sale.ID,
		InvoiceNumber:     sale.InvoiceNumber,
		CustomerID:        sale.CustomerID,
		PaymentMethodCode: method,
		Subtotal:          sale.Subtotal,
		Tax:               sale.Tax,
		Discount:          sale.Discount,
		Total:             sale.Total,
		Items:             lines,
		CreatedAt:         sale.CreatedAt,
	}
	if sale.CreatedBy != nil {
		data.CreatedBy = *sale.CreatedBy
	}
	return outbox.DomainEvent{
		EventType:     enums.EventSaleCompleted,
		AggregateType: enums.AggregateSale,
		AggregateID:   strconv.FormatInt(sale.ID, 10),
		Actor:         actor,
		Data:          data,
		OccurredAt:    sale.CreatedAt,
	}
}

func saleCancelledEvent(sale *models.Sale, actor string, actorRef *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventSaleCancelled,
		AggregateType: enums.AggregateSale,
		AggregateID:   strconv.FormatInt(sale.ID, 10),
		Actor:         actorRef,
		Data: payloads.SaleCancelledEvent{
			SaleID:        sale.ID,
			InvoiceNumber: sale.InvoiceNumber,
			Total:         sale.Total,
			CancelledAt:   *sale.CancelledAt,
			CancelledBy:   actor,
		},
		OccurredAt: *sale.CancelledAt,
	}
}
