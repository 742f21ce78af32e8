// Package customers registers the buyers a sale can be invoiced to.
package customers

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/angelmondragon/kardex-pos/pkg/db"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

type Service interface {
	CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	FindByDocument(ctx context.Context, number string) (*models.Customer, error)
}

type CreateCustomerInput struct {
	Name           string
	DocumentType   string
	DocumentNumber string
	Email          string
	Phone          string
	Address        string
}

type ServiceParams struct {
	Repository *Repository
	Logger     *logger.Logger
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repository, logg: params.Logger}, nil
}

func (s *service) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	customer, err := buildCustomer(input)
	if err != nil {
		return nil, err
	}

	if customer.DocumentNumber != nil {
		taken, err := s.repo.DocumentTaken(ctx, *customer.DocumentNumber)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check document number")
		}
		if taken {
			return nil, documentConflict(*customer.DocumentNumber)
		}
	}

	if err := s.repo.Create(ctx, customer); err != nil {
		if db.IsUniqueViolation(err, "") && customer.DocumentNumber != nil {
			return nil, documentConflict(*customer.DocumentNumber)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create customer")
	}

	logCtx := s.logg.WithField(ctx, "customer_id", customer.ID)
	s.logg.Info(logCtx, "customer created")
	return customer, nil
}

func (s *service) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("customer %d not found", id)).
				WithDetails(map[string]any{"customer_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}
	return customer, nil
}

func (s *service) FindByDocument(ctx context.Context, number string) (*models.Customer, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document number is required")
	}
	customer, err := s.repo.FindByDocument(ctx, number)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found").
				WithDetails(map[string]any{"document_number": number})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer by document")
	}
	return customer, nil
}

func buildCustomer(input CreateCustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fieldError("name", "name is required")
	}
	customer := &models.Customer{
		Name:    name,
		Phone:   optional(input.Phone),
		Address: optional(input.Address),
	}

	number := optional(input.DocumentNumber)
	rawType := strings.TrimSpace(input.DocumentType)
	switch {
	case rawType != "" && number == nil:
		return nil, fieldError("document_number", "document number is required with a document type")
	case rawType == "" && number != nil:
		return nil, fieldError("document_type", "document type is required with a document number")
	case rawType != "":
		docType, err := enums.ParseDocumentType(rawType)
		if err != nil {
			return nil, fieldError("document_type", err.Error())
		}
		customer.DocumentType = &docType
		customer.DocumentNumber = number
	}

	if email := optional(input.Email); email != nil {
		if _, err := mail.ParseAddress(*email); err != nil {
			return nil, fieldError("email", "email is invalid")
		}
		customer.Email = email
	}
	return customer, nil
}

func documentConflict(number string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "document number already registered").
		WithDetails(map[string]any{"document_number": number})
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{"field": field})
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
