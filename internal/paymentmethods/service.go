// Package paymentmethods exposes the seeded payment method reference table.
package paymentmethods

import (
	"context"
	"fmt"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

type Service interface {
	List(ctx context.Context, includeInactive bool) ([]models.PaymentMethod, error)
	SetActive(ctx context.Context, code string, active bool) error
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
		return nil, fmt.Errorf("payment method repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repository, logg: params.Logger}, nil
}

func (s *service) List(ctx context.Context, includeInactive bool) ([]models.PaymentMethod, error) {
	rows, err := s.repo.List(ctx, !includeInactive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payment methods")
	}
	return rows, nil
}

// SetActive toggles a method. Inactive methods are refused by new sales but
// stay referenced by past ones.
func (s *service) SetActive(ctx context.Context, code string, active bool) error {
	parsed, err := enums.ParsePaymentMethodCode(code)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
			WithDetails(map[string]any{"field": "code"})
	}
	rows, err := s.repo.SetActive(ctx, parsed, active)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment method")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("payment method %s not found", parsed))
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"code": parsed, "active": active})
	s.logg.Info(logCtx, "payment method updated")
	return nil
}
