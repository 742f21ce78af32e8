package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodePolicies(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeValidation, http.StatusBadRequest, false},
		{CodeNotFound, http.StatusNotFound, false},
		{CodeInsufficientStock, http.StatusConflict, false},
		{CodeUnknownMovementType, http.StatusBadRequest, false},
		{CodeNumberingExhausted, http.StatusServiceUnavailable, true},
		{CodeTransaction, http.StatusInternalServerError, false},
		{CodeAlreadyCancelled, http.StatusConflict, false},
		{CodeStateConflict, http.StatusUnprocessableEntity, false},
		{CodeUnauthorized, http.StatusUnauthorized, false},
		{CodeDependency, http.StatusServiceUnavailable, true},
		{"SOMETHING_UNKNOWN", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.code.HTTPStatus())
			assert.Equal(t, tt.retryable, tt.code.Retryable())
			assert.NotEmpty(t, tt.code.PublicMessage())
		})
	}
}

func TestPublic(t *testing.T) {
	details := map[string]any{"field": "items"}

	msg, got := New(CodeValidation, "items must not be empty").WithDetails(details).Public()
	assert.Equal(t, "items must not be empty", msg)
	assert.Equal(t, details, got)

	msg, got = New(CodeUnauthorized, "token expired").WithDetails(details).Public()
	assert.Equal(t, "token expired", msg)
	assert.Nil(t, got)

	msg, got = Wrap(CodeDependency, stdErrors.New("dial tcp"), "redis unreachable").WithDetails(details).Public()
	assert.Equal(t, "dependency unavailable", msg)
	assert.Equal(t, details, got)

	msg, got = New(CodeTransaction, "commit unit of work").Public()
	assert.Equal(t, "transaction failed", msg)
	assert.Nil(t, got)

	msg, _ = New(CodeNotFound, "").Public()
	assert.Equal(t, "resource not found", msg)
}

func TestErrorChain(t *testing.T) {
	base := New(CodeValidation, "items must not be empty")
	assert.Equal(t, "VALIDATION_ERROR: items must not be empty", base.Error())
	assert.Nil(t, base.Details())

	cause := stdErrors.New("disk full")
	wrapped := Wrap(CodeTransaction, cause, "commit unit of work")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeTransaction, wrapped.Code())

	var nilErr *Error
	assert.Equal(t, CodeInternal, nilErr.Code())
	assert.Nil(t, nilErr.WithDetails("x"))
}

func TestAsAndIsCodeFollowWrapping(t *testing.T) {
	err := fmt.Errorf("create sale: %w", New(CodeInsufficientStock, "not enough"))
	require.NotNil(t, As(err))
	assert.Equal(t, CodeInsufficientStock, As(err).Code())
	assert.True(t, IsCode(err, CodeInsufficientStock))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(nil, CodeNotFound))
	assert.Nil(t, As(nil))
}

func TestDumpDecodesPgxError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "sales_invoice_number_key", TableName: "sales", Message: "duplicate key"}
	d := Dump(Wrap(CodeConflict, pgErr, "insert sale"))

	assert.Equal(t, CodeConflict, d.Code)
	assert.Equal(t, "23505", d.PGCode)
	assert.Equal(t, "sales_invoice_number_key", d.PGConstraint)
	assert.Equal(t, "sales", d.PGTable)
	assert.Len(t, d.Chain, 2)

	fields := d.Fields()
	assert.Equal(t, "sales_invoice_number_key", fields["pg_constraint"])
	assert.Equal(t, string(CodeConflict), fields["error_code"])
	assert.NotContains(t, fields, "pg_column")
}

func TestDumpDecodesPqError(t *testing.T) {
	pqErr := &pq.Error{Code: "23503", Constraint: "sale_details_product_id_fkey", Table: "sale_details"}
	d := Dump(fmt.Errorf("insert detail: %w", pqErr))

	assert.Equal(t, "23503", d.PGCode)
	assert.Equal(t, "sale_details", d.PGTable)
	assert.Empty(t, d.Code)
}
