package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
)

type lineRequest struct {
	ProductID int64           `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
}

type priceRequest struct {
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
	Items []lineRequest   `json:"items" validate:"omitempty,dive"`
}

func postBody(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"Milk","price":"4.50"}`, false},
		{"numeric decimal", `{"name":"Milk","price":4.5}`, false},
		{"negative price", `{"name":"Milk","price":"-1"}`, true},
		{"missing name", `{"price":"1"}`, true},
		{"unknown field", `{"name":"Milk","price":"1","stock":3}`, true},
		{"malformed", `{"name":`, true},
		{"empty", ``, true},
		{"trailing object", `{"name":"Milk","price":"4.5"}{"name":"Bread"}`, true},
		{"wrong type", `{"name":7,"price":"4.5"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dest priceRequest
			err := DecodeJSONBody(postBody(tt.body), &dest)
			if tt.wantErr {
				assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, dest.Price.Equal(decimal.RequireFromString("4.5")))
		})
	}
}

func TestDecodeJSONBodyReportsFieldPaths(t *testing.T) {
	var dest priceRequest
	err := DecodeJSONBody(postBody(`{"name":"Milk","price":"1","items":[{"product_id":3,"quantity":"0"}]}`), &dest)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, map[string]string{"items[0].quantity": "must be greater than 0"}, typed.Details())
}

func TestDecodeJSONBodyNamesMistypedField(t *testing.T) {
	var dest priceRequest
	err := DecodeJSONBody(postBody(`{"name":["x"],"price":"1"}`), &dest)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "name", typed.Details().(map[string]any)["field"])
}

func TestParseQueryDate(t *testing.T) {
	lima, err := time.LoadLocation("America/Lima")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/?from=2025-01-02&bad=02/01/2025", nil)

	from, err := ParseQueryDate(req, "from", lima)
	require.NoError(t, err)
	assert.True(t, from.Equal(time.Date(2025, 1, 2, 5, 0, 0, 0, time.UTC)), "got %s", from.UTC())

	missing, err := ParseQueryDate(req, "to", lima)
	require.NoError(t, err)
	assert.True(t, missing.IsZero())

	_, err = ParseQueryDate(req, "bad", lima)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20&big=500&word=ten", nil)

	v, err := ParseQueryInt(req, "limit", 50, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	v, err = ParseQueryInt(req, "absent", 50, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 50, v)

	_, err = ParseQueryInt(req, "big", 50, 1, 100)
	assert.Error(t, err)
	_, err = ParseQueryInt(req, "word", 50, 1, 100)
	assert.Error(t, err)
}

func TestParseQueryID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?category_id=7&zero=0&word=x", nil)

	id, err := ParseQueryID(req, "category_id")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.EqualValues(t, 7, *id)

	id, err = ParseQueryID(req, "absent")
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = ParseQueryID(req, "zero")
	assert.Error(t, err)
	_, err = ParseQueryID(req, "word")
	assert.Error(t, err)
}

func TestPathID(t *testing.T) {
	for raw, ok := range map[string]bool{"12": true, "0": false, "-3": false, "abc": false} {
		rc := chi.NewRouteContext()
		rc.URLParams.Add("id", raw)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

		id, err := PathID(req, "id")
		if ok {
			require.NoError(t, err, raw)
			assert.EqualValues(t, 12, id)
		} else {
			assert.Error(t, err, raw)
		}
	}
}
