package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/kardex-pos/api/responses"
	"github.com/angelmondragon/kardex-pos/api/validators"
	"github.com/angelmondragon/kardex-pos/internal/paymentmethods"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

type setPaymentMethodRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func ListPaymentMethods(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := validators.ParseQueryBool(r, "all")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.List(r.Context(), all)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]paymentMethodResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, paymentMethodResponse{Code: row.Code, Name: row.Name, Active: row.Active})
		}
		responses.WriteSuccess(w, out)
	}
}

func SetPaymentMethodActive(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload setPaymentMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetActive(r.Context(), chi.URLParam(r, "code"), *payload.Active); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
