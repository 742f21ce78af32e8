package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/kardex-pos/api/responses"
	"github.com/angelmondragon/kardex-pos/api/validators"
	"github.com/angelmondragon/kardex-pos/internal/customers"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

type createCustomerRequest struct {
	Name           string `json:"name" validate:"required,max=200"`
	DocumentType   string `json:"document_type,omitempty"`
	DocumentNumber string `json:"document_number,omitempty" validate:"max=32"`
	Email          string `json:"email,omitempty" validate:"max=200"`
	Phone          string `json:"phone,omitempty" validate:"max=32"`
	Address        string `json:"address,omitempty" validate:"max=300"`
}

func CreateCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createCustomerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.CreateCustomer(r.Context(), customers.CreateCustomerInput{
			Name:           payload.Name,
			DocumentType:   payload.DocumentType,
			DocumentNumber: payload.DocumentNumber,
			Email:          payload.Email,
			Phone:          payload.Phone,
			Address:        payload.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toCustomerResponse(customer))
	}
}

func GetCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.PathID(r, "customerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.GetCustomer(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCustomerResponse(customer))
	}
}

func FindCustomerByDocument(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customer, err := svc.FindByDocument(r.Context(), chi.URLParam(r, "document"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCustomerResponse(customer))
	}
}
