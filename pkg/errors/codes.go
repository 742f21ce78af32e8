package errors

import "net/http"

// Code is the stable machine-readable error identifier sent to clients.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeStateConflict       Code = "STATE_CONFLICT"
	CodeIdempotency         Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInsufficientStock   Code = "INSUFFICIENT_STOCK"
	CodeUnknownMovementType Code = "UNKNOWN_MOVEMENT_TYPE"
	CodeNumberingExhausted  Code = "NUMBERING_EXHAUSTED"
	CodeTransaction         Code = "TRANSACTION_ERROR"
	CodeAlreadyCancelled    Code = "ALREADY_CANCELLED"
	CodeInternal            Code = "INTERNAL_ERROR"
	CodeDependency          Code = "DEPENDENCY_ERROR"
)

// exposure says which parts of an Error may reach a client.
type exposure uint8

const (
	exposeMessage exposure = 1 << iota
	exposeDetails

	exposeAll = exposeMessage | exposeDetails
)

type policy struct {
	status    int
	retryable bool
	fallback  string
	expose    exposure
}

var policies = map[Code]policy{
	CodeValidation:          {status: http.StatusBadRequest, fallback: "validation failed", expose: exposeAll},
	CodeUnauthorized:        {status: http.StatusUnauthorized, fallback: "authentication required", expose: exposeMessage},
	CodeForbidden:           {status: http.StatusForbidden, fallback: "access denied", expose: exposeAll},
	CodeNotFound:            {status: http.StatusNotFound, fallback: "resource not found", expose: exposeAll},
	CodeConflict:            {status: http.StatusConflict, fallback: "conflict detected", expose: exposeAll},
	CodeStateConflict:       {status: http.StatusUnprocessableEntity, fallback: "state transition disallowed", expose: exposeAll},
	CodeIdempotency:         {status: http.StatusConflict, fallback: "idempotency key reused", expose: exposeAll},
	CodeInsufficientStock:   {status: http.StatusConflict, fallback: "insufficient stock", expose: exposeAll},
	CodeUnknownMovementType: {status: http.StatusBadRequest, fallback: "unknown movement type", expose: exposeAll},
	CodeAlreadyCancelled:    {status: http.StatusConflict, fallback: "sale already cancelled", expose: exposeAll},
	CodeNumberingExhausted:  {status: http.StatusServiceUnavailable, retryable: true, fallback: "could not allocate invoice number"},
	CodeTransaction:         {status: http.StatusInternalServerError, fallback: "transaction failed"},
	CodeDependency:          {status: http.StatusServiceUnavailable, retryable: true, fallback: "dependency unavailable", expose: exposeDetails},
	CodeInternal:            {status: http.StatusInternalServerError, retryable: true, fallback: "internal server error"},
}

func (c Code) policy() policy {
	if p, ok := policies[c]; ok {
		return p
	}
	return policies[CodeInternal]
}

// HTTPStatus is the response status for the code. Unknown codes map to 500.
func (c Code) HTTPStatus() int { return c.policy().status }

// Retryable reports whether a client may retry the same request unchanged.
func (c Code) Retryable() bool { return c.policy().retryable }

// PublicMessage is the generic text sent when the error's own message is
// withheld.
func (c Code) PublicMessage() string { return c.policy().fallback }
