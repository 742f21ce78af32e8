// Package responses renders the JSON envelopes of the HTTP API.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	write(w, status, SuccessBody{Data: data})
}

// WriteError renders err as the error envelope. Errors outside the taxonomy
// become INTERNAL_ERROR and their text stays in the logs.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := classify(err)
	code := typed.Code()
	msg, details := typed.Public()

	if logg != nil {
		fields := pkgerrors.Dump(err).Fields()
		fields["http_status"] = code.HTTPStatus()
		logCtx := logg.WithFields(ctx, fields)
		if code.HTTPStatus() >= http.StatusInternalServerError {
			logg.Error(logCtx, "request failed", typed)
		} else {
			logg.Warn(logCtx, "request rejected")
		}
	}

	write(w, code.HTTPStatus(), ErrorBody{Error: ErrorDetail{
		Code:      string(code),
		Message:   msg,
		Retryable: code.Retryable(),
		Details:   details,
	}})
}

func classify(err error) *pkgerrors.Error {
	if err == nil {
		err = errors.New("nil error written as failure")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
}

func write(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
