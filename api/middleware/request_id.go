package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

const (
	requestIDHeader    = chimw.RequestIDHeader
	maxRequestIDLength = 128
)

// RequestID reuses the caller's X-Request-Id when it is short enough, lets chi
// mint one otherwise, and echoes it back on the response.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		tag := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chimw.GetReqID(r.Context())
			w.Header().Set(requestIDHeader, reqID)
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
		withID := chimw.RequestID(tag)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.Header.Get(requestIDHeader)) > maxRequestIDLength {
				r.Header.Del(requestIDHeader)
			}
			withID.ServeHTTP(w, r)
		})
	}
}
