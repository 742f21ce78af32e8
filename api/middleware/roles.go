package middleware

import (
	"net/http"

	"github.com/angelmondragon/kardex-pos/api/responses"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

// RequireRoles rejects requests whose identity holds none of roles. It must
// run after Auth; a request without an identity is forbidden.
func RequireRoles(logg *logger.Logger, roles ...enums.OperatorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok || !id.Allows(roles...) {
				err := pkgerrors.New(pkgerrors.CodeForbidden, "operator role not allowed").
					WithDetails(map[string]any{"required": roles, "role": id.Role})
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
