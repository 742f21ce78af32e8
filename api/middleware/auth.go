package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/kardex-pos/api/responses"
	pkgauth "github.com/angelmondragon/kardex-pos/pkg/auth"
	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

const (
	operatorHeader    = "X-Operator"
	maxOperatorLength = 64
)

// Auth resolves the operator behind a request. With required set, a valid
// bearer token is mandatory. Otherwise a token is still honoured when present
// and the X-Operator header supplies the tag, with admin rights.
func Auth(cfg config.JWTConfig, required bool, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))

			var (
				operator string
				role     enums.OperatorRole
			)
			switch {
			case token != "":
				claims, err := pkgauth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				operator, role = claims.Operator(), claims.Role
			case required:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			default:
				operator = strings.TrimSpace(r.Header.Get(operatorHeader))
				if len(operator) > maxOperatorLength {
					operator = operator[:maxOperatorLength]
				}
				role = enums.OperatorRoleAdmin
			}

			ctx := WithOperator(r.Context(), operator, role)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"operator":      operator,
					"operator_role": string(role),
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
