package middleware

import (
	"context"

	"github.com/angelmondragon/kardex-pos/pkg/enums"
)

type identityKey struct{}

// Identity is the operator resolved by Auth. Operator is the tag stored as
// created_by on movements and sales; it may be empty in header mode.
type Identity struct {
	Operator string
	Role     enums.OperatorRole
}

// Allows reports whether the identity holds one of roles. Admins hold all.
func (i Identity) Allows(roles ...enums.OperatorRole) bool {
	if i.Role == enums.OperatorRoleAdmin {
		return true
	}
	for _, role := range roles {
		if i.Role == role {
			return true
		}
	}
	return false
}

func WithOperator(ctx context.Context, operator string, role enums.OperatorRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, Identity{Operator: operator, Role: role})
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

func OperatorFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.Operator
}

func RoleFromContext(ctx context.Context) enums.OperatorRole {
	id, _ := IdentityFromContext(ctx)
	return id.Role
}
