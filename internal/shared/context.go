package shared

import "context"

// Roles known to the workshop backend. Authentication happens upstream; the
// gateway forwards the resolved identity with every request.
const (
	RoleAdmin   = "ADMIN"
	RoleCashier = "CASHIER"
)

// Identity describes the authenticated caller.
type Identity struct {
	UserID    int64
	Role      string
	IP        string
	UserAgent string
}

// IsAdmin reports whether the identity carries the ADMIN role.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

type identityContextKey struct{}

// ContextWithIdentity stores the caller identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the caller identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok && id.UserID != 0
}
