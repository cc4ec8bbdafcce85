package domain

import "context"

// AuthContext is the verified identity of the caller, produced by the
// authentication middleware before any handler runs.
type AuthContext struct {
	UserID      uint
	Username    string
	Role        string
	Permissions []string
	// Token is the raw bearer token, forwarded on service-to-service calls.
	Token string
}

// HasPermission reports whether the caller holds permission p
func (a AuthContext) HasPermission(p string) bool {
	for _, granted := range a.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}

type authContextKey struct{}

// WithAuthContext returns a copy of ctx carrying auth
func WithAuthContext(ctx context.Context, auth AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// AuthFromContext returns the AuthContext stored in ctx, if any
func AuthFromContext(ctx context.Context) (AuthContext, bool) {
	auth, ok := ctx.Value(authContextKey{}).(AuthContext)
	return auth, ok
}
