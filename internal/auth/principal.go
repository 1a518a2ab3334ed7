package auth

import "context"

// Principal is the identity attached to a verified request.
type Principal struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached by the verifier middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID > 0
}

// ActorID returns the acting user id or 0 for anonymous callers.
func ActorID(ctx context.Context) int64 {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return 0
	}
	return p.UserID
}
