package gate

import (
	"context"

	"github.com/carbonatlas/geoauth/pkg/ssotoken"
)

type ctxKey struct{}

func contextWithIdentity(ctx context.Context, c ssotoken.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// IdentityFromContext returns the verified claims the gatekeeper attached
// to the request, if any.
func IdentityFromContext(ctx context.Context) (ssotoken.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(ssotoken.Claims)
	return c, ok
}
