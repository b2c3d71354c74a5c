package middleware

import (
	"context"

	"github.com/MrEthical07/wanderlate/jwt"
)

type sessionContextKey struct{}

type localeContextKey struct{}

// SessionFromContext returns the session the gate attached to a passed
// request. It reports false for anonymous visitors.
func SessionFromContext(ctx context.Context) (jwt.Payload, bool) {
	p, ok := ctx.Value(sessionContextKey{}).(jwt.Payload)
	return p, ok
}

// LocaleFromContext returns the locale resolved from the request path.
func LocaleFromContext(ctx context.Context) (string, bool) {
	loc, ok := ctx.Value(localeContextKey{}).(string)
	return loc, ok
}

func withGateState(ctx context.Context, locale string, p jwt.Payload, authed bool) context.Context {
	ctx = context.WithValue(ctx, localeContextKey{}, locale)
	if authed {
		ctx = context.WithValue(ctx, sessionContextKey{}, p)
	}
	return ctx
}
