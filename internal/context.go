package internal

import (
	"context"
	"time"

	"github.com/frahmantamala/chatmate/internal/core/identity"
)

type ctxKey string

const ContextCallerKey ctxKey = "caller"

// CallerFromContext returns the authenticated identity attached by the auth middleware.
func CallerFromContext(ctx context.Context) (identity.ID, bool) {
	if ctx == nil {
		return identity.Zero, false
	}
	caller, ok := ctx.Value(ContextCallerKey).(identity.ID)
	if !ok || caller.IsZero() {
		return identity.Zero, false
	}
	return caller, true
}

func ContextWithCaller(ctx context.Context, caller identity.ID) context.Context {
	return context.WithValue(ctx, ContextCallerKey, caller)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
