package resource

import (
	"context"
	"time"
)

// Observer receives events for client operations.
// It is called from the request facade after each operation resolves,
// whether the outcome came from cache or from the transport.
type Observer interface {
	OnResourceOp(ctx context.Context, op string, source string, cached bool, code int, dur time.Duration)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op string, source string, cached bool, code int, dur time.Duration)

// OnResourceOp implements Observer.
func (f ObserverFunc) OnResourceOp(ctx context.Context, op string, source string, cached bool, code int, dur time.Duration) {
	if f == nil {
		return
	}
	f(ctx, op, source, cached, code, dur)
}
