package resource

import (
	"time"

	"github.com/goforj/resource/resourcecore"
)

// ClientOption mutates Config when constructing a client.
type ClientOption func(Config) Config

// WithTransport overrides the transport used for API round trips.
func WithTransport(t Transport) ClientOption {
	return func(cfg Config) Config {
		cfg.Transport = t
		return cfg
	}
}

// WithAuthToken sets a static bearer token.
func WithAuthToken(token string) ClientOption {
	return func(cfg Config) Config {
		cfg.AuthToken = token
		return cfg
	}
}

// WithTokenSource sets a dynamic bearer token source, consulted per
// request.
func WithTokenSource(source func() string) ClientOption {
	return func(cfg Config) Config {
		cfg.TokenSource = source
		return cfg
	}
}

// WithFreshFor overrides the freshness window for cached data.
func WithFreshFor(d time.Duration) ClientOption {
	return func(cfg Config) Config {
		cfg.FreshFor = d
		return cfg
	}
}

// WithErrorHandler overrides the client-level error sink.
func WithErrorHandler(fn func(msg string)) ClientOption {
	return func(cfg Config) Config {
		cfg.ErrorHandler = fn
		return cfg
	}
}

// WithObserver registers an operation observer.
func WithObserver(obs Observer) ClientOption {
	return func(cfg Config) Config {
		cfg.Observer = obs
		return cfg
	}
}

// WithClock overrides the clock; used by tests to pin freshness.
func WithClock(clock func() time.Time) ClientOption {
	return func(cfg Config) Config {
		cfg.Clock = clock
		return cfg
	}
}

// WithSnapshot enables cache state persistence through the given store.
func WithSnapshot(store resourcecore.Store) ClientOption {
	return func(cfg Config) Config {
		cfg.Snapshot = store
		return cfg
	}
}

// WithSnapshotTTL overrides how long a persisted snapshot stays loadable.
func WithSnapshotTTL(ttl time.Duration) ClientOption {
	return func(cfg Config) Config {
		cfg.SnapshotTTL = ttl
		return cfg
	}
}

// WithProduction selects same-origin request mode.
func WithProduction(production bool) ClientOption {
	return func(cfg Config) Config {
		cfg.Production = production
		return cfg
	}
}
