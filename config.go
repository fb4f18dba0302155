package resource

import (
	"fmt"
	"os"
	"time"

	"github.com/goforj/resource/resourcecore"
)

const (
	// defaultFreshFor is the window within which cached data is served
	// without re-synchronizing.
	defaultFreshFor = 5 * time.Minute

	defaultSnapshotTTL = 24 * time.Hour
	defaultSnapshotKey = "resource-state"
)

// Config controls how a Client is constructed.
type Config struct {
	// Registry maps resource names to their configurations. Required.
	Registry *Registry

	// Transport performs API round trips. Defaults to an HTTPTransport
	// over http.DefaultClient.
	Transport Transport

	// AuthToken is a static bearer token. For tokens that rotate, set
	// TokenSource instead; it wins when both are set.
	AuthToken   string
	TokenSource func() string

	// FreshFor is the freshness window for cached data.
	FreshFor time.Duration

	// ErrorHandler receives client-level error messages, such as a
	// request issued without the authentication it requires. Defaults to
	// writing on stderr.
	ErrorHandler func(msg string)

	// Observer, when set, receives an event per resolved operation.
	Observer Observer

	// Clock overrides time.Now, used by tests to pin freshness.
	Clock func() time.Time

	// Snapshot, when set, enables persisting cache state across
	// processes via SaveSnapshot/LoadSnapshot.
	Snapshot    resourcecore.Store
	SnapshotTTL time.Duration
	SnapshotKey string

	// Production selects the same-origin request mode; otherwise
	// requests are issued in cors mode.
	Production bool
}

func (c Config) withDefaults() Config {
	if c.Transport == nil {
		c.Transport = NewHTTPTransport(nil)
	}
	if c.TokenSource == nil {
		token := c.AuthToken
		c.TokenSource = func() string { return token }
	}
	if c.FreshFor <= 0 {
		c.FreshFor = defaultFreshFor
	}
	if c.ErrorHandler == nil {
		c.ErrorHandler = func(msg string) {
			fmt.Fprintln(os.Stderr, "resource:", msg)
		}
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.SnapshotTTL <= 0 {
		c.SnapshotTTL = defaultSnapshotTTL
	}
	if c.SnapshotKey == "" {
		c.SnapshotKey = defaultSnapshotKey
	}
	return c
}
