package resource

import "fmt"

// ConfigError reports a missing or malformed registry or client
// configuration. It is returned (or panicked from Must variants)
// synchronously at startup and never from a fetch path.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "resource: configuration error: " + e.Reason
}

// ValidationError reports a caller programming error, such as updating a
// non-writable property of an existing item or constructing an item against
// an unfinalized schema.
type ValidationError struct {
	Resource string
	Prop     string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Prop != "" {
		return fmt.Sprintf("resource: invalid use of %q property %q: %s", e.Resource, e.Prop, e.Reason)
	}
	return fmt.Sprintf("resource: invalid use of %q: %s", e.Resource, e.Reason)
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}
