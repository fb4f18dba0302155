package resource

import (
	"context"
	"time"

	"github.com/goforj/resource/resourcecore"
)

// errorStore is returned when a driver fails to initialize; it preserves
// the driver identity while surfacing the construction error on every
// call.
type errorStore struct {
	driver resourcecore.Driver
	err    error
}

func (e *errorStore) Driver() resourcecore.Driver { return e.driver }

func (e *errorStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, e.err
}

func (e *errorStore) Set(context.Context, string, []byte, time.Duration) error {
	return e.err
}

func (e *errorStore) Delete(context.Context, string) error { return e.err }

func (e *errorStore) Flush(context.Context) error { return e.err }
