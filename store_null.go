package resource

import (
	"context"
	"time"

	"github.com/goforj/resource/resourcecore"
)

// nullStore persists nothing; every load misses. Lets callers disable
// snapshot persistence without branching.
type nullStore struct{}

func newNullStore() resourcecore.Store { return &nullStore{} }

func (s *nullStore) Driver() resourcecore.Driver { return resourcecore.DriverNull }

func (s *nullStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *nullStore) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (s *nullStore) Delete(context.Context, string) error { return nil }

func (s *nullStore) Flush(context.Context) error { return nil }
