package resource

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// Shared fixtures: a task resource with a nested owner, covering scalar,
// array, optional, fragile, and nested property shapes.

const (
	taskID  = "5f0f0d81-49a1-4e28-9fbc-7d1e9a6e0a01"
	taskID2 = "9f2b1c44-3a7e-4d2b-8a01-6a4c2d9e0b02"
	userID  = "1a2b3c4d-5e6f-4a1b-9c8d-7e6f5a4b3c2d"
)

var testUserSchema = MustSchema("user", append(BaseProps(),
	PropSpec{Name: "name", Writable: true},
))

var testTaskSchema = MustSchema("task", append(BaseProps(),
	PropSpec{Name: "title", Writable: true},
	PropSpec{Name: "status", Writable: true, Default: "open"},
	PropSpec{Name: "summary", Optional: true, Fragile: []string{"title"}},
	PropSpec{Name: "labels", Kind: KindArray, Writable: true},
	PropSpec{Name: "owner", Nested: testUserSchema, Optional: true},
))

func newTestRegistry(t *testing.T, confs ...*Conf) *Registry {
	t.Helper()
	if len(confs) == 0 {
		confs = []*Conf{
			{ItemName: "task", Schema: testTaskSchema},
			{ItemName: "user", Schema: testUserSchema},
		}
	}
	r, err := NewRegistry(confs...)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return r
}

// taskProps describes a complete existing task.
func taskProps(id string, lastUpdated int64, title string) map[string]any {
	return map[string]any{
		"id":          id,
		"lastUpdated": lastUpdated,
		"title":       title,
		"status":      "open",
		"labels":      []any{"backlog"},
	}
}

func mustTestItem(t *testing.T, s *Schema, props map[string]any, opts ...ItemOption) *Item {
	t.Helper()
	item, err := NewItem(s, props, opts...)
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	return item
}

// fakeClock is a settable clock for freshness tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testBaseTime = time.UnixMilli(1_700_000_000_000)

func envelopeBody(t *testing.T, data any, message string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{"data": data, "message": message})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return body
}
