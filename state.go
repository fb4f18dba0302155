package resource

import (
	"encoding/json"
	"sync"
	"time"
)

// SourceError is a terminal fetch failure cached against a source key.
type SourceError struct {
	Code    int
	Message string
}

// SourceData is a read-only view of one source's cached result. The RefList
// distinction matters: nil means "no information" (never fetched, or the
// last fetch failed), while an empty non-nil list means the server
// confirmed an empty result.
type SourceData struct {
	Source         string
	LastChecked    time.Time
	RefList        []string
	Items          []*Item
	PermanentError *SourceError
}

// Known reports whether the source has confirmed membership information.
func (d SourceData) Known() bool { return d.RefList != nil }

// sourceRecord is the cached result of one fetch identity. itemList is the
// lazily derived modeled list; itemListSeq records the invalidation counter
// value it was derived at.
type sourceRecord struct {
	source         string
	lastChecked    time.Time
	refList        []string
	permanentError *SourceError
	itemList       []*Item
	itemListSeq    int64
}

// cacheState is the authoritative in-memory cache: modeled items by id,
// source records by fetch key, un-normalized event lists by item id, the
// in-flight set, and the global list invalidation counter.
type cacheState struct {
	items              map[string]*Item
	sources            map[string]*sourceRecord
	events             map[string][]json.RawMessage
	inFlight           map[string]bool
	refreshListsBefore int64
}

func initialState() cacheState {
	return cacheState{
		items:    map[string]*Item{},
		sources:  map[string]*sourceRecord{},
		events:   map[string][]json.RawMessage{},
		inFlight: map[string]bool{},
	}
}

// actionType tags a cache state transition.
type actionType string

const (
	actionFetchRequest  actionType = "fetch_request"
	actionFetchSuccess  actionType = "fetch_success"
	actionFetchFailure  actionType = "fetch_failure"
	actionWriteRequest  actionType = "write_request"
	actionWriteSuccess  actionType = "write_success"
	actionWriteFailure  actionType = "write_failure"
	actionDeleteSuccess actionType = "delete_success"
	actionEventsSuccess actionType = "events_success"
	actionAddEvent      actionType = "add_event_success"
	actionUpdateLocal   actionType = "update_local"
	actionReset         actionType = "reset"
)

// action is the tagged record dispatched by the synchronization engine and
// consumed by the reducer. Only the fields relevant to the type are set.
type action struct {
	typ        actionType
	source     string
	items      []*Item
	item       *Item
	itemID     string
	events     []json.RawMessage
	code       int
	message    string
	receivedAt time.Time
}

// StateStore holds cache state behind a dispatch/subscribe interface. All
// mutation funnels through Dispatch, which applies the reducer atomically;
// reads take a consistent view under the same lock. Construct one store per
// client; tests may construct as many as they like.
type StateStore struct {
	mu      sync.Mutex
	state   cacheState
	subs    map[int]func()
	nextSub int
}

// NewStateStore returns an empty cache state container.
func NewStateStore() *StateStore {
	return &StateStore{state: initialState(), subs: map[int]func(){}}
}

// Dispatch applies one state transition and then notifies subscribers.
func (s *StateStore) Dispatch(a action) {
	s.mu.Lock()
	s.state = reduce(s.state, a)
	listeners := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Subscribe registers a change listener, invoked after every dispatch. The
// returned func cancels the subscription.
func (s *StateStore) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Reset drops all cached state. Intended for tests and session teardown.
func (s *StateStore) Reset() {
	s.Dispatch(action{typ: actionReset})
}

// view runs fn with the current state under the store lock. fn must not
// dispatch.
func (s *StateStore) view(fn func(st *cacheState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// restore replaces the whole state, used when loading a snapshot.
func (s *StateStore) restore(st cacheState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
