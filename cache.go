package resource

import (
	"encoding/json"
	"time"
)

// Cache exposes read access to the client's local state. All reads are
// consistent point-in-time views; a read never triggers a fetch.
type Cache struct {
	store *StateStore
	clock func() time.Time
	fresh time.Duration
}

func newCache(store *StateStore, clock func() time.Time, freshFor time.Duration) *Cache {
	return &Cache{store: store, clock: clock, fresh: freshFor}
}

// IsFetching reports whether a request for the source key is in flight.
func (c *Cache) IsFetching(source string) bool {
	var fetching bool
	c.store.view(func(st *cacheState) {
		fetching = st.inFlight[source]
	})
	return fetching
}

// PermanentError returns the recorded terminal failure for a source key,
// or nil when none is cached.
func (c *Cache) PermanentError(source string) *SourceError {
	var serr *SourceError
	c.store.view(func(st *cacheState) {
		if rec := st.sources[source]; rec != nil {
			serr = rec.permanentError
		}
	})
	return serr
}

// Item returns the cached item regardless of completeness, or nil.
func (c *Cache) Item(id string) *Item {
	var item *Item
	c.store.view(func(st *cacheState) {
		item = st.items[id]
	})
	return item
}

// CompleteItem returns the cached item only when every required property
// is present; nil otherwise.
func (c *Cache) CompleteItem(id string) *Item {
	item := c.Item(id)
	if item == nil || !item.IsComplete() {
		return nil
	}
	return item
}

// FreshCompleteItem returns the cached item only when it is complete and
// was confirmed by the server within the freshness window.
func (c *Cache) FreshCompleteItem(id string) *Item {
	item := c.CompleteItem(id)
	if item == nil || !c.isFresh(item.LastChecked()) {
		return nil
	}
	return item
}

// SourceData returns the cached view of a source key. The modeled item
// list is derived lazily from the reference list. A reference whose item
// was evicted means the record can no longer be trusted, so the whole
// view collapses to the zero-information state and the next non-forced
// fetch goes back to the network. The derived list is written back so
// repeated reads are cheap.
func (c *Cache) SourceData(source string) SourceData {
	var data SourceData
	c.store.view(func(st *cacheState) {
		rec := st.sources[source]
		if rec == nil {
			data = SourceData{Source: source}
			return
		}
		data = SourceData{
			Source:         source,
			LastChecked:    rec.lastChecked,
			RefList:        rec.refList,
			PermanentError: rec.permanentError,
		}
		if rec.refList == nil {
			return
		}
		if rec.itemList != nil && rec.itemListSeq == st.refreshListsBefore {
			data.Items = rec.itemList
			return
		}
		items := make([]*Item, len(rec.refList))
		for i, id := range rec.refList {
			item := st.items[id]
			if item == nil {
				data = SourceData{Source: source}
				return
			}
			items[i] = item
		}
		rec.itemList = items
		rec.itemListSeq = st.refreshListsBefore
		data.Items = items
	})
	return data
}

// FreshSourceData is SourceData restricted to the freshness window: the
// zero-information view is returned when the record is stale or errored.
func (c *Cache) FreshSourceData(source string) SourceData {
	data := c.SourceData(source)
	if data.PermanentError != nil {
		return data
	}
	if !data.Known() || !c.isFresh(data.LastChecked) {
		return SourceData{Source: source}
	}
	return data
}

// ItemEvents returns the cached raw event list for an item, or nil when
// events were never fetched for it.
func (c *Cache) ItemEvents(itemID string) []json.RawMessage {
	var events []json.RawMessage
	c.store.view(func(st *cacheState) {
		events = st.events[itemID]
	})
	return events
}

// isFresh reports whether a confirmation time is inside the freshness
// window. The boundary is inclusive: data checked exactly freshFor ago is
// still fresh.
func (c *Cache) isFresh(lastChecked time.Time) bool {
	if lastChecked.IsZero() {
		return false
	}
	return !c.clock().After(lastChecked.Add(c.fresh))
}
