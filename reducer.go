package resource

import (
	"encoding/json"
	"strings"
	"time"
)

// reduce applies one action to the cache state and returns the next state.
// Reducers copy the maps they change; readers holding a previous view are
// never surprised mid-iteration.
func reduce(st cacheState, a action) cacheState {
	switch a.typ {
	case actionFetchRequest, actionWriteRequest:
		return markInFlight(st, a.source)
	case actionFetchSuccess:
		return mergeFetch(st, a)
	case actionFetchFailure:
		return failSource(st, a)
	case actionWriteSuccess:
		return mergeWrite(st, a)
	case actionWriteFailure:
		next := st
		next.inFlight = without(st.inFlight, a.source)
		return next
	case actionDeleteSuccess:
		return applyDelete(st, a)
	case actionEventsSuccess:
		next := st
		events := cloneEvents(st.events)
		events[a.itemID] = a.events
		next.events = events
		next.inFlight = without(st.inFlight, a.source)
		return next
	case actionAddEvent:
		// The owning item may have changed server-side as a consequence of
		// the event; evict it so the next read refetches.
		next := st
		items := cloneItems(st.items)
		delete(items, a.itemID)
		next.items = items
		next.inFlight = without(st.inFlight, a.source)
		return next
	case actionUpdateLocal:
		next := st
		items := cloneItems(st.items)
		items[a.item.ID()] = a.item
		next.items = items
		next.refreshListsBefore = st.refreshListsBefore + 1
		return next
	case actionReset:
		return initialState()
	default:
		return st
	}
}

func markInFlight(st cacheState, source string) cacheState {
	next := st
	inFlight := make(map[string]bool, len(st.inFlight)+1)
	for k := range st.inFlight {
		inFlight[k] = true
	}
	inFlight[source] = true
	next.inFlight = inFlight
	return next
}

// mergeFetch applies the fetch success merge policy:
//
//  1. A returned item replaces the cached one when absent, strictly newer
//     by lastUpdated, or complete where the cached item is incomplete at
//     the same lastUpdated (completeness upgrade).
//  2. The max lastUpdated among accepted items becomes the cutoff before
//     which other source records can no longer be trusted; they are
//     dropped, except the record for the current fetch key, which is
//     rewritten with the fresh membership.
//  3. Any accepted item bumps the list invalidation counter so stale list
//     records lazily recompute membership.
func mergeFetch(st cacheState, a action) cacheState {
	items := cloneItems(st.items)
	var invalidateBefore int64
	changed := false
	for _, item := range a.items {
		id := item.ID()
		curr := items[id]
		accept := curr == nil || item.LastUpdated() > curr.LastUpdated() ||
			(!curr.IsComplete() && item.IsComplete() && item.LastUpdated() == curr.LastUpdated())
		if !accept {
			continue
		}
		items[id] = item
		changed = true
		if lu := item.LastUpdated(); lu > invalidateBefore {
			invalidateBefore = lu
		}
	}

	current := &sourceRecord{
		source:      a.source,
		lastChecked: a.receivedAt,
		refList:     itemIDs(a.items),
	}
	sources := make(map[string]*sourceRecord, len(st.sources)+1)
	cutoff := time.UnixMilli(invalidateBefore)
	for key, rec := range st.sources {
		if invalidateBefore > 0 && rec.lastChecked.Before(cutoff) {
			continue
		}
		sources[key] = rec
	}
	sources[a.source] = current

	next := st
	next.items = items
	next.sources = sources
	next.inFlight = without(st.inFlight, a.source)
	if changed {
		next.refreshListsBefore = st.refreshListsBefore + 1
	}
	return next
}

// mergeWrite applies the create/update success policy: the same item merge
// gates as a fetch, plus orphan collection of nested entities the update
// stopped referencing, and a wholesale drop of every other source record
// (a write elsewhere may have changed any list's membership).
func mergeWrite(st cacheState, a action) cacheState {
	item := a.item
	id := item.ID()
	items := cloneItems(st.items)

	validated := map[string]bool{id: true}
	kept := map[string]bool{}
	for _, ref := range item.References() {
		kept[ref] = true
	}
	if curr := items[id]; curr != nil {
		for _, ref := range curr.References() {
			if !validated[ref] && !kept[ref] {
				delete(items, ref)
			}
		}
	}

	curr := items[id]
	if curr == nil || item.LastUpdated() > curr.LastUpdated() ||
		(!curr.IsComplete() && item.IsComplete() && item.LastUpdated() == curr.LastUpdated()) {
		items[id] = item
	}

	next := st
	next.items = items
	next.sources = map[string]*sourceRecord{
		a.source: {
			source:      a.source,
			lastChecked: a.receivedAt,
			refList:     []string{id},
		},
	}
	next.inFlight = without(st.inFlight, a.source)
	next.refreshListsBefore = st.refreshListsBefore + 1
	return next
}

// failSource records a permanent error against the fetched key. Other
// source records are untouched: a failed fetch says nothing about them.
func failSource(st cacheState, a action) cacheState {
	sources := make(map[string]*sourceRecord, len(st.sources)+1)
	for key, rec := range st.sources {
		sources[key] = rec
	}
	sources[a.source] = &sourceRecord{
		source:         a.source,
		lastChecked:    a.receivedAt,
		permanentError: &SourceError{Code: a.code, Message: a.message},
	}
	next := st
	next.sources = sources
	next.inFlight = without(st.inFlight, a.source)
	return next
}

// applyDelete removes the item and clears every source record; the engine
// cannot cheaply determine which lists were affected.
func applyDelete(st cacheState, a action) cacheState {
	items := cloneItems(st.items)
	delete(items, a.itemID)

	// The delete source carries a reason query; strip it so the item's
	// canonical path and event path release their in-flight slots too.
	base, _, _ := strings.Cut(a.source, "?")
	inFlight := without(st.inFlight, a.source)
	delete(inFlight, base)
	delete(inFlight, strings.TrimSuffix(base, "/")+"/events")

	next := st
	next.items = items
	next.sources = map[string]*sourceRecord{}
	next.inFlight = inFlight
	next.refreshListsBefore = st.refreshListsBefore + 1
	return next
}

func itemIDs(items []*Item) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID()
	}
	return ids
}

func cloneItems(items map[string]*Item) map[string]*Item {
	out := make(map[string]*Item, len(items))
	for k, v := range items {
		out[k] = v
	}
	return out
}

func cloneEvents(events map[string][]json.RawMessage) map[string][]json.RawMessage {
	out := make(map[string][]json.RawMessage, len(events))
	for k, v := range events {
		out[k] = v
	}
	return out
}

func without(set map[string]bool, key string) map[string]bool {
	out := make(map[string]bool, len(set))
	for k := range set {
		if k != key {
			out[k] = true
		}
	}
	return out
}
