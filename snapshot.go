package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// snapshotVersion guards the persisted wire shape; a loaded snapshot with
// a different version is discarded rather than misread.
const snapshotVersion = 1

type snapshotItem struct {
	ItemName    string         `json:"itemName"`
	Props       map[string]any `json:"props"`
	LastChecked int64          `json:"lastChecked,omitempty"`
}

type snapshotSource struct {
	LastChecked    int64        `json:"lastChecked"`
	RefList        []string     `json:"refList,omitempty"`
	PermanentError *SourceError `json:"permanentError,omitempty"`
}

type snapshotEnvelope struct {
	Version            int                          `json:"version"`
	SavedAt            int64                        `json:"savedAt"`
	Items              map[string]snapshotItem      `json:"items"`
	Sources            map[string]snapshotSource    `json:"sources"`
	Events             map[string][]json.RawMessage `json:"events,omitempty"`
	RefreshListsBefore int64                        `json:"refreshListsBefore"`
}

// SaveSnapshot persists the current cache state to the configured snapshot
// store, so a later process can warm-start via LoadSnapshot. In-flight
// bookkeeping is deliberately not persisted.
func (c *Client) SaveSnapshot(ctx context.Context) error {
	if c.cfg.Snapshot == nil {
		return configErrorf("no snapshot store configured; set Config.Snapshot")
	}
	env := snapshotEnvelope{
		Version: snapshotVersion,
		SavedAt: c.cfg.Clock().UnixMilli(),
		Items:   map[string]snapshotItem{},
		Sources: map[string]snapshotSource{},
	}
	c.store.view(func(st *cacheState) {
		for id, item := range st.items {
			env.Items[id] = snapshotItem{
				ItemName:    item.Schema().ItemName(),
				Props:       item.ForAPI().Export(),
				LastChecked: item.LastChecked().UnixMilli(),
			}
		}
		for key, rec := range st.sources {
			env.Sources[key] = snapshotSource{
				LastChecked:    rec.lastChecked.UnixMilli(),
				RefList:        rec.refList,
				PermanentError: rec.permanentError,
			}
		}
		if len(st.events) > 0 {
			env.Events = st.events
		}
		env.RefreshListsBefore = st.refreshListsBefore
	})
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("resource: encoding snapshot: %w", err)
	}
	if err := c.cfg.Snapshot.Set(ctx, c.cfg.SnapshotKey, data, c.cfg.SnapshotTTL); err != nil {
		return fmt.Errorf("resource: persisting snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot replaces the cache state with the persisted snapshot, if
// one exists. It reports whether a snapshot was loaded; an absent or
// version-mismatched snapshot is not an error. Items whose resource is no
// longer registered are skipped.
func (c *Client) LoadSnapshot(ctx context.Context) (bool, error) {
	if c.cfg.Snapshot == nil {
		return false, configErrorf("no snapshot store configured; set Config.Snapshot")
	}
	data, found, err := c.cfg.Snapshot.Get(ctx, c.cfg.SnapshotKey)
	if err != nil {
		return false, fmt.Errorf("resource: reading snapshot: %w", err)
	}
	if !found {
		return false, nil
	}
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false, fmt.Errorf("resource: decoding snapshot: %w", err)
	}
	if env.Version != snapshotVersion {
		return false, nil
	}

	st := initialState()
	for id, snap := range env.Items {
		conf, ok := c.registry.confByItemName(snap.ItemName)
		if !ok {
			continue
		}
		item, err := NewItem(conf.Schema, snap.Props, ItemCheckedAt(time.UnixMilli(snap.LastChecked)))
		if err != nil {
			return false, fmt.Errorf("resource: remodeling snapshot item %s: %w", id, err)
		}
		st.items[id] = item
	}
	for key, snap := range env.Sources {
		st.sources[key] = &sourceRecord{
			source:         key,
			lastChecked:    time.UnixMilli(snap.LastChecked),
			refList:        snap.RefList,
			permanentError: snap.PermanentError,
		}
	}
	for id, events := range env.Events {
		st.events[id] = events
	}
	st.refreshListsBefore = env.RefreshListsBefore
	c.store.restore(st)
	return true, nil
}
