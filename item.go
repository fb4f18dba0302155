package resource

import (
	"encoding/json"
	"time"
)

// emptyMode selects how absent-or-empty values are represented. The UI side
// of the house wants "" so display code never sees transport nulls; the API
// side wants null so the server never receives fake empty strings.
type emptyMode int

const (
	emptyForUI emptyMode = iota
	emptyForAPI
)

// Item is an immutable modeled resource record. Items are built from raw
// property data against a Schema; "updates" always produce a new Item.
//
// An item tracks which required properties were absent in its input (the
// item is then incomplete, typical for summary rows in list results) and
// which nested item ids it embeds (used for invalidation propagation).
type Item struct {
	schema      *Schema
	values      map[string]any
	missing     []string
	references  []string
	mode        emptyMode
	isNew       bool
	lastChecked time.Time
}

// ItemOption adjusts item construction.
type ItemOption func(*itemOpts)

type itemOpts struct {
	mode        emptyMode
	lastChecked time.Time
}

// ItemCheckedAt records when the item's data was obtained from the server.
// The synchronization engine stamps fetched items with the response time;
// the zero default is the wall clock at construction.
func ItemCheckedAt(t time.Time) ItemOption {
	return func(o *itemOpts) { o.lastChecked = t }
}

func itemMode(m emptyMode) ItemOption {
	return func(o *itemOpts) { o.mode = m }
}

// NewItem models raw property data. Absent required properties are recorded
// as missing rather than failing; type mismatches (a non-array value for an
// array property) are ValidationErrors.
func NewItem(s *Schema, props map[string]any, opts ...ItemOption) (*Item, error) {
	o := itemOpts{mode: emptyForUI, lastChecked: time.Now()}
	for _, opt := range opts {
		opt(&o)
	}
	return buildItem(s, props, o)
}

func buildItem(s *Schema, props map[string]any, o itemOpts) (*Item, error) {
	if s == nil {
		return nil, &ValidationError{Resource: "?", Reason: "item requires a finalized schema"}
	}
	isNew := s.IsNew(props)
	it := &Item{
		schema:      s,
		values:      make(map[string]any, len(s.props)),
		mode:        o.mode,
		isNew:       isNew,
		lastChecked: o.lastChecked,
	}

	for _, p := range s.props {
		propVal, present := props[p.Name]
		// JSON null arrives as a present nil; treat it as an explicit empty
		// value, distinct from a missing property.
		switch {
		case !present && isNew && (!p.Optional || p.Default != nil):
			if p.Default != nil {
				it.values[p.Name] = p.Default
			} else {
				it.values[p.Name] = it.emptyValue(p)
			}
		case !present && !p.Optional && !isNew:
			it.missing = append(it.missing, p.Name)
		case isNew && p.UnsetForNew:
			it.values[p.Name] = it.emptyValue(p)
		case present:
			val, err := it.modelValue(p, propVal, o)
			if err != nil {
				return nil, err
			}
			it.values[p.Name] = val
		case isNew:
			it.values[p.Name] = it.emptyValue(p)
			// absent optional properties on existing items stay unset
		}
	}
	return it, nil
}

func (it *Item) emptyValue(p PropSpec) any {
	if p.Kind == KindArray {
		if p.Nested != nil {
			return []*Item{}
		}
		return []any{}
	}
	if it.mode == emptyForAPI {
		return nil
	}
	return ""
}

func (it *Item) modelValue(p PropSpec, propVal any, o itemOpts) (any, error) {
	if p.Nested != nil {
		if p.Kind == KindArray {
			raws, ok := asSlice(propVal)
			if !ok {
				return nil, it.arrayError(p)
			}
			vals := make([]*Item, 0, len(raws))
			for _, raw := range raws {
				nested, err := it.modelNested(p, raw, o)
				if err != nil {
					return nil, err
				}
				vals = append(vals, nested)
				if id := nested.ID(); id != "" {
					it.references = append(it.references, id)
				}
			}
			return vals, nil
		}
		if isEmptyScalar(propVal) {
			return it.emptyValue(p), nil
		}
		nested, err := it.modelNested(p, propVal, o)
		if err != nil {
			return nil, err
		}
		if id := nested.ID(); id != "" {
			it.references = append(it.references, id)
		}
		return nested, nil
	}

	if p.Kind == KindArray {
		raws, ok := asSlice(propVal)
		if !ok {
			return nil, it.arrayError(p)
		}
		vals := make([]any, len(raws))
		copy(vals, raws)
		return vals, nil
	}
	if isEmptyScalar(propVal) {
		return it.emptyValue(p), nil
	}
	return propVal, nil
}

func (it *Item) modelNested(p PropSpec, raw any, o itemOpts) (*Item, error) {
	switch v := raw.(type) {
	case *Item:
		return buildItem(p.Nested, v.exportProps(), itemOpts{mode: o.mode, lastChecked: v.lastChecked})
	case map[string]any:
		return buildItem(p.Nested, v, o)
	default:
		return nil, &ValidationError{
			Resource: it.schema.itemName,
			Prop:     p.Name,
			Reason:   "expected object value for nested property",
		}
	}
}

func (it *Item) arrayError(p PropSpec) error {
	return &ValidationError{
		Resource: it.schema.itemName,
		Prop:     p.Name,
		Reason:   "expected array value",
	}
}

// Schema reports the property model the item was built with.
func (it *Item) Schema() *Schema { return it.schema }

// ID returns the server-assigned identifier, or "" for new items.
func (it *Item) ID() string {
	id, _ := it.values[idProp].(string)
	return id
}

// LastUpdated returns the logical timestamp used for conflict resolution;
// newer always wins. Zero when unset.
func (it *Item) LastUpdated() int64 {
	return asInt64(it.values[lastUpdatedProp])
}

// LastChecked reports when the item's data was last confirmed against the
// server.
func (it *Item) LastChecked() time.Time { return it.lastChecked }

// IsNew reports whether the item has not yet been created server-side.
func (it *Item) IsNew() bool { return it.isNew }

// Get returns the value of a property and whether it is set. Unset means
// either missing (incomplete data) or an absent optional property.
func (it *Item) Get(name string) (any, bool) {
	v, ok := it.values[name]
	return v, ok
}

// IsComplete reports whether every required property was present.
func (it *Item) IsComplete() bool { return len(it.missing) == 0 }

// Missing lists required properties absent from the item's input.
func (it *Item) Missing() []string {
	out := make([]string, len(it.missing))
	copy(out, it.missing)
	return out
}

// References lists ids of nested items embedded within this item.
func (it *Item) References() []string {
	out := make([]string, len(it.references))
	copy(out, it.references)
	return out
}

// ForAPI returns a copy with empty values represented as null, suitable for
// serialization to the server.
func (it *Item) ForAPI() *Item { return it.rebuild(emptyForAPI) }

// ForUI returns a copy with empty values represented as "", suitable for
// display code.
func (it *Item) ForUI() *Item { return it.rebuild(emptyForUI) }

func (it *Item) rebuild(mode emptyMode) *Item {
	rebuilt, err := buildItem(it.schema, it.exportProps(), itemOpts{mode: mode, lastChecked: it.lastChecked})
	if err != nil {
		// exportProps only emits shapes buildItem accepts
		panic(err)
	}
	return rebuilt
}

// exportProps converts the item back to raw-ish props. Nested items remain
// *Item values, which buildItem re-models under the requested empty mode.
func (it *Item) exportProps() map[string]any {
	props := make(map[string]any, len(it.values))
	for name, val := range it.values {
		props[name] = val
	}
	return props
}

// Export returns the item's data as plain maps and slices, nested items
// included. Missing properties are omitted.
func (it *Item) Export() map[string]any {
	out := make(map[string]any, len(it.values))
	for _, p := range it.schema.props {
		val, ok := it.values[p.Name]
		if !ok {
			continue
		}
		switch v := val.(type) {
		case *Item:
			out[p.Name] = v.Export()
		case []*Item:
			vals := make([]any, len(v))
			for i, nested := range v {
				vals[i] = nested.Export()
			}
			out[p.Name] = vals
		case []any:
			vals := make([]any, len(v))
			copy(vals, v)
			out[p.Name] = vals
		default:
			out[p.Name] = val
		}
	}
	return out
}

// MarshalJSON serializes set properties, nested items included. Empty
// values serialize as their current-mode representation, so marshal the
// result of ForAPI when talking to the server.
func (it *Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(it.Export())
}

// Update returns a new Item with the given property changes merged over the
// current values. Updating a non-writable property of an existing item is a
// ValidationError; unknown keys are dropped. Fragile properties are reset
// to empty when any of their trigger properties changes.
func (it *Item) Update(updates map[string]any) (*Item, error) {
	if len(updates) == 0 {
		return it, nil
	}
	merged := make(map[string]any, len(updates))
	for k, v := range updates {
		merged[k] = v
	}

	for key := range merged {
		p, known := it.schema.Prop(key)
		if !known {
			delete(merged, key)
			continue
		}
		if !it.isNew && !p.Writable {
			return nil, &ValidationError{
				Resource: it.schema.itemName,
				Prop:     key,
				Reason:   "property is not writable",
			}
		}
	}

	// Fragile resets happen after the writable check: they are a modeling
	// consequence, not a caller-requested write.
	for _, p := range it.schema.props {
		if len(p.Fragile) == 0 {
			continue
		}
		for _, trigger := range p.Fragile {
			if v, ok := merged[trigger]; ok && !isEmptyScalar(v) {
				merged[p.Name] = nil
				break
			}
		}
	}

	props := it.exportProps()
	for k, v := range merged {
		props[k] = v
	}
	return buildItem(it.schema, props, itemOpts{mode: it.mode, lastChecked: it.lastChecked})
}

func isEmptyScalar(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func asSlice(v any) ([]any, bool) {
	switch vals := v.(type) {
	case nil:
		return []any{}, true
	case []any:
		return vals, true
	case []*Item:
		out := make([]any, len(vals))
		for i, item := range vals {
			out[i] = item
		}
		return out, true
	case []string:
		out := make([]any, len(vals))
		for i, s := range vals {
			out[i] = s
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(vals))
		for i, m := range vals {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
