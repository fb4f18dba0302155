package resource

// Kind describes the shape of a single item property.
type Kind string

const (
	// KindScalar holds one JSON scalar (string, number, or bool).
	KindScalar Kind = "scalar"
	// KindArray holds a slice of scalars, or of nested items when the
	// property also names a nested schema.
	KindArray Kind = "array"
)

// PropSpec declares one property of a resource item.
//
// A property with a Nested schema holds an embedded item (or, with
// KindArray, a slice of embedded items); the ids of embedded items are
// tracked as references for cache invalidation.
type PropSpec struct {
	Name string
	Kind Kind

	// Nested names the schema used to model embedded item values.
	Nested *Schema

	// Optional marks a property that is not required for an item to be
	// considered complete. Typically calculated or informational data.
	Optional bool

	// Writable properties may be changed through Item.Update on items that
	// already exist server-side. New items accept updates to any property.
	Writable bool

	// UnsetForNew forces the property to its empty value when constructing
	// a new (not yet created) item, regardless of input.
	UnsetForNew bool

	// Fragile lists properties whose change invalidates this one: an update
	// touching any of them resets this property to empty, since the client
	// cannot re-derive it.
	Fragile []string

	// Default is applied when constructing a new item without a value.
	Default any
}

// Schema is an ordered, immutable property model for one resource type.
// Build it once with NewSchema (typically a package-level MustSchema) and
// share it through the Registry.
type Schema struct {
	itemName string
	props    []PropSpec
	byName   map[string]int
	isNew    func(props map[string]any) bool
}

// SchemaOption adjusts schema construction.
type SchemaOption func(*Schema)

// WithIsNew overrides the test used to decide whether raw props describe a
// not-yet-created item. The default treats items without an "id" as new.
func WithIsNew(fn func(props map[string]any) bool) SchemaOption {
	return func(s *Schema) { s.isNew = fn }
}

// NewSchema validates and finalizes a property model.
func NewSchema(itemName string, props []PropSpec, opts ...SchemaOption) (*Schema, error) {
	if itemName == "" {
		return nil, configErrorf("schema requires an item name")
	}
	if len(props) == 0 {
		return nil, configErrorf("schema %q declares no properties", itemName)
	}
	s := &Schema{
		itemName: itemName,
		props:    make([]PropSpec, len(props)),
		byName:   make(map[string]int, len(props)),
	}
	copy(s.props, props)
	for i, p := range s.props {
		if p.Name == "" {
			return nil, configErrorf("schema %q has an unnamed property at index %d", itemName, i)
		}
		if _, dup := s.byName[p.Name]; dup {
			return nil, configErrorf("schema %q declares property %q twice", itemName, p.Name)
		}
		if p.Kind == "" {
			s.props[i].Kind = KindScalar
		} else if p.Kind != KindScalar && p.Kind != KindArray {
			return nil, configErrorf("schema %q property %q has unknown kind %q", itemName, p.Name, p.Kind)
		}
		s.byName[p.Name] = i
	}
	for _, p := range s.props {
		for _, trigger := range p.Fragile {
			if _, ok := s.byName[trigger]; !ok {
				return nil, configErrorf("schema %q property %q lists unknown fragile trigger %q", itemName, p.Name, trigger)
			}
		}
	}
	s.isNew = func(props map[string]any) bool {
		if props == nil {
			return true
		}
		id, _ := props[idProp].(string)
		return id == ""
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MustSchema is NewSchema for package-level declarations; it panics on a
// malformed model, which is a programming error.
func MustSchema(itemName string, props []PropSpec, opts ...SchemaOption) *Schema {
	s, err := NewSchema(itemName, props, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// ItemName reports the singular item name the schema was declared with.
func (s *Schema) ItemName() string { return s.itemName }

// Props returns a copy of the declared property model, in order.
func (s *Schema) Props() []PropSpec {
	out := make([]PropSpec, len(s.props))
	copy(out, s.props)
	return out
}

// Prop looks up a property declaration by name.
func (s *Schema) Prop(name string) (PropSpec, bool) {
	i, ok := s.byName[name]
	if !ok {
		return PropSpec{}, false
	}
	return s.props[i], true
}

// IsNew reports whether raw props describe a not-yet-created item.
func (s *Schema) IsNew(props map[string]any) bool { return s.isNew(props) }

const (
	idProp          = "id"
	lastUpdatedProp = "lastUpdated"
)

// BaseProps returns the property declarations shared by every directly
// addressable resource: a server-assigned id and the logical lastUpdated
// timestamp used for conflict resolution.
func BaseProps() []PropSpec {
	return []PropSpec{
		{Name: idProp, UnsetForNew: true},
		{Name: lastUpdatedProp, UnsetForNew: true},
	}
}
