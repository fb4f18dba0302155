package resource

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// SortOption names a list ordering and its comparator.
type SortOption struct {
	Name string
	Less func(a, b *Item) bool
}

// Conf configures one resource type so the generic engine knows how to
// model, sort, and address its items.
type Conf struct {
	// ItemName is the singular item name, e.g. "user".
	ItemName string
	// ResourceName is the plural path segment, e.g. "users". Defaults to
	// ItemName + "s".
	ResourceName string
	// Schema models the resource's items. Required.
	Schema *Schema
	// BaseURL prefixes every fetch path for this resource, e.g. "/api".
	BaseURL string

	SortOptions []SortOption
	SortDefault string

	// PayloadSchema optionally holds a JSON Schema source; when set, raw
	// item payloads are validated against it before modeling.
	PayloadSchema string

	// RequireAuth makes every request for this resource fail locally when
	// no bearer token is available. By default the token is attached when
	// present and omitted otherwise.
	RequireAuth bool

	// NewItem builds an empty not-yet-created item. The default models an
	// empty property set; override to seed context-dependent values.
	NewItem func() (*Item, error)
	// PrepareCreate optionally wraps the outgoing create payload when the
	// API call needs data beyond the item itself.
	PrepareCreate func(body map[string]any) map[string]any

	sortMap   map[string]func(a, b *Item) bool
	validator *gojsonschema.Schema
}

// Registry is the process-wide, read-only configuration mapping resource
// names to their Conf. Build it once at startup; a malformed registry is a
// ConfigError. Registries are not safe to mutate after construction, which
// is why none of the accessors expose the underlying map.
type Registry struct {
	confs map[string]*Conf
}

// NewRegistry validates and finalizes the given resource configurations.
func NewRegistry(confs ...*Conf) (*Registry, error) {
	if len(confs) == 0 {
		return nil, configErrorf("registry requires at least one resource conf; " +
			"build one with resource.Conf{ItemName: ..., Schema: ...}")
	}
	r := &Registry{confs: make(map[string]*Conf, len(confs))}
	for _, conf := range confs {
		if conf == nil {
			return nil, configErrorf("registry given a nil resource conf")
		}
		if conf.ItemName == "" {
			return nil, configErrorf("resource conf requires an item name")
		}
		if conf.Schema == nil {
			return nil, configErrorf("resource conf %q requires a schema", conf.ItemName)
		}
		c := *conf
		if c.ResourceName == "" {
			c.ResourceName = c.ItemName + "s"
		}
		if _, dup := r.confs[c.ResourceName]; dup {
			return nil, configErrorf("resource %q configured twice", c.ResourceName)
		}
		c.sortMap = make(map[string]func(a, b *Item) bool, len(c.SortOptions))
		for _, opt := range c.SortOptions {
			if opt.Name == "" || opt.Less == nil {
				return nil, configErrorf("resource %q has a malformed sort option", c.ResourceName)
			}
			c.sortMap[opt.Name] = opt.Less
		}
		if c.SortDefault != "" {
			if _, ok := c.sortMap[c.SortDefault]; !ok {
				return nil, configErrorf("resource %q defaults to unknown sort %q", c.ResourceName, c.SortDefault)
			}
		}
		if c.PayloadSchema != "" {
			validator, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(c.PayloadSchema))
			if err != nil {
				return nil, configErrorf("resource %q payload schema: %v", c.ResourceName, err)
			}
			c.validator = validator
		}
		if c.NewItem == nil {
			schema := c.Schema
			c.NewItem = func() (*Item, error) { return NewItem(schema, nil) }
		}
		r.confs[c.ResourceName] = &c
	}
	return r, nil
}

// MustRegistry is NewRegistry for startup wiring; it panics on a malformed
// configuration.
func MustRegistry(confs ...*Conf) *Registry {
	r, err := NewRegistry(confs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Conf looks up the configuration for a resource name.
func (r *Registry) Conf(resourceName string) (*Conf, bool) {
	c, ok := r.confs[resourceName]
	return c, ok
}

// ConfForItem resolves the configuration governing an item, matched by the
// item's schema identity first and its item name second.
func (r *Registry) ConfForItem(item *Item) (*Conf, bool) {
	for _, c := range r.confs {
		if c.Schema == item.Schema() {
			return c, true
		}
	}
	for _, c := range r.confs {
		if c.Schema.ItemName() == item.Schema().ItemName() {
			return c, true
		}
	}
	return nil, false
}

// confByItemName resolves a configuration from a singular item name, as
// recorded in persisted state.
func (r *Registry) confByItemName(itemName string) (*Conf, bool) {
	for _, c := range r.confs {
		if c.ItemName == itemName {
			return c, true
		}
	}
	return nil, false
}

// Resources lists the configured resource names, sorted.
func (r *Registry) Resources() []string {
	names := make([]string, 0, len(r.confs))
	for name := range r.confs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortItems returns a sorted copy of items using the named sort option, or
// the resource's default when name is "". Unknown names leave the order
// unchanged.
func (c *Conf) SortItems(items []*Item, name string) []*Item {
	out := make([]*Item, len(items))
	copy(out, items)
	if name == "" {
		name = c.SortDefault
	}
	less, ok := c.sortMap[name]
	if !ok {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// validatePayload checks a raw item payload against the optional JSON
// schema. A nil error means the payload may be modeled.
func (c *Conf) validatePayload(raw map[string]any) error {
	if c.validator == nil {
		return nil
	}
	result, err := c.validator.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return err
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("payload invalid: %s", errs[0].String())
		}
		return fmt.Errorf("payload invalid")
	}
	return nil
}
