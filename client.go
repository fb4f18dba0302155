package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is the request facade: create, retrieve, update, and delete
// resource items against a REST API, backed by a local cache that callers
// never have to think about. Every operation returns a Result and never an
// error; failure conditions surface through the Result's ErrorMessage and
// Code fields.
type Client struct {
	cfg      Config
	registry *Registry
	store    *StateStore
	cache    *Cache
	engine   *engine
}

// New builds a client from the given configuration.
func New(cfg Config, opts ...ClientOption) (*Client, error) {
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	cfg = cfg.withDefaults()
	if cfg.Registry == nil {
		return nil, configErrorf("client requires a Registry; build one with resource.NewRegistry")
	}
	store := NewStateStore()
	cache := newCache(store, cfg.Clock, cfg.FreshFor)
	return &Client{
		cfg:      cfg,
		registry: cfg.Registry,
		store:    store,
		cache:    cache,
		engine:   newEngine(store, cfg.Transport, cache, cfg.Clock, cfg.TokenSource, cfg.ErrorHandler, cfg.Production),
	}, nil
}

// MustNew is New for startup wiring; it panics on a malformed
// configuration.
func MustNew(cfg Config, opts ...ClientOption) *Client {
	c, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Cache exposes read access to the client's local state.
func (c *Client) Cache() *Cache { return c.cache }

// Registry returns the resource configuration the client was built with.
func (c *Client) Registry() *Registry { return c.registry }

// Subscribe registers a listener invoked after every cache state change.
func (c *Client) Subscribe(fn func()) (cancel func()) {
	return c.store.Subscribe(fn)
}

// Reset drops all cached state, e.g. on logout.
func (c *Client) Reset() { c.store.Reset() }

// FetchItem retrieves a single item, from cache when fresh and complete,
// otherwise from the API.
func (c *Client) FetchItem(ctx context.Context, resourceName, id string) Result {
	return c.fetchItemBySource(ctx, "FetchItem", resourceName, ItemPath(resourceName, id), false)
}

// ForceFetchItem retrieves a single item from the API, bypassing both the
// freshness check and any cached permanent error.
func (c *Client) ForceFetchItem(ctx context.Context, resourceName, id string) Result {
	return c.fetchItemBySource(ctx, "ForceFetchItem", resourceName, ItemPath(resourceName, id), true)
}

// FetchItemBySource retrieves a single item addressed by an explicit
// source path, such as "/users/self/".
func (c *Client) FetchItemBySource(ctx context.Context, resourceName, source string) Result {
	return c.fetchItemBySource(ctx, "FetchItemBySource", resourceName, source, false)
}

// ForceFetchItemBySource is FetchItemBySource bypassing the cache.
func (c *Client) ForceFetchItemBySource(ctx context.Context, resourceName, source string) Result {
	return c.fetchItemBySource(ctx, "ForceFetchItemBySource", resourceName, source, true)
}

func (c *Client) fetchItemBySource(ctx context.Context, op, resourceName, source string, forced bool) Result {
	start := time.Now()
	conf, ok := c.registry.Conf(resourceName)
	if !ok {
		return c.observe(ctx, op, source, false, start, c.unknownResource(source, resourceName))
	}
	if !forced {
		if data := c.cache.FreshSourceData(source); data.PermanentError != nil {
			return c.observe(ctx, op, source, true, start, c.permanentFailure(source, data.PermanentError))
		}
		// Cache hits are keyed by item id, so only paths that address an
		// item by id can be served locally.
		if _, id, isItem := ExtractItem(source); isItem {
			if item := c.cache.FreshCompleteItem(id); item != nil {
				res := c.cachedResult(source)
				res.Data = item
				return c.observe(ctx, op, source, true, start, res)
			}
		}
	}
	res := c.engine.execute(ctx, apiRequest{
		source:        source,
		method:        http.MethodGet,
		kind:          kindItem,
		conf:          conf,
		forced:        forced,
		tokenRequired: conf.RequireAuth,
	})
	return c.observe(ctx, op, source, false, start, res)
}

// FetchList retrieves the resource's global list, from cache when fresh,
// otherwise from the API.
func (c *Client) FetchList(ctx context.Context, resourceName string) Result {
	return c.fetchList(ctx, "FetchList", resourceName, ListPath(resourceName), false)
}

// ForceFetchList retrieves the resource's global list from the API.
func (c *Client) ForceFetchList(ctx context.Context, resourceName string) Result {
	return c.fetchList(ctx, "ForceFetchList", resourceName, ListPath(resourceName), true)
}

// FetchListBySource retrieves a list addressed by an explicit source path,
// such as a context list "/workspaces/<id>/projects".
func (c *Client) FetchListBySource(ctx context.Context, resourceName, source string) Result {
	return c.fetchList(ctx, "FetchListBySource", resourceName, source, false)
}

// ForceFetchListBySource is FetchListBySource bypassing the cache.
func (c *Client) ForceFetchListBySource(ctx context.Context, resourceName, source string) Result {
	return c.fetchList(ctx, "ForceFetchListBySource", resourceName, source, true)
}

func (c *Client) fetchList(ctx context.Context, op, resourceName, source string, forced bool) Result {
	start := time.Now()
	conf, ok := c.registry.Conf(resourceName)
	if !ok {
		return c.observe(ctx, op, source, false, start, c.unknownResource(source, resourceName))
	}
	if !forced {
		data := c.cache.FreshSourceData(source)
		if data.PermanentError != nil {
			return c.observe(ctx, op, source, true, start, c.permanentFailure(source, data.PermanentError))
		}
		if data.Known() {
			res := c.cachedResult(source)
			res.List = data.Items
			return c.observe(ctx, op, source, true, start, res)
		}
	}
	res := c.engine.execute(ctx, apiRequest{
		source:        source,
		method:        http.MethodGet,
		kind:          kindList,
		conf:          conf,
		forced:        forced,
		tokenRequired: conf.RequireAuth,
	})
	return c.observe(ctx, op, source, false, start, res)
}

// FetchSingleFromList retrieves a list expected to hold exactly one item
// and resolves with that item; zero or multiple results are failures.
// Useful for constrained queries like "/users?email=...".
func (c *Client) FetchSingleFromList(ctx context.Context, resourceName, source string) Result {
	return c.fetchSingle(ctx, "FetchSingleFromList", resourceName, source, false)
}

// ForceFetchSingleFromList is FetchSingleFromList bypassing the cache.
func (c *Client) ForceFetchSingleFromList(ctx context.Context, resourceName, source string) Result {
	return c.fetchSingle(ctx, "ForceFetchSingleFromList", resourceName, source, true)
}

func (c *Client) fetchSingle(ctx context.Context, op, resourceName, source string, forced bool) Result {
	start := time.Now()
	conf, ok := c.registry.Conf(resourceName)
	if !ok {
		return c.observe(ctx, op, source, false, start, c.unknownResource(source, resourceName))
	}
	if !forced {
		if data := c.cache.FreshSourceData(source); data.PermanentError != nil {
			return c.observe(ctx, op, source, true, start, c.permanentFailure(source, data.PermanentError))
		}
	}
	res := c.engine.execute(ctx, apiRequest{
		source:        source,
		method:        http.MethodGet,
		kind:          kindItem,
		conf:          conf,
		forced:        forced,
		tokenRequired: conf.RequireAuth,
	})
	return c.observe(ctx, op, source, false, start, res)
}

// CreateItem posts a new item to the resource's collection. The resolved
// Result carries the created item as returned by the server, canonical ids
// included.
func (c *Client) CreateItem(ctx context.Context, item *Item) Result {
	start := time.Now()
	conf, ok := c.registry.ConfForItem(item)
	if !ok {
		return c.unknownItemConf(item)
	}
	source := ListPath(conf.ResourceName)
	body := item.ForAPI().Export()
	if conf.PrepareCreate != nil {
		body = conf.PrepareCreate(body)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return c.encodeFailure(source, err)
	}
	res := c.engine.execute(ctx, apiRequest{
		source:        source,
		method:        http.MethodPost,
		body:          payload,
		contentType:   "application/json",
		kind:          kindWrite,
		conf:          conf,
		itemID:        item.ID(),
		tokenRequired: conf.RequireAuth,
	})
	return c.observe(ctx, "CreateItem", source, false, start, res)
}

// UpdateItem puts the item's current state to its canonical path.
func (c *Client) UpdateItem(ctx context.Context, item *Item) Result {
	start := time.Now()
	conf, ok := c.registry.ConfForItem(item)
	if !ok {
		return c.unknownItemConf(item)
	}
	source := ItemPath(conf.ResourceName, item.ID())
	payload, err := json.Marshal(item.ForAPI().Export())
	if err != nil {
		return c.encodeFailure(source, err)
	}
	res := c.engine.execute(ctx, apiRequest{
		source:        source,
		method:        http.MethodPut,
		body:          payload,
		contentType:   "application/json",
		kind:          kindWrite,
		conf:          conf,
		itemID:        item.ID(),
		tokenRequired: conf.RequireAuth,
	})
	return c.observe(ctx, "UpdateItem", source, false, start, res)
}

// DeleteItem removes an item, recording the human-facing reason as a query
// parameter. The API rejects DELETE bodies, hence the query.
func (c *Client) DeleteItem(ctx context.Context, resourceName, id, reason string) Result {
	start := time.Now()
	conf, ok := c.registry.Conf(resourceName)
	if !ok {
		return c.unknownResource(ItemPath(resourceName, id), resourceName)
	}
	source := ItemPath(conf.ResourceName, id) + "?reason=" + escapeQuery(reason)
	res := c.engine.execute(ctx, apiRequest{
		source:        source,
		method:        http.MethodDelete,
		kind:          kindDelete,
		conf:          conf,
		itemID:        id,
		tokenRequired: conf.RequireAuth,
		successMsg:    fmt.Sprintf("Deleted %s.", conf.ItemName),
	})
	return c.observe(ctx, "DeleteItem", source, false, start, res)
}

// FetchItemEvents retrieves an item's event list. Event fetches are always
// forced: the event stream has no freshness story, so the server is asked
// every time.
func (c *Client) FetchItemEvents(ctx context.Context, resourceName, id string) Result {
	start := time.Now()
	conf, ok := c.registry.Conf(resourceName)
	if !ok {
		return c.unknownResource(EventsPath(resourceName, id), resourceName)
	}
	source := EventsPath(conf.ResourceName, id)
	res := c.engine.execute(ctx, apiRequest{
		source:        source,
		method:        http.MethodGet,
		kind:          kindEvents,
		conf:          conf,
		itemID:        id,
		forced:        true,
		tokenRequired: conf.RequireAuth,
	})
	return c.observe(ctx, "FetchItemEvents", source, false, start, res)
}

// AddItemEvent posts an event onto an item's event stream. The owning item
// is evicted from cache on success, since server-side event processing may
// have changed it.
func (c *Client) AddItemEvent(ctx context.Context, resourceName, id string, event map[string]any) Result {
	start := time.Now()
	conf, ok := c.registry.Conf(resourceName)
	if !ok {
		return c.unknownResource(EventsPath(resourceName, id), resourceName)
	}
	source := EventsPath(conf.ResourceName, id)
	payload, err := json.Marshal(event)
	if err != nil {
		return c.encodeFailure(source, err)
	}
	res := c.engine.execute(ctx, apiRequest{
		source:        source,
		method:        http.MethodPost,
		body:          payload,
		contentType:   "application/json",
		kind:          kindAddEvent,
		conf:          conf,
		itemID:        id,
		tokenRequired: conf.RequireAuth,
	})
	return c.observe(ctx, "AddItemEvent", source, false, start, res)
}

// UpdateLocalItem replaces the cached item without any API interaction.
// For app-level bookkeeping where the server is already up to date, such
// as applying a push notification.
func (c *Client) UpdateLocalItem(item *Item) {
	c.store.Dispatch(action{typ: actionUpdateLocal, item: item})
}

func (c *Client) observe(ctx context.Context, op, source string, cached bool, start time.Time, res Result) Result {
	if c.cfg.Observer != nil {
		c.cfg.Observer.OnResourceOp(ctx, op, source, cached, res.Code, time.Since(start))
	}
	return res
}

func (c *Client) cachedResult(source string) Result {
	return Result{Source: source, ReceivedAt: c.cfg.Clock().UnixMilli()}
}

func (c *Client) permanentFailure(source string, perr *SourceError) Result {
	c.cfg.ErrorHandler(fmt.Sprintf("%s (%s)", perr.Message, source))
	return Result{
		ErrorMessage: perr.Message,
		Code:         perr.Code,
		Source:       source,
		ReceivedAt:   c.cfg.Clock().UnixMilli(),
	}
}

func (c *Client) unknownResource(source, resourceName string) Result {
	msg := fmt.Sprintf("No resource configured under %q.", resourceName)
	c.cfg.ErrorHandler(msg)
	return Result{
		ErrorMessage: msg,
		Code:         internalFailureCode,
		Source:       source,
		ReceivedAt:   c.cfg.Clock().UnixMilli(),
	}
}

func (c *Client) unknownItemConf(item *Item) Result {
	msg := fmt.Sprintf("No resource configured for %q items.", item.Schema().ItemName())
	c.cfg.ErrorHandler(msg)
	return Result{
		ErrorMessage: msg,
		Code:         internalFailureCode,
		ReceivedAt:   c.cfg.Clock().UnixMilli(),
	}
}

func (c *Client) encodeFailure(source string, err error) Result {
	return Result{
		ErrorMessage: "Could not encode request payload: " + err.Error(),
		Code:         internalFailureCode,
		Source:       source,
		ReceivedAt:   c.cfg.Clock().UnixMilli(),
	}
}
