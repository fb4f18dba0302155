package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// internalFailureCode reports failures that never reached the server:
// transport exceptions, malformed success payloads, context cancellation.
const internalFailureCode = 500

// apiEnvelope is the wire shape of every successful API response.
type apiEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// inflightCall lets concurrent requests for the same source share one
// round trip. The first caller closes done once result is set; joiners
// block on done and read result.
type inflightCall struct {
	done   chan struct{}
	result Result
}

// engine executes synchronization requests: preflight checks, transport
// round trip, payload modeling, state dispatch. One engine per client.
type engine struct {
	store        *StateStore
	transport    Transport
	cache        *Cache
	clock        func() time.Time
	token        func() string
	errorHandler func(msg string)
	production   bool

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

func newEngine(store *StateStore, transport Transport, cache *Cache, clock func() time.Time, token func() string, errorHandler func(string), production bool) *engine {
	return &engine{
		store:        store,
		transport:    transport,
		cache:        cache,
		clock:        clock,
		token:        token,
		errorHandler: errorHandler,
		production:   production,
		inflight:     map[string]*inflightCall{},
	}
}

// execute runs one request through the preflight gates and, if it passes,
// the transport. Failures never return an error; they return a Result
// carrying the failure code and message.
func (e *engine) execute(ctx context.Context, req apiRequest) Result {
	token := e.token()
	if req.tokenRequired && token == "" {
		msg := fmt.Sprintf("Request to %q requires authentication.", req.url())
		e.errorHandler(msg)
		// Not dispatched: nothing was marked in flight yet.
		return Result{
			ErrorMessage: msg,
			Code:         internalFailureCode,
			Source:       req.source,
			ReceivedAt:   e.clock().UnixMilli(),
		}
	}

	e.mu.Lock()
	if !req.skipsPermanentErrorCheck() {
		if perr := e.cache.PermanentError(req.source); perr != nil {
			e.mu.Unlock()
			e.errorHandler(fmt.Sprintf("%s (%s)", perr.Message, req.source))
			return Result{
				ErrorMessage: perr.Message,
				Code:         perr.Code,
				Source:       req.source,
				ReceivedAt:   e.clock().UnixMilli(),
			}
		}
	}
	if call := e.inflight[req.source]; call != nil && !req.skipsInFlightCheck() && !req.forced {
		e.mu.Unlock()
		select {
		case <-call.done:
			return call.result
		case <-ctx.Done():
			// The owning request stays in flight; leave its slot alone.
			return Result{
				ErrorMessage: ctx.Err().Error(),
				Code:         internalFailureCode,
				Source:       req.source,
				ReceivedAt:   e.clock().UnixMilli(),
			}
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	joinable := e.inflight[req.source] == nil
	if joinable {
		e.inflight[req.source] = call
	}
	e.store.Dispatch(action{typ: e.requestAction(req), source: req.source})
	e.mu.Unlock()

	result := e.roundTrip(ctx, req)

	e.mu.Lock()
	call.result = result
	close(call.done)
	if joinable {
		delete(e.inflight, req.source)
	}
	e.mu.Unlock()
	return result
}

func (e *engine) requestAction(req apiRequest) actionType {
	switch req.kind {
	case kindWrite, kindDelete, kindAddEvent:
		return actionWriteRequest
	}
	return actionFetchRequest
}

func (e *engine) roundTrip(ctx context.Context, req apiRequest) Result {
	mode := ModeCORS
	if e.production {
		mode = ModeSameOrigin
	}
	resp, err := e.transport.Do(ctx, TransportRequest{
		Method: req.method,
		URL:    req.url(),
		Header: req.header(e.token()),
		Body:   req.body,
		Mode:   mode,
	})
	if err != nil {
		return e.failure(req, internalFailureCode, err.Error(), e.clock())
	}
	if resp.ReceivedAt.IsZero() {
		resp.ReceivedAt = e.clock()
	}
	if !resp.OK {
		return e.failure(req, resp.Status, string(resp.Body), resp.ReceivedAt)
	}

	var envelope apiEnvelope
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &envelope); err != nil {
			return e.failure(req, internalFailureCode, "Malformed response: "+err.Error(), resp.ReceivedAt)
		}
	}
	return e.success(req, envelope, resp.ReceivedAt)
}

// failure records the outcome in cache state. Fetch failures become
// permanent source errors; mutation failures only release the in-flight
// slot, the caller may retry.
func (e *engine) failure(req apiRequest, code int, message string, receivedAt time.Time) Result {
	typ := actionFetchFailure
	switch req.kind {
	case kindWrite, kindDelete, kindAddEvent:
		typ = actionWriteFailure
	}
	e.store.Dispatch(action{
		typ:        typ,
		source:     req.source,
		code:       code,
		message:    message,
		receivedAt: receivedAt,
	})
	return Result{
		ErrorMessage: message,
		Code:         code,
		Source:       req.source,
		ReceivedAt:   receivedAt.UnixMilli(),
	}
}

// localFailure surfaces a failure that is not a server response: cache
// state is left untouched apart from releasing the in-flight slot.
func (e *engine) localFailure(req apiRequest, message string) Result {
	e.store.Dispatch(action{typ: actionWriteFailure, source: req.source})
	return Result{
		ErrorMessage: message,
		Code:         internalFailureCode,
		Source:       req.source,
		ReceivedAt:   e.clock().UnixMilli(),
	}
}

func (e *engine) success(req apiRequest, envelope apiEnvelope, receivedAt time.Time) Result {
	base := Result{
		Message:    envelope.Message,
		Source:     req.source,
		ReceivedAt: receivedAt.UnixMilli(),
	}

	switch req.kind {
	case kindList:
		items, err := e.modelList(req.conf, envelope.Data, receivedAt)
		if err != nil {
			return e.localFailure(req, err.Error())
		}
		e.store.Dispatch(action{
			typ:        actionFetchSuccess,
			source:     req.source,
			items:      items,
			receivedAt: receivedAt,
		})
		base.List = items
		return base

	case kindItem:
		item, err := e.modelSingle(req.conf, envelope.Data, receivedAt)
		if err != nil {
			return e.localFailure(req, err.Error())
		}
		if !item.IsComplete() {
			msg := fmt.Sprintf("Incomplete %s data returned: missing %v.",
				req.conf.ItemName, item.Missing())
			e.errorHandler(msg)
			return e.localFailure(req, msg)
		}
		e.store.Dispatch(action{
			typ:        actionFetchSuccess,
			source:     req.source,
			items:      []*Item{item},
			receivedAt: receivedAt,
		})
		base.Data = item
		return base

	case kindWrite:
		item, err := e.modelSingle(req.conf, envelope.Data, receivedAt)
		if err != nil {
			return e.localFailure(req, err.Error())
		}
		e.store.Dispatch(action{
			typ:        actionWriteSuccess,
			source:     req.source,
			item:       item,
			receivedAt: receivedAt,
		})
		base.Data = item
		return base

	case kindDelete:
		e.store.Dispatch(action{
			typ:        actionDeleteSuccess,
			source:     req.source,
			itemID:     req.itemID,
			receivedAt: receivedAt,
		})
		if base.Message == "" {
			base.Message = req.successMsg
		}
		return base

	case kindEvents:
		var events []json.RawMessage
		if len(envelope.Data) > 0 {
			if err := json.Unmarshal(envelope.Data, &events); err != nil {
				return e.localFailure(req, "Malformed event list: "+err.Error())
			}
		}
		e.store.Dispatch(action{
			typ:        actionEventsSuccess,
			source:     req.source,
			itemID:     req.itemID,
			events:     events,
			receivedAt: receivedAt,
		})
		base.Events = events
		return base

	case kindAddEvent:
		e.store.Dispatch(action{
			typ:        actionAddEvent,
			source:     req.source,
			itemID:     req.itemID,
			receivedAt: receivedAt,
		})
		if base.Message == "" {
			base.Message = req.successMsg
		}
		return base
	}
	return e.localFailure(req, fmt.Sprintf("unhandled request kind %d", req.kind))
}

// modelList decodes and models an array payload. An absent or null data
// field is a confirmed empty list, not an error.
func (e *engine) modelList(conf *Conf, data json.RawMessage, receivedAt time.Time) ([]*Item, error) {
	raws, err := decodeDataArray(data)
	if err != nil {
		return nil, err
	}
	items := make([]*Item, 0, len(raws))
	for _, raw := range raws {
		item, err := e.modelPayload(conf, raw, receivedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// modelSingle decodes a single-item payload. APIs addressed here return
// either a bare object or a one-element array; anything else is an error.
func (e *engine) modelSingle(conf *Conf, data json.RawMessage, receivedAt time.Time) (*Item, error) {
	raws, err := decodeDataArray(data)
	if err != nil {
		return nil, err
	}
	switch len(raws) {
	case 0:
		return nil, fmt.Errorf("No %s data returned.", conf.ItemName)
	case 1:
		return e.modelPayload(conf, raws[0], receivedAt)
	default:
		return nil, fmt.Errorf("Multiple %s items returned where one was expected.", conf.ItemName)
	}
}

func (e *engine) modelPayload(conf *Conf, raw map[string]any, receivedAt time.Time) (*Item, error) {
	if err := conf.validatePayload(raw); err != nil {
		return nil, err
	}
	return NewItem(conf.Schema, raw, ItemCheckedAt(receivedAt))
}

// decodeDataArray normalizes the envelope's data field to a slice of raw
// objects: null and absent decode to empty, an object to one element.
func decodeDataArray(data json.RawMessage) ([]map[string]any, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var list []map[string]any
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var single map[string]any
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("Unrecognized data payload: %v", err)
	}
	return []map[string]any{single}, nil
}
