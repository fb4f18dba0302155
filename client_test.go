package resource

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// stubTransport records every call and delegates to a respond func. It
// checks the context like a real transport would.
type stubTransport struct {
	mu      sync.Mutex
	calls   []TransportRequest
	respond func(req TransportRequest) (TransportResponse, error)
}

func (s *stubTransport) Do(ctx context.Context, req TransportRequest) (TransportResponse, error) {
	if err := ctx.Err(); err != nil {
		return TransportResponse{}, err
	}
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	return s.respond(req)
}

func (s *stubTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubTransport) lastCall() TransportRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return TransportRequest{}
	}
	return s.calls[len(s.calls)-1]
}

func okResponse(body []byte) (TransportResponse, error) {
	return TransportResponse{OK: true, Status: 200, Body: body}, nil
}

func newTestClient(t *testing.T, registry *Registry, respond func(TransportRequest) (TransportResponse, error), opts ...ClientOption) (*Client, *stubTransport, *fakeClock) {
	t.Helper()
	transport := &stubTransport{respond: respond}
	clock := newFakeClock(testBaseTime)
	opts = append([]ClientOption{WithTransport(transport), WithClock(clock.Now)}, opts...)
	client, err := New(Config{Registry: registry}, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, transport, clock
}

func TestClientRequiresRegistry(t *testing.T) {
	_, err := New(Config{})
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestClientFetchListServesCacheWhileFresh(t *testing.T) {
	client, transport, clock := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		return okResponse(envelopeBody(t, []map[string]any{taskProps(taskID, 100, "t")}, ""))
	})
	ctx := context.Background()

	res := client.FetchList(ctx, "tasks")
	if !res.OK() {
		t.Fatalf("fetch failed: %+v", res)
	}
	if len(res.List) != 1 || res.List[0].ID() != taskID {
		t.Fatalf("unexpected list: %+v", res.List)
	}
	if got := transport.lastCall(); got.Method != "GET" || got.URL != "/tasks" {
		t.Fatalf("unexpected request %s %s", got.Method, got.URL)
	}

	res = client.FetchList(ctx, "tasks")
	if !res.OK() || len(res.List) != 1 {
		t.Fatalf("cached fetch failed: %+v", res)
	}
	if transport.callCount() != 1 {
		t.Fatalf("fresh list should be served from cache, got %d calls", transport.callCount())
	}
	if res.ReceivedAt != clock.Now().UnixMilli() {
		t.Fatalf("cached result should carry the read time")
	}

	clock.Advance(defaultFreshFor + time.Millisecond)
	client.FetchList(ctx, "tasks")
	if transport.callCount() != 2 {
		t.Fatalf("stale list should hit the transport, got %d calls", transport.callCount())
	}
}

func TestClientFetchItemServedFromListMembership(t *testing.T) {
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		return okResponse(envelopeBody(t, []map[string]any{taskProps(taskID, 100, "t")}, ""))
	})
	ctx := context.Background()

	client.FetchList(ctx, "tasks")
	res := client.FetchItem(ctx, "tasks", taskID)
	if !res.OK() || res.Data == nil || res.Data.ID() != taskID {
		t.Fatalf("item fetch failed: %+v", res)
	}
	if transport.callCount() != 1 {
		t.Fatalf("complete fresh item should be served from cache, got %d calls", transport.callCount())
	}
}

func TestClientForceFetchBypassesCacheAndPermanentErrors(t *testing.T) {
	var fail bool
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		if fail {
			return TransportResponse{OK: false, Status: 404, Body: []byte("Not found.")}, nil
		}
		return okResponse(envelopeBody(t, taskProps(taskID, 100, "t"), ""))
	})
	ctx := context.Background()

	fail = true
	res := client.FetchItem(ctx, "tasks", taskID)
	if res.OK() || res.Code != 404 {
		t.Fatalf("expected 404, got %+v", res)
	}

	// the failure is now permanent: no transport call
	res = client.FetchItem(ctx, "tasks", taskID)
	if res.Code != 404 || res.ErrorMessage != "Not found." {
		t.Fatalf("expected cached permanent error, got %+v", res)
	}
	if transport.callCount() != 1 {
		t.Fatalf("permanent error should short-circuit, got %d calls", transport.callCount())
	}

	fail = false
	res = client.ForceFetchItem(ctx, "tasks", taskID)
	if !res.OK() || res.Data == nil {
		t.Fatalf("forced fetch should bypass the permanent error: %+v", res)
	}
	if transport.callCount() != 2 {
		t.Fatalf("forced fetch must hit the transport")
	}
}

func TestClientPermanentErrorShortCircuitTellsErrorHandler(t *testing.T) {
	var handled []string
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		return TransportResponse{OK: false, Status: 404, Body: []byte("Not found.")}, nil
	}, WithErrorHandler(func(msg string) { handled = append(handled, msg) }))
	ctx := context.Background()

	client.FetchList(ctx, "tasks")
	seen := len(handled)

	res := client.FetchList(ctx, "tasks")
	if res.Code != 404 || transport.callCount() != 1 {
		t.Fatalf("expected cached permanent error, got %+v after %d calls", res, transport.callCount())
	}
	if len(handled) != seen+1 {
		t.Fatalf("error handler should be told about the short-circuit, got %v", handled)
	}
	if !strings.Contains(handled[len(handled)-1], "Not found.") || !strings.Contains(handled[len(handled)-1], "/tasks") {
		t.Fatalf("handler message should carry the error and the source, got %q", handled[len(handled)-1])
	}

	// a forced fetch bypasses the short-circuit, so there is nothing to report
	seen = len(handled)
	client.ForceFetchList(ctx, "tasks")
	if transport.callCount() != 2 {
		t.Fatalf("forced fetch must hit the transport")
	}
	if len(handled) != seen {
		t.Fatalf("forced fetch must not report a short-circuit, got %v", handled[seen:])
	}
}

func TestClientTransportErrorIsInternalFailure(t *testing.T) {
	client, _, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		return TransportResponse{}, errors.New("connection refused")
	})
	res := client.FetchList(context.Background(), "tasks")
	if res.OK() || res.Code != internalFailureCode {
		t.Fatalf("expected internal failure, got %+v", res)
	}
	if res.ErrorMessage != "connection refused" {
		t.Fatalf("unexpected message %q", res.ErrorMessage)
	}
	if res.Err() == nil {
		t.Fatalf("failed result must convert to an error")
	}
}

func TestClientMalformedEnvelopeIsPermanent(t *testing.T) {
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		return okResponse([]byte("{not json"))
	})
	ctx := context.Background()

	res := client.FetchList(ctx, "tasks")
	if res.OK() || res.Code != internalFailureCode {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !strings.Contains(res.ErrorMessage, "Malformed response") {
		t.Fatalf("unexpected message %q", res.ErrorMessage)
	}

	client.FetchList(ctx, "tasks")
	if transport.callCount() != 1 {
		t.Fatalf("malformed payload failures are terminal for the source")
	}
}

func TestClientIncompleteItemIsTransient(t *testing.T) {
	var handled []string
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		return okResponse(envelopeBody(t, map[string]any{"id": taskID, "lastUpdated": 100}, ""))
	}, WithErrorHandler(func(msg string) { handled = append(handled, msg) }))
	ctx := context.Background()

	res := client.FetchItem(ctx, "tasks", taskID)
	if res.OK() || res.Code != internalFailureCode {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !strings.Contains(res.ErrorMessage, "Incomplete task data") {
		t.Fatalf("unexpected message %q", res.ErrorMessage)
	}
	if len(handled) != 1 || !strings.Contains(handled[0], "Incomplete task data") {
		t.Fatalf("error handler should be told, got %v", handled)
	}

	// not recorded as permanent; a retry goes back to the server
	client.FetchItem(ctx, "tasks", taskID)
	if transport.callCount() != 2 {
		t.Fatalf("incomplete data must stay retryable, got %d calls", transport.callCount())
	}
}

func TestClientConcurrentFetchSharesOneRoundTrip(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		close(started)
		<-release
		return okResponse(envelopeBody(t, []map[string]any{taskProps(taskID, 100, "t")}, ""))
	})
	ctx := context.Background()

	var owner, joiner Result
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		owner = client.FetchList(ctx, "tasks")
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		joiner = client.FetchList(ctx, "tasks")
	}()
	// give the joiner a moment to park on the in-flight call
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if !owner.OK() || !joiner.OK() {
		t.Fatalf("expected both to succeed: %+v %+v", owner, joiner)
	}
	if len(joiner.List) != 1 {
		t.Fatalf("joiner should receive the shared result")
	}
	if transport.callCount() != 1 {
		t.Fatalf("expected one round trip, got %d", transport.callCount())
	}
}

func TestClientJoinerHonorsContextCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		close(started)
		<-release
		return okResponse(envelopeBody(t, []map[string]any{taskProps(taskID, 100, "t")}, ""))
	})

	var owner Result
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		owner = client.FetchList(context.Background(), "tasks")
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	joinerDone := make(chan Result, 1)
	go func() {
		joinerDone <- client.FetchList(ctx, "tasks")
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	joiner := <-joinerDone
	if joiner.OK() || joiner.Code != internalFailureCode {
		t.Fatalf("cancelled joiner should fail locally: %+v", joiner)
	}
	if joiner.ErrorMessage != context.Canceled.Error() {
		t.Fatalf("unexpected message %q", joiner.ErrorMessage)
	}

	close(release)
	wg.Wait()
	if !owner.OK() {
		t.Fatalf("owner must be unaffected by the joiner's cancellation: %+v", owner)
	}
	if transport.callCount() != 1 {
		t.Fatalf("expected one round trip, got %d", transport.callCount())
	}
}

func TestClientRequireAuthFailsWithoutToken(t *testing.T) {
	registry := newTestRegistry(t, &Conf{ItemName: "task", Schema: testTaskSchema, RequireAuth: true})
	var handled []string
	client, transport, _ := newTestClient(t, registry, func(TransportRequest) (TransportResponse, error) {
		return okResponse(envelopeBody(t, nil, ""))
	}, WithErrorHandler(func(msg string) { handled = append(handled, msg) }))

	res := client.FetchList(context.Background(), "tasks")
	if res.OK() || res.Code != internalFailureCode {
		t.Fatalf("expected local auth failure, got %+v", res)
	}
	if !strings.Contains(res.ErrorMessage, "requires authentication") {
		t.Fatalf("unexpected message %q", res.ErrorMessage)
	}
	if transport.callCount() != 0 {
		t.Fatalf("request must not reach the transport")
	}
	if len(handled) != 1 {
		t.Fatalf("error handler should be told, got %v", handled)
	}
}

func TestClientAttachesBearerToken(t *testing.T) {
	registry := newTestRegistry(t, &Conf{ItemName: "task", Schema: testTaskSchema, RequireAuth: true})
	client, transport, _ := newTestClient(t, registry, func(TransportRequest) (TransportResponse, error) {
		return okResponse(envelopeBody(t, nil, ""))
	}, WithAuthToken("tok"))

	res := client.FetchList(context.Background(), "tasks")
	if !res.OK() {
		t.Fatalf("fetch failed: %+v", res)
	}
	if got := transport.lastCall().Header.Get("Authorization"); got != "Bearer tok" {
		t.Fatalf("expected bearer header, got %q", got)
	}
	if got := transport.lastCall().Header.Get("Accept"); got != "application/json" {
		t.Fatalf("expected json accept header, got %q", got)
	}
}

func TestClientCreateItem(t *testing.T) {
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(req TransportRequest) (TransportResponse, error) {
		return okResponse(envelopeBody(t, taskProps(taskID, 100, "write docs"), "Created task."))
	})

	draft := mustTestItem(t, testTaskSchema, map[string]any{"title": "write docs"})
	res := client.CreateItem(context.Background(), draft)
	if !res.OK() || res.Data == nil {
		t.Fatalf("create failed: %+v", res)
	}
	if res.Data.ID() != taskID {
		t.Fatalf("created item should carry the canonical id, got %q", res.Data.ID())
	}
	if res.Message != "Created task." {
		t.Fatalf("unexpected message %q", res.Message)
	}

	call := transport.lastCall()
	if call.Method != "POST" || call.URL != "/tasks" {
		t.Fatalf("unexpected request %s %s", call.Method, call.URL)
	}
	if got := call.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content type %q", got)
	}
	var sent map[string]any
	if err := json.Unmarshal(call.Body, &sent); err != nil {
		t.Fatalf("bad request body: %v", err)
	}
	if sent["title"] != "write docs" {
		t.Fatalf("unexpected body %v", sent)
	}

	if client.Cache().Item(taskID) == nil {
		t.Fatalf("created item should land in the cache")
	}
}

func TestClientCreateItemAppliesPrepareCreate(t *testing.T) {
	registry := newTestRegistry(t, &Conf{
		ItemName: "task",
		Schema:   testTaskSchema,
		PrepareCreate: func(body map[string]any) map[string]any {
			return map[string]any{"task": body, "notify": true}
		},
	})
	client, transport, _ := newTestClient(t, registry, func(TransportRequest) (TransportResponse, error) {
		return okResponse(envelopeBody(t, taskProps(taskID, 100, "t"), ""))
	})

	draft := mustTestItem(t, testTaskSchema, map[string]any{"title": "t"})
	if res := client.CreateItem(context.Background(), draft); !res.OK() {
		t.Fatalf("create failed: %+v", res)
	}
	var sent map[string]any
	if err := json.Unmarshal(transport.lastCall().Body, &sent); err != nil {
		t.Fatalf("bad request body: %v", err)
	}
	if sent["notify"] != true {
		t.Fatalf("prepare hook not applied: %v", sent)
	}
	if _, ok := sent["task"].(map[string]any); !ok {
		t.Fatalf("prepare hook not applied: %v", sent)
	}
}

func TestClientUpdateItem(t *testing.T) {
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		return okResponse(envelopeBody(t, taskProps(taskID, 200, "renamed"), ""))
	})

	item := mustTestItem(t, testTaskSchema, taskProps(taskID, 100, "t"))
	updated, err := item.Update(map[string]any{"title": "renamed"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	res := client.UpdateItem(context.Background(), updated)
	if !res.OK() || res.Data == nil {
		t.Fatalf("update failed: %+v", res)
	}
	call := transport.lastCall()
	if call.Method != "PUT" || call.URL != "/tasks/"+taskID+"/" {
		t.Fatalf("unexpected request %s %s", call.Method, call.URL)
	}
	cached := client.Cache().Item(taskID)
	if cached == nil {
		t.Fatalf("updated item should land in the cache")
	}
	if title, _ := cached.Get("title"); title != "renamed" {
		t.Fatalf("cache holds stale title %v", title)
	}
}

func TestClientDeleteItem(t *testing.T) {
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(req TransportRequest) (TransportResponse, error) {
		if req.Method == "DELETE" {
			return okResponse(nil)
		}
		return okResponse(envelopeBody(t, []map[string]any{taskProps(taskID, 100, "t")}, ""))
	})
	ctx := context.Background()

	client.FetchList(ctx, "tasks")
	res := client.DeleteItem(ctx, "tasks", taskID, "no longer needed")
	if !res.OK() {
		t.Fatalf("delete failed: %+v", res)
	}
	if res.Message != "Deleted task." {
		t.Fatalf("unexpected message %q", res.Message)
	}
	call := transport.lastCall()
	if call.Method != "DELETE" {
		t.Fatalf("unexpected method %s", call.Method)
	}
	if call.URL != "/tasks/"+taskID+"/?reason=no+longer+needed" {
		t.Fatalf("unexpected url %s", call.URL)
	}

	if client.Cache().Item(taskID) != nil {
		t.Fatalf("deleted item still cached")
	}
	// membership is wiped too: the next list read goes to the server
	calls := transport.callCount()
	client.FetchList(ctx, "tasks")
	if transport.callCount() != calls+1 {
		t.Fatalf("list should re-fetch after a delete")
	}
}

func TestClientFetchItemEventsAlwaysForced(t *testing.T) {
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		return okResponse(envelopeBody(t, []map[string]any{{"type": "created"}}, ""))
	})
	ctx := context.Background()

	res := client.FetchItemEvents(ctx, "tasks", taskID)
	if !res.OK() || len(res.Events) != 1 {
		t.Fatalf("events fetch failed: %+v", res)
	}
	if got := transport.lastCall().URL; got != "/tasks/"+taskID+"/events" {
		t.Fatalf("unexpected url %s", got)
	}
	if got := client.Cache().ItemEvents(taskID); len(got) != 1 {
		t.Fatalf("events not cached")
	}

	client.FetchItemEvents(ctx, "tasks", taskID)
	if transport.callCount() != 2 {
		t.Fatalf("event fetches must always hit the server, got %d calls", transport.callCount())
	}
}

func TestClientAddItemEventEvictsOwner(t *testing.T) {
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(req TransportRequest) (TransportResponse, error) {
		if req.Method == "POST" {
			return okResponse(nil)
		}
		return okResponse(envelopeBody(t, taskProps(taskID, 100, "t"), ""))
	})
	ctx := context.Background()

	client.FetchItem(ctx, "tasks", taskID)
	if client.Cache().Item(taskID) == nil {
		t.Fatalf("seed fetch failed")
	}

	res := client.AddItemEvent(ctx, "tasks", taskID, map[string]any{"type": "closed"})
	if !res.OK() {
		t.Fatalf("add event failed: %+v", res)
	}
	if got := transport.lastCall(); got.Method != "POST" || got.URL != "/tasks/"+taskID+"/events" {
		t.Fatalf("unexpected request %s %s", got.Method, got.URL)
	}
	if client.Cache().Item(taskID) != nil {
		t.Fatalf("owning item should be evicted after posting an event")
	}
}

func TestClientListRefetchesAfterMemberEviction(t *testing.T) {
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(req TransportRequest) (TransportResponse, error) {
		if req.Method == "POST" {
			return okResponse(nil)
		}
		return okResponse(envelopeBody(t, []map[string]any{taskProps(taskID, 100, "t")}, ""))
	})
	ctx := context.Background()

	client.FetchList(ctx, "tasks")
	client.AddItemEvent(ctx, "tasks", taskID, map[string]any{"type": "closed"})

	// the member is gone, so the still-fresh list can no longer be
	// trusted: the next read goes back to the server
	calls := transport.callCount()
	res := client.FetchList(ctx, "tasks")
	if !res.OK() || len(res.List) != 1 || res.List[0].ID() != taskID {
		t.Fatalf("refetch failed: %+v", res)
	}
	if res.List[0].Schema() != testTaskSchema {
		t.Fatalf("refetched list must hold modeled items, got %q", res.List[0].Schema().ItemName())
	}
	if transport.callCount() != calls+1 {
		t.Fatalf("list with an evicted member must hit the transport, got %d calls", transport.callCount()-calls)
	}
}

func TestClientFetchSingleFromList(t *testing.T) {
	var payload any
	client, _, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		return okResponse(envelopeBody(t, payload, ""))
	})
	ctx := context.Background()

	payload = []map[string]any{taskProps(taskID, 100, "t")}
	res := client.FetchSingleFromList(ctx, "tasks", "/tasks?title=t")
	if !res.OK() || res.Data == nil || res.Data.ID() != taskID {
		t.Fatalf("single fetch failed: %+v", res)
	}

	payload = []map[string]any{}
	res = client.ForceFetchSingleFromList(ctx, "tasks", "/tasks?title=t")
	if res.OK() || res.ErrorMessage != "No task data returned." {
		t.Fatalf("expected empty-result failure, got %+v", res)
	}

	payload = []map[string]any{taskProps(taskID, 100, "t"), taskProps(taskID2, 100, "t")}
	res = client.ForceFetchSingleFromList(ctx, "tasks", "/tasks?title=t")
	if res.OK() || res.ErrorMessage != "Multiple task items returned where one was expected." {
		t.Fatalf("expected multiple-result failure, got %+v", res)
	}
}

func TestClientFetchItemBySource(t *testing.T) {
	registry := newTestRegistry(t,
		&Conf{ItemName: "task", Schema: testTaskSchema},
		&Conf{ItemName: "user", Schema: testUserSchema},
	)
	client, transport, _ := newTestClient(t, registry, func(TransportRequest) (TransportResponse, error) {
		return okResponse(envelopeBody(t, map[string]any{"id": userID, "lastUpdated": 1, "name": "val"}, ""))
	})
	ctx := context.Background()

	res := client.FetchItemBySource(ctx, "users", "/users/self/")
	if !res.OK() || res.Data == nil || res.Data.ID() != userID {
		t.Fatalf("self fetch failed: %+v", res)
	}
	if got := transport.lastCall().URL; got != "/users/self/" {
		t.Fatalf("unexpected url %s", got)
	}

	// "self" aliases the canonical id, so the cached item serves both
	res = client.FetchItem(ctx, "users", userID)
	if !res.OK() || transport.callCount() != 1 {
		t.Fatalf("canonical fetch should be served from cache: %+v, %d calls", res, transport.callCount())
	}
}

func TestClientUnknownResource(t *testing.T) {
	var handled []string
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		return okResponse(nil)
	}, WithErrorHandler(func(msg string) { handled = append(handled, msg) }))

	res := client.FetchList(context.Background(), "ghosts")
	if res.OK() || res.Code != internalFailureCode {
		t.Fatalf("expected failure, got %+v", res)
	}
	if res.ErrorMessage != `No resource configured under "ghosts".` {
		t.Fatalf("unexpected message %q", res.ErrorMessage)
	}
	if transport.callCount() != 0 {
		t.Fatalf("unknown resources never reach the transport")
	}
	if len(handled) != 1 {
		t.Fatalf("error handler should be told, got %v", handled)
	}
}

func TestClientUpdateLocalItem(t *testing.T) {
	client, transport, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		return okResponse(nil)
	})
	item := mustTestItem(t, testTaskSchema, taskProps(taskID, 100, "t"))
	client.UpdateLocalItem(item)
	if client.Cache().Item(taskID) != item {
		t.Fatalf("local update not applied")
	}
	if transport.callCount() != 0 {
		t.Fatalf("local updates never touch the transport")
	}
}

func TestClientSubscribeAndReset(t *testing.T) {
	client, _, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		return okResponse(envelopeBody(t, []map[string]any{taskProps(taskID, 100, "t")}, ""))
	})
	ctx := context.Background()

	var notified int
	cancel := client.Subscribe(func() { notified++ })
	client.FetchList(ctx, "tasks")
	if notified == 0 {
		t.Fatalf("subscriber not notified")
	}

	client.Reset()
	if client.Cache().Item(taskID) != nil {
		t.Fatalf("reset left cached state behind")
	}

	seen := notified
	cancel()
	client.Reset()
	if notified != seen {
		t.Fatalf("cancelled subscriber still notified")
	}
}

func TestClientObserverSeesOperations(t *testing.T) {
	var ops []string
	var cachedFlags []bool
	obs := ObserverFunc(func(ctx context.Context, op, source string, cached bool, code int, d time.Duration) {
		ops = append(ops, op)
		cachedFlags = append(cachedFlags, cached)
	})
	client, _, _ := newTestClient(t, newTestRegistry(t), func(TransportRequest) (TransportResponse, error) {
		return okResponse(envelopeBody(t, []map[string]any{taskProps(taskID, 100, "t")}, ""))
	}, WithObserver(obs))
	ctx := context.Background()

	client.FetchList(ctx, "tasks")
	client.FetchList(ctx, "tasks")
	if len(ops) != 2 || ops[0] != "FetchList" || ops[1] != "FetchList" {
		t.Fatalf("unexpected ops %v", ops)
	}
	if cachedFlags[0] || !cachedFlags[1] {
		t.Fatalf("expected miss then hit, got %v", cachedFlags)
	}
}
