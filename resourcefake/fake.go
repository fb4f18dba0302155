package resourcefake

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goforj/resource"
)

// Fake is a scripted Transport plus assertion helpers for tests. Responses
// are registered per method+URL route; unstubbed routes answer 404 so code
// under test sees an ordinary request failure rather than a panic.
type Fake struct {
	mu       sync.Mutex
	stubs    map[string][]stub
	counts   map[string]int
	requests []resource.TransportRequest
	clock    func() time.Time
}

type stub struct {
	resp resource.TransportResponse
	err  error
}

// New creates a Fake with no stubbed routes.
func New() *Fake {
	return &Fake{
		stubs:  make(map[string][]stub),
		counts: make(map[string]int),
		clock:  time.Now,
	}
}

// Transport returns the transport to inject into the client under test.
func (f *Fake) Transport() resource.Transport { return fakeTransport{f} }

// WithClock overrides the clock used to stamp response receipt times.
func (f *Fake) WithClock(clock func() time.Time) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = clock
	return f
}

// StubJSON registers a JSON envelope response for method+url. Responses for
// the same route are consumed in registration order; the last one sticks.
func (f *Fake) StubJSON(method, url string, status int, data any, message string) {
	body, err := json.Marshal(map[string]any{"data": data, "message": message})
	if err != nil {
		panic(fmt.Sprintf("resourcefake: marshal stub body: %v", err))
	}
	f.StubRaw(method, url, status, body)
}

// StubText registers a plain-text response for method+url. APIs answer
// failures with text bodies, so this is the usual way to script an error.
func (f *Fake) StubText(method, url string, status int, body string) {
	f.StubRaw(method, url, status, []byte(body))
}

// StubRaw registers a raw response body for method+url.
func (f *Fake) StubRaw(method, url string, status int, body []byte) {
	f.push(method, url, stub{resp: resource.TransportResponse{
		OK:     status >= 200 && status < 300,
		Status: status,
		Body:   body,
	}})
}

// StubError registers a transport-level error (network failure) for method+url.
func (f *Fake) StubError(method, url string, err error) {
	f.push(method, url, stub{err: err})
}

func (f *Fake) push(method, url string, s stub) {
	f.mu.Lock()
	defer f.mu.Unlock()
	route := routeKey(method, url)
	f.stubs[route] = append(f.stubs[route], s)
}

// Requests returns a copy of every request seen, in order.
func (f *Fake) Requests() []resource.TransportRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]resource.TransportRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// LastRequest returns the most recent request, if any.
func (f *Fake) LastRequest() (resource.TransportRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return resource.TransportRequest{}, false
	}
	return f.requests[len(f.requests)-1], true
}

// Reset clears recorded requests and counts. Stubs stay registered.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = make(map[string]int)
	f.requests = nil
}

// AssertCalled verifies method+url was requested the expected number of times.
func (f *Fake) AssertCalled(t *testing.T, method, url string, times int) {
	t.Helper()
	if got := f.Count(method, url); got != times {
		t.Fatalf("expected %s %s called %d times, got %d", method, url, times, got)
	}
}

// AssertNotCalled ensures method+url was never requested.
func (f *Fake) AssertNotCalled(t *testing.T, method, url string) {
	t.Helper()
	if got := f.Count(method, url); got != 0 {
		t.Fatalf("expected %s %s not called, got %d", method, url, got)
	}
}

// AssertTotal ensures the total request count matches times.
func (f *Fake) AssertTotal(t *testing.T, times int) {
	t.Helper()
	f.mu.Lock()
	got := len(f.requests)
	f.mu.Unlock()
	if got != times {
		t.Fatalf("expected %d total requests, got %d", times, got)
	}
}

// Count returns requests seen for method+url.
func (f *Fake) Count(method, url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[routeKey(method, url)]
}

func (f *Fake) do(req resource.TransportRequest) (resource.TransportResponse, error) {
	f.mu.Lock()
	route := routeKey(req.Method, req.URL)
	f.counts[route]++
	f.requests = append(f.requests, req)
	queue := f.stubs[route]
	var s stub
	switch len(queue) {
	case 0:
		s = stub{resp: resource.TransportResponse{Status: 404, Body: []byte("Not found.")}}
	case 1:
		s = queue[0]
	default:
		s = queue[0]
		f.stubs[route] = queue[1:]
	}
	receivedAt := f.clock()
	f.mu.Unlock()

	if s.err != nil {
		return resource.TransportResponse{}, s.err
	}
	resp := s.resp
	resp.ReceivedAt = receivedAt
	return resp, nil
}

type fakeTransport struct {
	fake *Fake
}

func (t fakeTransport) Do(ctx context.Context, req resource.TransportRequest) (resource.TransportResponse, error) {
	if err := ctx.Err(); err != nil {
		return resource.TransportResponse{}, err
	}
	return t.fake.do(req)
}

func routeKey(method, url string) string {
	return method + " " + url
}
