package resource

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"runtime"
	"time"
)

// RequestMode mirrors the fetch-API request mode. It only affects behavior
// when compiled for a browser runtime; elsewhere it is carried for logging.
type RequestMode string

const (
	ModeCORS       RequestMode = "cors"
	ModeSameOrigin RequestMode = "same-origin"
)

// TransportRequest is one outgoing API call, fully resolved: absolute URL,
// final headers, encoded body.
type TransportRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	Mode   RequestMode
}

// TransportResponse is the raw outcome of a transport round trip. OK
// follows the HTTP convention: true for 2xx status codes.
type TransportResponse struct {
	OK         bool
	Status     int
	Body       []byte
	ReceivedAt time.Time
}

// Transport performs API round trips. Implementations must be safe for
// concurrent use; the client issues overlapping requests for distinct
// sources.
type Transport interface {
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// HTTPTransport is the default Transport, backed by net/http.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport returns a Transport over the given client, or over
// http.DefaultClient when nil.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{Client: client}
}

func (t *HTTPTransport) Do(ctx context.Context, req TransportRequest) (TransportResponse, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return TransportResponse{}, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Mode != "" && runtime.GOOS == "js" {
		// The wasm net/http round tripper forwards js.fetch options set as
		// pseudo-headers.
		httpReq.Header.Set("js.fetch:mode", string(req.Mode))
	}
	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return TransportResponse{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return TransportResponse{}, err
	}
	return TransportResponse{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:     resp.StatusCode,
		Body:       data,
		ReceivedAt: time.Now(),
	}, nil
}
