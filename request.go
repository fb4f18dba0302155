package resource

import "net/http"

// requestKind determines how the engine models a response body and which
// state transitions it dispatches around the call.
type requestKind int

const (
	kindList requestKind = iota
	kindItem
	kindWrite
	kindDelete
	kindEvents
	kindAddEvent
)

// apiRequest is an immutable descriptor of one synchronization request.
// The source key doubles as the in-flight and cache identity.
type apiRequest struct {
	source        string
	method        string
	body          []byte
	contentType   string
	kind          requestKind
	conf          *Conf
	itemID        string
	forced        bool
	tokenRequired bool
	successMsg    string
}

// url resolves the absolute request URL: the resource's base URL plus the
// source key, which already carries path and query.
func (r apiRequest) url() string {
	if r.conf != nil {
		return r.conf.BaseURL + r.source
	}
	return r.source
}

// skipsInFlightCheck reports whether the request bypasses in-flight
// deduplication. Mutations always run; a forced fetch runs but still
// participates as the in-flight request others can join.
func (r apiRequest) skipsInFlightCheck() bool {
	switch r.kind {
	case kindWrite, kindDelete, kindAddEvent:
		return true
	}
	return false
}

// skipsPermanentErrorCheck reports whether a cached terminal failure for
// the source is ignored rather than short-circuiting the request.
func (r apiRequest) skipsPermanentErrorCheck() bool {
	return r.forced || r.skipsInFlightCheck()
}

func (r apiRequest) header(token string) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if r.contentType != "" {
		h.Set("Content-Type", r.contentType)
	}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
