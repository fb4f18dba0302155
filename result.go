package resource

import (
	"encoding/json"
	"fmt"
)

// Result is the uniform outcome of every client operation. Exactly one of
// Data, List, or Events is populated on success, depending on the
// operation; on failure Code and ErrorMessage describe what went wrong.
// ReceivedAt is epoch milliseconds of the moment the outcome was decided,
// whether that was a transport response or a cache short-circuit.
type Result struct {
	Data         *Item             `json:"data,omitempty"`
	List         []*Item           `json:"list,omitempty"`
	Events       []json.RawMessage `json:"events,omitempty"`
	Message      string            `json:"message,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Code         int               `json:"code"`
	Source       string            `json:"source"`
	ReceivedAt   int64             `json:"receivedAt"`
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.ErrorMessage == "" && r.Code < 400 }

// Err converts a failed Result into an error; nil when the Result is ok.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &RequestError{Code: r.Code, Message: r.ErrorMessage, Source: r.Source}
}

// RequestError is the error form of a failed Result.
type RequestError struct {
	Code    int
	Message string
	Source  string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("resource: request failed (%s): %d %s", e.Source, e.Code, e.Message)
}
