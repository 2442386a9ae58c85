package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TransportError means the request never produced an HTTP response
// (DNS, connection refused, reset, context cancellation, unreadable body).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx reply. Message holds the JSON "error" field when
// the body had one, otherwise it is empty.
type StatusError struct {
	Op      string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: %s: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("backend: %s: status %d: %s", e.Op, e.Code, e.Message)
}

func newStatusError(op string, code int, body []byte) *StatusError {
	return &StatusError{Op: op, Code: code, Message: errorField(body)}
}

func errorField(body []byte) string {
	var parsed struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	switch v := parsed.Error.(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
