package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTransport wraps failures where no HTTP response was received.
	ErrTransport = errors.New("apiclient: transport failure")
	// ErrUnauthorized is matched by errors.Is for every 401 response.
	ErrUnauthorized = errors.New("apiclient: unauthorized")
)

// APIError carries a non-2xx response exactly as the server sent it.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	// Detail is the server's "detail" message when the body has one.
	Detail string
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// IsServerError reports a 5xx. Views treat it like any other failure.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// parseDetail pulls the message out of an error body shaped like
// {"detail": "..."} or {"detail": [{"msg": "..."}, ...]}.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
