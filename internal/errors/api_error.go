package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const maxBodySnippet = 512

// APIError is a non-2xx response from the docshare API.
// The server answers with either {"detail": "..."} or a field keyed object
// such as {"username": ["A user with that username already exists."]}.
type APIError struct {
	Status int                 // HTTP status code
	Detail string              // "detail" member, when present
	Fields map[string][]string // field -> messages for validation failures
	Body   string              // raw body snippet, for logs only
}

func (e *APIError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("api status %d: %s", e.Status, e.Detail)
	case len(e.Fields) > 0:
		return fmt.Sprintf("api status %d: %s", e.Status, e.FieldSummary())
	default:
		return fmt.Sprintf("api status %d", e.Status)
	}
}

// Unwrap maps the status code onto the package sentinels so callers can use Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrNotAuthenticated
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusBadRequest:
		return ErrValidation
	case e.Status >= http.StatusInternalServerError:
		return ErrServer
	}
	return nil
}

// FieldSummary flattens Fields into "field: msg, msg; field: msg" with stable ordering.
func (e *APIError) FieldSummary() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs := strings.Join(e.Fields[k], ", ")
		if k == "non_field_errors" {
			parts = append(parts, msgs)
			continue
		}
		parts = append(parts, k+": "+msgs)
	}
	return strings.Join(parts, "; ")
}

// NewAPIError builds an APIError from a status code and response body.
// Bodies that are not JSON objects are kept as the raw snippet only.
func NewAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: snippet(body)}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return apiErr
	}

	for key, value := range raw {
		if key == "detail" {
			var detail string
			if json.Unmarshal(value, &detail) == nil {
				apiErr.Detail = detail
			}
			continue
		}
		if msgs := decodeMessages(value); len(msgs) > 0 {
			if apiErr.Fields == nil {
				apiErr.Fields = make(map[string][]string)
			}
			apiErr.Fields[key] = msgs
		}
	}
	return apiErr
}

// decodeMessages accepts "msg", ["msg", ...] or nested objects (flattened).
func decodeMessages(value json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(value, &single); err == nil {
		return []string{single}
	}

	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		return list
	}

	var nested map[string]json.RawMessage
	if err := json.Unmarshal(value, &nested); err == nil {
		var out []string
		for k, v := range nested {
			for _, msg := range decodeMessages(v) {
				out = append(out, k+": "+msg)
			}
		}
		sort.Strings(out)
		return out
	}
	return nil
}

func snippet(body []byte) string {
	if len(body) > maxBodySnippet {
		return string(body[:maxBodySnippet])
	}
	return string(body)
}
