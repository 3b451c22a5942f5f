package errors

import (
	"context"
	"errors"
	"net"
)

// Kind is the user facing category of a failure.
type Kind string

const (
	KindNone       Kind = ""
	KindCredential Kind = "credential" // invalid login, expired or revoked session
	KindForbidden  Kind = "forbidden"  // authenticated but not allowed (e.g. not the uploader)
	KindValidation Kind = "validation" // server rejected the payload, field messages available
	KindNotFound   Kind = "not_found"
	KindTransient  Kind = "transient" // network, timeout, 5xx, malformed response
	KindUnknown    Kind = "unknown"
)

// Classify maps any error returned by the client packages onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	if errors.Is(err, ErrInvalidCredentials) {
		return KindCredential
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == 401:
			return KindCredential
		case apiErr.Status == 403:
			return KindForbidden
		case apiErr.Status == 404:
			return KindNotFound
		case apiErr.Status == 400 || apiErr.Status == 409 || apiErr.Status == 413 || apiErr.Status == 415:
			return KindValidation
		case apiErr.Status >= 500 || apiErr.Status == 429:
			return KindTransient
		}
		return KindUnknown
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrNotAuthenticated),
		errors.Is(err, ErrNoRefreshToken),
		errors.Is(err, ErrRefreshFailed),
		errors.Is(err, ErrSessionExpired):
		return KindCredential
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTransport),
		errors.Is(err, ErrServer),
		errors.Is(err, ErrMalformedResponse),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindUnknown
}

// Message returns the text shown to a user for err.
// Validation failures are surfaced verbatim, everything else gets a stable message
// with the server detail appended when there is one.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	hasAPIErr := errors.As(err, &apiErr)

	switch Classify(err) {
	case KindValidation:
		if hasAPIErr {
			if len(apiErr.Fields) > 0 {
				return apiErr.FieldSummary()
			}
			if apiErr.Detail != "" {
				return apiErr.Detail
			}
		}
		return "the request was rejected"
	case KindCredential:
		if hasAPIErr && apiErr.Detail != "" {
			return apiErr.Detail
		}
		if errors.Is(err, ErrRefreshFailed) || errors.Is(err, ErrSessionExpired) {
			return "session expired, please log in again"
		}
		if errors.Is(err, ErrInvalidCredentials) {
			if hasAPIErr && len(apiErr.Fields) > 0 {
				return apiErr.FieldSummary()
			}
			return "invalid credentials"
		}
		return "authentication required"
	case KindForbidden:
		if hasAPIErr && apiErr.Detail != "" {
			return apiErr.Detail
		}
		return "you are not allowed to do that"
	case KindNotFound:
		return "not found"
	case KindTransient:
		return "the server could not be reached, try again later"
	}
	return "something went wrong"
}
