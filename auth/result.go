package auth

import (
	dserrors "github.com/jrsteele09/go-docshare-client/internal/errors"
	"github.com/jrsteele09/go-docshare-client/users"
)

// FieldErrors maps a form field to its messages. "non_field_errors" holds
// messages about the form as a whole.
type FieldErrors map[string][]string

// Result is the outcome of a session operation.
type Result struct {
	Success     bool
	Error       string         // user facing message, empty on success
	Kind        dserrors.Kind  // category of the failure
	FieldErrors FieldErrors    // validation messages returned by the server
	User        *users.Profile // profile after login or update

	err error
}

// Err returns the underlying error, nil on success.
func (r Result) Err() error {
	return r.err
}

// RestoreResult is the outcome of resuming a persisted session.
type RestoreResult struct {
	Authenticated bool
	User          *users.Profile
	Error         string        // why a stored session was discarded
	Kind          dserrors.Kind // category of that failure
}
