package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteError is returned for any failed call to the remote backend, whether
// the request never completed or the backend answered with a non-2xx status.
type RemoteError struct {
	Op         string // e.g. "upload file"
	StatusCode int    // 0 when the request did not complete
	Message    string // The backend's "error" field, or a fallback
	Err        error  // Transport error, if any
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Unreachable reports whether the backend could not be reached at all.
func (e *RemoteError) Unreachable() bool {
	return e.StatusCode == 0
}

// StatusOf returns the remote HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

// loginMessages are the fixed messages for well-known login failures.
var loginMessages = map[int]string{
	http.StatusBadRequest:   "email and password are required",
	http.StatusUnauthorized: "invalid password",
	http.StatusNotFound:     "account not found",
}
