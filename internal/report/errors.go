// SPDX-License-Identifier: MIT
package report

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotConfigured  = errors.New("report: server URL and report path must be configured")
	ErrConnection     = errors.New("report: cannot connect to server")
	ErrHostNotFound   = errors.New("report: server not found")
	ErrTimeout        = errors.New("report: request timed out")
	ErrAuthentication = errors.New("report: authentication failed")
	ErrReportNotFound = errors.New("report: report not found")
	ErrServer         = errors.New("report: server returned an error")
)

// Error wraps the sentinel errors with request context and carries the
// user-facing message the host surfaces verbatim.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Err       error // nested lower-level error (e.g. net.Error)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("report: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Message renders the failure for end users, without transport internals.
func (e *Error) Message() string {
	switch {
	case errors.Is(e.Sentinel, ErrNotConfigured):
		return "Server URL and report path must be configured."
	case errors.Is(e.Sentinel, ErrConnection):
		return "Cannot connect to the report server. Please check the server URL."
	case errors.Is(e.Sentinel, ErrHostNotFound):
		return "Report server not found. Please check the server URL."
	case errors.Is(e.Sentinel, ErrTimeout):
		return "The report server did not respond in time."
	case errors.Is(e.Sentinel, ErrAuthentication):
		return "Authentication failed. Please check your credentials."
	case errors.Is(e.Sentinel, ErrReportNotFound):
		return "Report not found. Please check the report path."
	case e.Status > 0:
		return fmt.Sprintf("Report server returned error: %d", e.Status)
	default:
		return "Report request failed."
	}
}
