package client

import "fmt"

// APIError represents a failed call to the persistence service: either a
// non-2xx HTTP status or an envelope with success=false.
type APIError struct {
	Op         string // "save", "load", "merge", "import"
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: request failed with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.StatusCode)
}

// Rejected reports whether the service answered but refused the request,
// as opposed to failing with an HTTP error status.
func (e *APIError) Rejected() bool {
	return e.StatusCode >= 200 && e.StatusCode < 300
}
