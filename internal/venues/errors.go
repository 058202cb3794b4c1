package venues

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies a remote venue failure.
type ErrorKind string

const (
	ErrTimeout     ErrorKind = "timeout"
	ErrTransport   ErrorKind = "transport"
	ErrParse       ErrorKind = "parse"
	ErrRateLimited ErrorKind = "rate_limited"
	ErrHTTP        ErrorKind = "http_error"
)

// VenueError is the only error type adapters surface. Callers treat any
// VenueError as "datum missing this tick"; it never crosses a worker
// boundary as a crash.
type VenueError struct {
	VenueID    string
	Kind       ErrorKind
	Message    string
	HTTPStatus int
}

func (e *VenueError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("venue %s: %s (%d): %s", e.VenueID, e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("venue %s: %s: %s", e.VenueID, e.Kind, e.Message)
}

// NewVenueError builds a typed failure.
func NewVenueError(venueID string, kind ErrorKind, msg string) *VenueError {
	return &VenueError{VenueID: venueID, Kind: kind, Message: msg}
}

// ClassifyTransport maps a transport-level error onto the taxonomy.
func ClassifyTransport(venueID string, err error) *VenueError {
	kind := ErrTransport
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = ErrTimeout
	}
	return &VenueError{VenueID: venueID, Kind: kind, Message: err.Error()}
}

// ClassifyStatus maps a non-2xx HTTP status onto the taxonomy.
func ClassifyStatus(venueID string, status int) *VenueError {
	kind := ErrHTTP
	if status == http.StatusTooManyRequests {
		kind = ErrRateLimited
	}
	return &VenueError{
		VenueID:    venueID,
		Kind:       kind,
		HTTPStatus: status,
		Message:    http.StatusText(status),
	}
}

// ParseError wraps a decode failure.
func ParseError(venueID string, err error) *VenueError {
	return &VenueError{VenueID: venueID, Kind: ErrParse, Message: err.Error()}
}

// IsVenueError extracts the typed error, if present.
func IsVenueError(err error) (*VenueError, bool) {
	var ve *VenueError
	ok := errors.As(err, &ve)
	return ve, ok
}
