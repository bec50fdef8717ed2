package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDayName       = errors.New("hours: invalid day name")
	ErrInvalidRange         = errors.New("hours: end day precedes start day")
	ErrDuplicateTranslation = errors.New("translation: duplicate definition")
	ErrInvalidFlag          = errors.New("venue: unknown flag reason")
	ErrNotFound             = errors.New("not found")

	// ErrDuplicateAbstained is returned when the duplicate policy declined to
	// force-create a venue. It is a terminal outcome, not a failure: nothing was
	// created and no further requests were made.
	ErrDuplicateAbstained = errors.New("venue: creation abstained after duplicate check")
)

// TransportError wraps a network or IO failure talking to the remote service.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx answer to a read or flag request.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: bad status %d: %s", e.Op, e.StatusCode, e.Body)
}

// CreationFailed is any non-success, non-duplicate answer to venues/add.
type CreationFailed struct {
	StatusCode int
	Body       string
}

func (e *CreationFailed) Error() string {
	return fmt.Sprintf("create venue: bad status %d: %s", e.StatusCode, e.Body)
}

// EditRejected is a non-2xx answer to venues/{id}/proposeedit.
type EditRejected struct {
	VenueID    string
	StatusCode int
	Body       string
}

func (e *EditRejected) Error() string {
	return fmt.Sprintf("propose edit %s: bad status %d: %s", e.VenueID, e.StatusCode, e.Body)
}

// PartialSubmissionError means the venue was created but the follow-up edit
// failed. Venue carries the new id so the edit can be retried by hand.
type PartialSubmissionError struct {
	Venue CreatedVenue
	Err   error
}

func (e *PartialSubmissionError) Error() string {
	return fmt.Sprintf("venue %s created but edit failed: %v", e.Venue.ID, e.Err)
}

func (e *PartialSubmissionError) Unwrap() error { return e.Err }
