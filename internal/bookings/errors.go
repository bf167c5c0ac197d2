package bookings

import "errors"

var (
	// ErrSlotTaken is returned when the requested interval overlaps an
	// existing confirmed booking.
	ErrSlotTaken = errors.New("bookings: slot taken")

	// ErrNotFound is returned when no matching booking exists.
	ErrNotFound = errors.New("bookings: not found")
)

// RejectReason says why the orchestrator declined a booking.
type RejectReason string

const (
	ReasonSlotTaken          RejectReason = "slot_taken"
	ReasonNoCreditsLeft      RejectReason = "no_credits_left"
	ReasonPersistFailed      RejectReason = "persist_failed"
	ReasonStorageUnavailable RejectReason = "storage_unavailable"
)

// Rejection is the orchestrator's refusal to book. It is an error so callers
// can thread it through normal error paths, and carries the reason so the
// chat layer can pick the right reply. A rejection always leaves guest state
// untouched: anything consumed before the failing step has been compensated.
type Rejection struct {
	Reason RejectReason
	cause  error
}

func (r *Rejection) Error() string {
	if r.cause != nil {
		return "bookings: rejected (" + string(r.Reason) + "): " + r.cause.Error()
	}
	return "bookings: rejected (" + string(r.Reason) + ")"
}

// Unwrap exposes the underlying cause for errors.Is chains.
func (r *Rejection) Unwrap() error {
	return r.cause
}

func reject(reason RejectReason, cause error) *Rejection {
	return &Rejection{Reason: reason, cause: cause}
}

// AsRejection extracts a Rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
