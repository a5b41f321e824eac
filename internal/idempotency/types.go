package idempotency

import (
	"errors"
	"time"
)

// Status values for ledger entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// DefaultLease bounds how long an IN_PROGRESS entry blocks a new attempt. An entry older
// than this is treated as abandoned (the process died mid-submission).
const DefaultLease = 5 * time.Minute

var (
	// ErrSubmissionInFlight is returned by Begin while another submission of the same order is running.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrAlreadySubmitted is returned by Begin once the order has been accepted remotely.
	ErrAlreadySubmitted = errors.New("order already submitted")
)

// Record is the shape persisted per order reference.
type Record struct {
	OrderRef  string    `dynamodbav:"order_ref"` // PK
	Status    string    `dynamodbav:"status"`
	RemoteID  string    `dynamodbav:"remote_id,omitempty"`
	StartedAt int64     `dynamodbav:"started_at"` // epoch seconds of the current attempt
	CreatedAt time.Time `dynamodbav:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
	ExpiresAt int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note      string    `dynamodbav:"note,omitempty"`
}

// beginAllowed reports whether a new attempt may replace rec.
func beginAllowed(rec *Record, now time.Time, lease time.Duration) bool {
	if rec == nil || rec.Status == StatusFailed {
		return true
	}
	return rec.Status == StatusInProgress && rec.StartedAt < now.Add(-lease).Unix()
}

// refusal maps an existing entry that blocks Begin to its error.
func refusal(rec *Record) error {
	if rec != nil && rec.Status == StatusDone {
		return ErrAlreadySubmitted
	}
	return ErrSubmissionInFlight
}
