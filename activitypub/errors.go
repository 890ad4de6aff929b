package activitypub

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied means the caller is authenticated (or anonymous)
// but not entitled to deliver the activity in question.
var ErrPermissionDenied = errors.New("permission denied")

// ErrNoPlatformActor means the instance has no configured Organization
// actor; federation cannot work without one.
var ErrNoPlatformActor = errors.New("no platform actor configured")

// DeliveryError reports a failed POST to one remote inbox. Delivery is
// best-effort, so these are logged and surfaced to the caller as a
// per-recipient result, never as a rolled-back local state change.
type DeliveryError struct {
	InboxIRI string
	Status   int
	Err      error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery to %s failed: %v", e.InboxIRI, e.Err)
	}
	return fmt.Sprintf("delivery to %s failed: remote returned status %d", e.InboxIRI, e.Status)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
