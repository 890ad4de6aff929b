package domain

import "time"

// Event is the canonical wire-level representation of a platform
// activity. Events are only ever replaced wholesale (a new Event from an
// Update activity), never partially mutated.
type Event struct {
	ID   ObjectID
	Kind Kind // KindGoodDeed, KindCrowdFunding or KindDoGoodEvent

	Name        string
	Description string
	ImageURL    string

	StartTime *time.Time
	EndTime   *time.Time
	// Duration is used by deed-style events that have no fixed start.
	Duration time.Duration

	// Deadline applies to deadline-style events and collect campaigns;
	// GoalAmount to collect campaigns only.
	Deadline   *time.Time
	GoalAmount int64

	// OrganizerIRI references the organizing actor. A child event's
	// organizer always equals its parent's.
	OrganizerIRI string

	Place *Place

	// ParentID links a slot event to its parent; SlotSeq is the
	// 1-based position of the slot within the parent.
	ParentID int64
	SlotSeq  int

	// ProjectID back-references the locally-adopted domain object, if
	// this remote-derived event has been adopted.
	ProjectID int64

	CreatedAt time.Time
}

func (e *Event) IRI(base string) string {
	if e.ID.RemoteIRI != "" {
		return e.ID.RemoteIRI
	}
	kind := e.Kind
	if e.ParentID != 0 {
		kind = KindSubEvent
	}
	return e.ID.IRI(base, kind)
}

// IsSlot reports whether the event is a child slot of a parent event.
func (e *Event) IsSlot() bool {
	return e.ParentID != 0
}

// Place locates an event.
type Place struct {
	Name    string
	Address *Address
}

// Address is the postal part of a place.
type Address struct {
	Street  string
	Zipcode string
	City    string
	Country string
}
