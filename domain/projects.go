package domain

import "time"

// ProjectKind is the business-side classification of a local activity.
type ProjectKind string

const (
	ProjectDeed     ProjectKind = "deed"
	ProjectDate     ProjectKind = "date"
	ProjectDeadline ProjectKind = "deadline"
	ProjectCollect  ProjectKind = "collect"
)

// EventKind returns the wire-level event kind a project of this kind
// maps to.
func (k ProjectKind) EventKind() Kind {
	switch k {
	case ProjectDeed:
		return KindGoodDeed
	case ProjectCollect:
		return KindCrowdFunding
	default:
		return KindDoGoodEvent
	}
}

// Project is a domain activity of the platform: a deed, a date-based
// activity, a deadline activity or a collect campaign. Projects are what
// end users create; the mapper layer turns them into Events for the wire.
type Project struct {
	ID          int64
	Kind        ProjectKind
	Title       string
	Description string
	ImagePath   string

	// Deeds: the expected time commitment instead of a fixed schedule.
	Duration time.Duration

	// Date-based activities: one or more time slots.
	Slots []ProjectSlot

	// Deadline activities and collect campaigns.
	Deadline *time.Time

	// Collect campaigns only.
	GoalAmount int64

	// SourceEventIRI back-references the originating remote Event when
	// this project was created by adoption. Re-adoption of the same
	// event is detected through it.
	SourceEventIRI string

	CreatedAt time.Time
}

// ProjectSlot is one occurrence of a date-based activity.
type ProjectSlot struct {
	ID        int64
	ProjectID int64
	Seq       int
	StartsAt  time.Time
	EndsAt    time.Time
}
