package domain

import "time"

// AdoptionMode controls whether events from a followed platform are
// adopted automatically or held for manual review.
type AdoptionMode string

const (
	AdoptManual    AdoptionMode = "manual"
	AdoptAutomatic AdoptionMode = "automatic"
)

// AdoptionType controls what an adoption produces: a link back to the
// origin, or a full local copy.
type AdoptionType string

const (
	AdoptLink AdoptionType = "link"
	AdoptCopy AdoptionType = "copy"
)

// Activity is one concrete federated activity. Kind drives which fields
// apply; activities are created once and never mutated afterwards.
type Activity struct {
	ID   ObjectID
	Kind Kind

	// ActorIRI performed the activity, ObjectIRI is what it acted upon.
	ActorIRI  string
	ObjectIRI string

	// To is the audience: every listed actor must receive delivery.
	To []string

	// Follow only.
	AdoptionMode AdoptionMode
	AdoptionType AdoptionType

	RawJSON   string
	Local     bool
	CreatedAt time.Time
}

func (a *Activity) IRI(base string) string {
	return a.ID.IRI(base, a.Kind)
}

// Recipient records, per local activity, one audience actor and whether
// delivery to it has succeeded. The send flag enables per-recipient
// re-delivery.
type Recipient struct {
	ID         int64
	ActivityID int64
	ActorIRI   string
	Send       bool
	CreatedAt  time.Time
}
