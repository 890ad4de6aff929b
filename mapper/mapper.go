// Package mapper translates between the platform's domain projects and
// the canonical Event representation exchanged over the wire.
package mapper

import (
	"fmt"
	"net/http"
	"time"

	"github.com/benkert/gutwerk/db"
	"github.com/benkert/gutwerk/domain"
	"github.com/benkert/gutwerk/util"
)

// Mapper implements per project kind to-event translation and the
// reverse direction, adoption of a remote event into a local project.
type Mapper struct {
	db     *db.DB
	conf   *util.AppConfig
	client *http.Client
}

func New(database *db.DB, conf *util.AppConfig) *Mapper {
	return &Mapper{
		db:     database,
		conf:   conf,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// toEventFunc maps one project kind to its wire representation. The
// returned children are non-nil only for multi-slot projects.
type toEventFunc func(p *domain.Project, organizerIRI string) (*domain.Event, []*domain.Event)

// toEventFuncs is the complete translation table; every project kind has
// exactly one entry.
var toEventFuncs = map[domain.ProjectKind]toEventFunc{
	domain.ProjectDeed:     deedToEvent,
	domain.ProjectDate:     dateToEvent,
	domain.ProjectDeadline: deadlineToEvent,
	domain.ProjectCollect:  collectToEvent,
}

// ToEvent translates a domain project into its canonical Event. For
// date-based projects with more than one slot the result is a parent
// event plus one child per slot.
func (m *Mapper) ToEvent(p *domain.Project, organizerIRI string) (*domain.Event, []*domain.Event, error) {
	f, ok := toEventFuncs[p.Kind]
	if !ok {
		return nil, nil, fmt.Errorf("no event mapping for project kind %q", p.Kind)
	}
	parent, children := f(p, organizerIRI)
	parent.ImageURL = m.imageURL(p)
	return parent, children, nil
}

func baseEvent(p *domain.Project, kind domain.Kind, organizerIRI string) *domain.Event {
	return &domain.Event{
		Kind:         kind,
		Name:         p.Title,
		Description:  p.Description,
		OrganizerIRI: organizerIRI,
		ProjectID:    p.ID,
		CreatedAt:    time.Now(),
	}
}

// imageURL makes the project image addressable by partners; stored
// paths become absolute local media URLs.
func (m *Mapper) imageURL(p *domain.Project) string {
	if p.ImagePath == "" {
		return ""
	}
	return fmt.Sprintf("https://%s/media/images/%s", m.conf.Conf.Domain, p.ImagePath)
}

func deedToEvent(p *domain.Project, organizerIRI string) (*domain.Event, []*domain.Event) {
	ev := baseEvent(p, domain.KindGoodDeed, organizerIRI)
	ev.Duration = p.Duration
	return ev, nil
}

func dateToEvent(p *domain.Project, organizerIRI string) (*domain.Event, []*domain.Event) {
	ev := baseEvent(p, domain.KindDoGoodEvent, organizerIRI)

	if len(p.Slots) == 0 {
		return ev, nil
	}

	first := p.Slots[0]
	last := p.Slots[len(p.Slots)-1]

	if len(p.Slots) == 1 {
		ev.StartTime = &first.StartsAt
		ev.EndTime = &first.EndsAt
		return ev, nil
	}

	// Multi-slot: the parent spans the first slot's start to the last
	// slot's end, each slot becomes a child named after its sequence.
	ev.StartTime = &first.StartsAt
	ev.EndTime = &last.EndsAt

	children := make([]*domain.Event, len(p.Slots))
	for i, slot := range p.Slots {
		start := slot.StartsAt
		end := slot.EndsAt
		children[i] = &domain.Event{
			Kind:         domain.KindDoGoodEvent,
			Name:         fmt.Sprintf("%s (%d)", p.Title, slot.Seq),
			Description:  p.Description,
			OrganizerIRI: organizerIRI,
			StartTime:    &start,
			EndTime:      &end,
			SlotSeq:      slot.Seq,
			CreatedAt:    time.Now(),
		}
	}
	return ev, children
}

func deadlineToEvent(p *domain.Project, organizerIRI string) (*domain.Event, []*domain.Event) {
	ev := baseEvent(p, domain.KindDoGoodEvent, organizerIRI)
	ev.Deadline = p.Deadline
	ev.EndTime = p.Deadline
	return ev, nil
}

func collectToEvent(p *domain.Project, organizerIRI string) (*domain.Event, []*domain.Event) {
	ev := baseEvent(p, domain.KindCrowdFunding, organizerIRI)
	ev.Deadline = p.Deadline
	ev.GoalAmount = p.GoalAmount
	return ev, nil
}

// projectKindOf classifies a remote event for adoption.
func projectKindOf(ev *domain.Event, slots int) domain.ProjectKind {
	switch ev.Kind {
	case domain.KindGoodDeed:
		return domain.ProjectDeed
	case domain.KindCrowdFunding:
		return domain.ProjectCollect
	}
	if slots == 0 && ev.Deadline != nil {
		return domain.ProjectDeadline
	}
	return domain.ProjectDate
}
