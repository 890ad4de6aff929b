package mapper

import (
	"testing"
	"time"

	"github.com/benkert/gutwerk/domain"
)

func storeRemoteEvent(t *testing.T, m *Mapper, ev *domain.Event) *domain.Event {
	t.Helper()
	err, stored := m.db.GetOrCreateEvent(ev)
	if err != nil {
		t.Fatalf("GetOrCreateEvent failed: %v", err)
	}
	return stored
}

func TestAdoptGoodDeed(t *testing.T) {
	m := newTestMapper(t)

	ev := storeRemoteEvent(t, m, &domain.Event{
		ID:           domain.RemoteID("https://partner.example/good-deed/4"),
		Kind:         domain.KindGoodDeed,
		Name:         "Read to seniors",
		Description:  "Weekly reading hour",
		Duration:     time.Hour,
		OrganizerIRI: "https://partner.example/organization/1",
		CreatedAt:    time.Now(),
	})

	p, err := m.Adopt(ev)
	if err != nil {
		t.Fatalf("Adopt failed: %v", err)
	}
	if p.Kind != domain.ProjectDeed {
		t.Errorf("expected deed project, got %q", p.Kind)
	}
	if p.Title != "Read to seniors" {
		t.Errorf("unexpected title %q", p.Title)
	}
	if p.Duration != time.Hour {
		t.Errorf("duration = %v, want 1h", p.Duration)
	}
	if p.SourceEventIRI != "https://partner.example/good-deed/4" {
		t.Errorf("source event back-reference missing: %q", p.SourceEventIRI)
	}

	err, back := m.db.ReadEventById(ev.ID.LocalID)
	if err != nil {
		t.Fatalf("ReadEventById failed: %v", err)
	}
	if back.ProjectID != p.ID {
		t.Errorf("event project back-reference = %d, want %d", back.ProjectID, p.ID)
	}
}

func TestAdoptIdempotent(t *testing.T) {
	m := newTestMapper(t)

	ev := storeRemoteEvent(t, m, &domain.Event{
		ID:           domain.RemoteID("https://partner.example/good-deed/4"),
		Kind:         domain.KindGoodDeed,
		Name:         "Read to seniors",
		Duration:     time.Hour,
		OrganizerIRI: "https://partner.example/organization/1",
		CreatedAt:    time.Now(),
	})

	first, err := m.Adopt(ev)
	if err != nil {
		t.Fatalf("first Adopt failed: %v", err)
	}
	second, err := m.Adopt(ev)
	if err != nil {
		t.Fatalf("second Adopt failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("re-adoption created a new project: %d != %d", first.ID, second.ID)
	}
}

func TestAdoptMultiSlotEvent(t *testing.T) {
	m := newTestMapper(t)

	day := func(d, h int) time.Time {
		return time.Date(2026, 4, d, h, 0, 0, 0, time.UTC)
	}
	start, end := day(4, 9), day(18, 12)
	parent := &domain.Event{
		ID:           domain.RemoteID("https://partner.example/do-good-event/9"),
		Kind:         domain.KindDoGoodEvent,
		Name:         "Tree planting",
		OrganizerIRI: "https://partner.example/organization/1",
		StartTime:    &start,
		EndTime:      &end,
		CreatedAt:    time.Now(),
	}
	s1, e1 := day(4, 9), day(4, 12)
	s2, e2 := day(18, 9), day(18, 12)
	children := []*domain.Event{
		{ID: domain.RemoteID("https://partner.example/sub-event/10"), Kind: domain.KindDoGoodEvent, Name: "Tree planting (1)", SlotSeq: 1, StartTime: &s1, EndTime: &e1, CreatedAt: time.Now()},
		{ID: domain.RemoteID("https://partner.example/sub-event/11"), Kind: domain.KindDoGoodEvent, Name: "Tree planting (2)", SlotSeq: 2, StartTime: &s2, EndTime: &e2, CreatedAt: time.Now()},
	}
	if err := m.db.CreateEventTree(parent, children); err != nil {
		t.Fatalf("CreateEventTree failed: %v", err)
	}

	p, err := m.Adopt(parent)
	if err != nil {
		t.Fatalf("Adopt failed: %v", err)
	}
	if p.Kind != domain.ProjectDate {
		t.Errorf("expected date project, got %q", p.Kind)
	}
	if len(p.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(p.Slots))
	}
	if p.Slots[0].Seq != 1 || !p.Slots[0].StartsAt.Equal(s1) {
		t.Errorf("slot 1 mismatch: %+v", p.Slots[0])
	}
	if p.Slots[1].Seq != 2 || !p.Slots[1].EndsAt.Equal(e2) {
		t.Errorf("slot 2 mismatch: %+v", p.Slots[1])
	}
}

func TestAdoptDeadlineEvent(t *testing.T) {
	m := newTestMapper(t)

	deadline := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	ev := storeRemoteEvent(t, m, &domain.Event{
		ID:           domain.RemoteID("https://partner.example/do-good-event/5"),
		Kind:         domain.KindDoGoodEvent,
		Name:         "Signature drive",
		Deadline:     &deadline,
		OrganizerIRI: "https://partner.example/organization/1",
		CreatedAt:    time.Now(),
	})

	p, err := m.Adopt(ev)
	if err != nil {
		t.Fatalf("Adopt failed: %v", err)
	}
	if p.Kind != domain.ProjectDeadline {
		t.Errorf("expected deadline project, got %q", p.Kind)
	}
	if p.Deadline == nil || !p.Deadline.Equal(deadline) {
		t.Errorf("deadline not carried over: %v", p.Deadline)
	}
}

func TestAdoptCrowdFunding(t *testing.T) {
	m := newTestMapper(t)

	deadline := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	ev := storeRemoteEvent(t, m, &domain.Event{
		ID:           domain.RemoteID("https://partner.example/crowd-funding/2"),
		Kind:         domain.KindCrowdFunding,
		Name:         "School garden",
		Deadline:     &deadline,
		GoalAmount:   12000,
		OrganizerIRI: "https://partner.example/organization/1",
		CreatedAt:    time.Now(),
	})

	p, err := m.Adopt(ev)
	if err != nil {
		t.Fatalf("Adopt failed: %v", err)
	}
	if p.Kind != domain.ProjectCollect {
		t.Errorf("expected collect project, got %q", p.Kind)
	}
	if p.GoalAmount != 12000 {
		t.Errorf("goal amount = %d, want 12000", p.GoalAmount)
	}
}

func TestAdoptLocalEventRejected(t *testing.T) {
	m := newTestMapper(t)

	ev := &domain.Event{Kind: domain.KindGoodDeed, Name: "Local deed", CreatedAt: time.Now()}
	if err := m.db.CreateEvent(ev); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if _, err := m.Adopt(ev); err == nil {
		t.Error("adopting a local event should fail")
	}
}
