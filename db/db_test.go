package db

import (
	"testing"
	"time"

	"github.com/benkert/gutwerk/domain"
)

// setupTestDB creates an in-memory store for testing
func setupTestDB(t *testing.T) *DB {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func remoteActor(iri string) *domain.Actor {
	return &domain.Actor{
		ID:            domain.RemoteID(iri),
		Kind:          domain.KindOrganization,
		Username:      "partner",
		Name:          "Partner Platform",
		InboxIRI:      iri + "/inbox",
		OutboxIRI:     iri + "/outbox",
		PublicKeyPem:  "-----BEGIN PUBLIC KEY-----",
		LastFetchedAt: time.Now(),
		CreatedAt:     time.Now(),
	}
}

func TestCreateActorAssignsLocalID(t *testing.T) {
	db := setupTestDB(t)

	actor := &domain.Actor{
		Kind:      domain.KindPerson,
		Username:  "alice",
		Name:      "Alice",
		CreatedAt: time.Now(),
	}
	if err := db.CreateActor(actor); err != nil {
		t.Fatalf("CreateActor failed: %v", err)
	}
	if actor.ID.LocalID == 0 {
		t.Error("CreateActor should assign a numeric key")
	}
	if !actor.ID.IsLocal() {
		t.Error("Actor without remote IRI should be local")
	}
}

func TestGetOrCreateActorIdempotent(t *testing.T) {
	db := setupTestDB(t)
	iri := "https://partner.example/organization/1"

	err, first := db.GetOrCreateActor(remoteActor(iri))
	if err != nil {
		t.Fatalf("First GetOrCreateActor failed: %v", err)
	}

	err, second := db.GetOrCreateActor(remoteActor(iri))
	if err != nil {
		t.Fatalf("Second GetOrCreateActor failed: %v", err)
	}

	if first.ID.LocalID != second.ID.LocalID {
		t.Errorf("Same IRI must map to one record, got ids %d and %d", first.ID.LocalID, second.ID.LocalID)
	}
}

func TestReadPlatformActor(t *testing.T) {
	db := setupTestDB(t)

	err, _ := db.ReadPlatformActor()
	if err == nil {
		t.Fatal("Expected error when no platform actor exists")
	}

	org := &domain.Actor{Kind: domain.KindOrganization, Username: "gutwerk", CreatedAt: time.Now()}
	if err := db.CreateActor(org); err != nil {
		t.Fatalf("CreateActor failed: %v", err)
	}

	// Remote organizations never qualify as the platform actor.
	db.GetOrCreateActor(remoteActor("https://partner.example/organization/9"))

	err, platform := db.ReadPlatformActor()
	if err != nil {
		t.Fatalf("ReadPlatformActor failed: %v", err)
	}
	if platform.ID.LocalID != org.ID.LocalID {
		t.Errorf("Expected platform actor %d, got %d", org.ID.LocalID, platform.ID.LocalID)
	}
}

func TestDeleteActorRemovesOwnedObjects(t *testing.T) {
	db := setupTestDB(t)

	actor := remoteActor("https://partner.example/organization/2")
	if err := db.CreateActor(actor); err != nil {
		t.Fatalf("CreateActor failed: %v", err)
	}

	if err := db.DeleteActor(actor.ID.LocalID); err != nil {
		t.Fatalf("DeleteActor failed: %v", err)
	}

	err, _ := db.ReadActorByIRI(actor.ID.RemoteIRI)
	if err == nil {
		t.Error("Deleted actor should not be readable; inbox, outbox and key go with the row")
	}
}

func TestFollowPairUnique(t *testing.T) {
	db := setupTestDB(t)

	follow := func() *domain.Activity {
		return &domain.Activity{
			Kind:         domain.KindFollow,
			ActorIRI:     "https://local.example/organization/1",
			ObjectIRI:    "https://partner.example/organization/1",
			AdoptionMode: domain.AdoptManual,
			AdoptionType: domain.AdoptLink,
			Local:        true,
			CreatedAt:    time.Now(),
		}
	}

	err, first := db.CreateFollow(follow())
	if err != nil {
		t.Fatalf("First CreateFollow failed: %v", err)
	}

	err, second := db.CreateFollow(follow())
	if err != nil {
		t.Fatalf("Re-follow should be idempotent, got: %v", err)
	}

	if first.ID.LocalID != second.ID.LocalID {
		t.Errorf("Re-follow must return the existing record, got ids %d and %d", first.ID.LocalID, second.ID.LocalID)
	}
}

func TestHasLocalFollowOf(t *testing.T) {
	db := setupTestDB(t)
	partner := "https://partner.example/organization/1"

	err, has := db.HasLocalFollowOf(partner)
	if err != nil {
		t.Fatalf("HasLocalFollowOf failed: %v", err)
	}
	if has {
		t.Error("No follow exists yet")
	}

	db.CreateFollow(&domain.Activity{
		Kind:      domain.KindFollow,
		ActorIRI:  "https://local.example/organization/1",
		ObjectIRI: partner,
		Local:     true,
		CreatedAt: time.Now(),
	})

	err, has = db.HasLocalFollowOf(partner)
	if err != nil {
		t.Fatalf("HasLocalFollowOf failed: %v", err)
	}
	if !has {
		t.Error("Expected outgoing follow to be found")
	}
}

func TestHasAcceptedFollowFrom(t *testing.T) {
	db := setupTestDB(t)
	caller := "https://partner.example/organization/1"
	followIRI := "https://partner.example/follow/7"

	err, has := db.HasAcceptedFollowFrom(caller)
	if err != nil {
		t.Fatalf("HasAcceptedFollowFrom failed: %v", err)
	}
	if has {
		t.Error("No accept exists yet")
	}

	// Their follow of us, then our accept wrapping it.
	db.CreateActivity(&domain.Activity{
		ID:        domain.RemoteID(followIRI),
		Kind:      domain.KindFollow,
		ActorIRI:  caller,
		ObjectIRI: "https://local.example/organization/1",
		CreatedAt: time.Now(),
	})
	db.CreateActivity(&domain.Activity{
		Kind:      domain.KindAccept,
		ActorIRI:  "https://local.example/organization/1",
		ObjectIRI: followIRI,
		Local:     true,
		CreatedAt: time.Now(),
	})

	err, has = db.HasAcceptedFollowFrom(caller)
	if err != nil {
		t.Fatalf("HasAcceptedFollowFrom failed: %v", err)
	}
	if !has {
		t.Error("Expected accepted follow to be found")
	}
}

func TestGetOrCreateActivityIdempotent(t *testing.T) {
	db := setupTestDB(t)
	iri := "https://partner.example/publish/3"

	activity := func() *domain.Activity {
		return &domain.Activity{
			ID:        domain.RemoteID(iri),
			Kind:      domain.KindPublish,
			ActorIRI:  "https://partner.example/organization/1",
			ObjectIRI: "https://partner.example/do-good-event/5",
			CreatedAt: time.Now(),
		}
	}

	err, first := db.GetOrCreateActivity(activity())
	if err != nil {
		t.Fatalf("First GetOrCreateActivity failed: %v", err)
	}
	err, second := db.GetOrCreateActivity(activity())
	if err != nil {
		t.Fatalf("Second GetOrCreateActivity failed: %v", err)
	}
	if first.ID.LocalID != second.ID.LocalID {
		t.Errorf("Same IRI must map to one record, got ids %d and %d", first.ID.LocalID, second.ID.LocalID)
	}
}

func TestRecipients(t *testing.T) {
	db := setupTestDB(t)

	act := &domain.Activity{
		Kind:      domain.KindPublish,
		ActorIRI:  "https://local.example/organization/1",
		ObjectIRI: "https://local.example/do-good-event/1",
		Local:     true,
		CreatedAt: time.Now(),
	}
	if err := db.CreateActivity(act); err != nil {
		t.Fatalf("CreateActivity failed: %v", err)
	}

	rec := &domain.Recipient{
		ActivityID: act.ID.LocalID,
		ActorIRI:   "https://partner.example/organization/1",
		CreatedAt:  time.Now(),
	}
	if err := db.CreateRecipient(rec); err != nil {
		t.Fatalf("CreateRecipient failed: %v", err)
	}

	if err := db.MarkRecipientSent(act.ID.LocalID, rec.ActorIRI); err != nil {
		t.Fatalf("MarkRecipientSent failed: %v", err)
	}

	err, recipients := db.ReadRecipients(act.ID.LocalID)
	if err != nil {
		t.Fatalf("ReadRecipients failed: %v", err)
	}
	if len(*recipients) != 1 {
		t.Fatalf("Expected 1 recipient, got %d", len(*recipients))
	}
	if !(*recipients)[0].Send {
		t.Error("Recipient should be marked as sent")
	}
}

func TestCreateEventTree(t *testing.T) {
	db := setupTestDB(t)

	start1 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	end1 := start1.Add(2 * time.Hour)
	start2 := start1.AddDate(0, 0, 7)
	end2 := start2.Add(2 * time.Hour)

	parent := &domain.Event{
		Kind:         domain.KindDoGoodEvent,
		Name:         "Repair café",
		OrganizerIRI: "https://local.example/organization/1",
		StartTime:    &start1,
		EndTime:      &end2,
		CreatedAt:    time.Now(),
	}
	children := []*domain.Event{
		{Kind: domain.KindDoGoodEvent, Name: "Repair café (1)", SlotSeq: 1, StartTime: &start1, EndTime: &end1, CreatedAt: time.Now()},
		{Kind: domain.KindDoGoodEvent, Name: "Repair café (2)", SlotSeq: 2, StartTime: &start2, EndTime: &end2, CreatedAt: time.Now()},
	}

	if err := db.CreateEventTree(parent, children); err != nil {
		t.Fatalf("CreateEventTree failed: %v", err)
	}

	err, got := db.ReadChildEvents(parent.ID.LocalID)
	if err != nil {
		t.Fatalf("ReadChildEvents failed: %v", err)
	}
	if len(*got) != 2 {
		t.Fatalf("Expected 2 children, got %d", len(*got))
	}
	for _, child := range *got {
		if child.OrganizerIRI != parent.OrganizerIRI {
			t.Errorf("Child organizer %q must equal parent organizer %q", child.OrganizerIRI, parent.OrganizerIRI)
		}
	}
}

func TestGetOrCreateEventIdempotent(t *testing.T) {
	db := setupTestDB(t)
	iri := "https://partner.example/do-good-event/5"

	event := func() *domain.Event {
		return &domain.Event{
			ID:           domain.RemoteID(iri),
			Kind:         domain.KindDoGoodEvent,
			Name:         "River cleanup",
			OrganizerIRI: "https://partner.example/organization/1",
			CreatedAt:    time.Now(),
		}
	}

	err, first := db.GetOrCreateEvent(event())
	if err != nil {
		t.Fatalf("First GetOrCreateEvent failed: %v", err)
	}
	err, second := db.GetOrCreateEvent(event())
	if err != nil {
		t.Fatalf("Second GetOrCreateEvent failed: %v", err)
	}
	if first.ID.LocalID != second.ID.LocalID {
		t.Errorf("Same IRI must map to one record, got ids %d and %d", first.ID.LocalID, second.ID.LocalID)
	}
}

func TestProjectSourceEventUnique(t *testing.T) {
	db := setupTestDB(t)
	source := "https://partner.example/do-good-event/5"

	p := &domain.Project{
		Kind:           domain.ProjectDate,
		Title:          "River cleanup",
		SourceEventIRI: source,
		CreatedAt:      time.Now(),
	}
	if err := db.CreateProject(p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	dup := &domain.Project{
		Kind:           domain.ProjectDate,
		Title:          "River cleanup again",
		SourceEventIRI: source,
		CreatedAt:      time.Now(),
	}
	err := db.CreateProject(dup)
	if err == nil {
		t.Fatal("Second adoption of the same event must fail")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("Expected a unique violation, got: %v", err)
	}

	err, existing := db.ReadProjectBySourceEvent(source)
	if err != nil {
		t.Fatalf("ReadProjectBySourceEvent failed: %v", err)
	}
	if existing.ID != p.ID {
		t.Errorf("Expected project %d, got %d", p.ID, existing.ID)
	}
}

func TestProjectSlotsRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	p := &domain.Project{
		Kind:  domain.ProjectDate,
		Title: "Neighborhood help",
		Slots: []domain.ProjectSlot{
			{Seq: 1, StartsAt: start, EndsAt: start.Add(time.Hour)},
			{Seq: 2, StartsAt: start.AddDate(0, 0, 1), EndsAt: start.AddDate(0, 0, 1).Add(time.Hour)},
			{Seq: 3, StartsAt: start.AddDate(0, 0, 2), EndsAt: start.AddDate(0, 0, 2).Add(time.Hour)},
		},
		CreatedAt: time.Now(),
	}
	if err := db.CreateProject(p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	err, got := db.ReadProjectById(p.ID)
	if err != nil {
		t.Fatalf("ReadProjectById failed: %v", err)
	}
	if len(got.Slots) != 3 {
		t.Fatalf("Expected 3 slots, got %d", len(got.Slots))
	}
	if got.Slots[0].Seq != 1 || got.Slots[2].Seq != 3 {
		t.Error("Slots should come back ordered by seq")
	}
}

func TestReplaceEventKeepsProjectLink(t *testing.T) {
	db := setupTestDB(t)

	iri := "https://partner.example/good-deed/4"
	ev := &domain.Event{
		ID:        domain.RemoteID(iri),
		Kind:      domain.KindGoodDeed,
		Name:      "Read to seniors",
		CreatedAt: time.Now(),
	}
	if err := db.CreateEvent(ev); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if err := db.SetEventProject(ev.ID.LocalID, 42); err != nil {
		t.Fatalf("SetEventProject failed: %v", err)
	}

	replacement := &domain.Event{
		ID:        domain.RemoteID(iri),
		Kind:      domain.KindGoodDeed,
		Name:      "Read to seniors, weekly",
		CreatedAt: time.Now(),
	}
	if err := db.ReplaceEventByIRI(iri, replacement); err != nil {
		t.Fatalf("ReplaceEventByIRI failed: %v", err)
	}

	err, stored := db.ReadEventByIRI(iri)
	if err != nil {
		t.Fatalf("ReadEventByIRI failed: %v", err)
	}
	if stored.Name != "Read to seniors, weekly" {
		t.Errorf("Expected replaced name, got %q", stored.Name)
	}
	if stored.ProjectID != 42 {
		t.Errorf("Adoption back-reference lost: project_id = %d, want 42", stored.ProjectID)
	}
}
