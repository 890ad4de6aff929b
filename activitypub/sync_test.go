package activitypub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benkert/gutwerk/domain"
	"github.com/benkert/gutwerk/util"
)

// remoteActorHandler serves an actor document under /organization/1 and
// counts fetches.
func remoteActorHandler(t *testing.T, fetches *atomic.Int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/organization/1" {
			http.NotFound(w, r)
			return
		}
		fetches.Add(1)

		keys, err := util.GeneratePemKeypair()
		if err != nil {
			t.Errorf("Failed to generate keypair: %v", err)
		}

		base := "http://" + r.Host
		w.Header().Set("Content-Type", "application/ld+json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"@context":          domain.Contexts(),
			"id":                base + "/organization/1",
			"type":              "Organization",
			"preferredUsername": "partner",
			"name":              "Partner Platform",
			"inbox":             base + "/inbox/1",
			"outbox":            base + "/outbox/1",
			"publicKey": map[string]interface{}{
				"id":           base + "/organization/1#main-key",
				"owner":        base + "/organization/1",
				"publicKeyPem": keys.Public,
			},
		})
	})
}

func TestSyncActorIdempotent(t *testing.T) {
	e := newTestEngine(t)
	bootstrapPlatform(t, e)

	var fetches atomic.Int64
	server := httptest.NewServer(remoteActorHandler(t, &fetches))
	defer server.Close()

	iri := server.URL + "/organization/1"

	first, err := e.SyncActor(iri)
	if err != nil {
		t.Fatalf("First SyncActor failed: %v", err)
	}
	if first.Username != "partner" {
		t.Errorf("Expected fetched username, got %q", first.Username)
	}
	if first.InboxIRI != server.URL+"/inbox/1" {
		t.Errorf("Expected fetched inbox, got %q", first.InboxIRI)
	}

	second, err := e.SyncActor(iri)
	if err != nil {
		t.Fatalf("Second SyncActor failed: %v", err)
	}

	if first.ID.LocalID != second.ID.LocalID {
		t.Errorf("Same IRI must map to one record, got ids %d and %d", first.ID.LocalID, second.ID.LocalID)
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("Expected exactly one fetch for a fresh cached actor, got %d", n)
	}
}

func TestSyncActorUnreachable(t *testing.T) {
	e := newTestEngine(t)
	bootstrapPlatform(t, e)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := e.SyncActor(server.URL + "/organization/1"); err == nil {
		t.Error("Expected error for an unreachable actor")
	}
}

func TestSyncActorNoPlatformActor(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.SyncActor("https://partner.example/organization/1")
	if err == nil {
		t.Error("Expected error when no platform actor is configured")
	}
}

func TestSyncEventIdempotent(t *testing.T) {
	e := newTestEngine(t)
	bootstrapPlatform(t, e)

	var fetches atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		base := "http://" + r.Host
		w.Header().Set("Content-Type", "application/ld+json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"@context":  domain.Contexts(),
			"id":        base + "/good-deed/5",
			"type":      "GoodDeed",
			"name":      "Walk the neighbor's dog",
			"duration":  "1h0m0s",
			"organizer": "https://partner.example/organization/1",
		})
	}))
	defer server.Close()

	iri := server.URL + "/good-deed/5"

	first, err := e.SyncEvent(iri)
	if err != nil {
		t.Fatalf("First SyncEvent failed: %v", err)
	}
	if first.Kind != domain.KindGoodDeed {
		t.Errorf("Expected GoodDeed, got %s", first.Kind)
	}

	second, err := e.SyncEvent(iri)
	if err != nil {
		t.Fatalf("Second SyncEvent failed: %v", err)
	}

	if first.ID.LocalID != second.ID.LocalID {
		t.Errorf("Same IRI must map to one record, got ids %d and %d", first.ID.LocalID, second.ID.LocalID)
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("Expected exactly one fetch, got %d", n)
	}
}

func TestSyncEventLocalIRIResolvesFromStore(t *testing.T) {
	e := newTestEngine(t)
	// Deliberately no platform actor: a local reference that hit the
	// network would fail on the missing signing key.

	ev := &domain.Event{
		Kind:      domain.KindDoGoodEvent,
		Name:      "Park day",
		CreatedAt: time.Now(),
	}
	if err := e.db.CreateEvent(ev); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	iri := "https://local.example/do-good-event/1"
	synced, err := e.SyncEvent(iri)
	if err != nil {
		t.Fatalf("SyncEvent failed for own IRI: %v", err)
	}
	if synced.ID.LocalID != ev.ID.LocalID {
		t.Errorf("Own IRI must resolve to the existing record, got id %d", synced.ID.LocalID)
	}

	err, events := e.db.ReadLocalEvents(10)
	if err != nil {
		t.Fatalf("ReadLocalEvents failed: %v", err)
	}
	if len(*events) != 1 {
		t.Errorf("Expected exactly one record for the logical object, got %d", len(*events))
	}
}

func TestSyncEventLocalIRIUnknown(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.SyncEvent("https://local.example/do-good-event/99"); err == nil {
		t.Error("Unknown local event IRI must fail, not fetch")
	}
}

func TestLocalEventID(t *testing.T) {
	e := newTestEngine(t)

	cases := []struct {
		iri string
		id  int64
		ok  bool
	}{
		{"https://local.example/do-good-event/7", 7, true},
		{"https://local.example/sub-event/3", 3, true},
		{"https://local.example/good-deed/1", 1, true},
		{"https://local.example/organization/1", 0, false},
		{"https://local.example/do-good-event/abc", 0, false},
		{"https://partner.example/do-good-event/7", 0, false},
	}
	for _, c := range cases {
		id, ok := e.localEventID(c.iri)
		if id != c.id || ok != c.ok {
			t.Errorf("localEventID(%q) = (%d, %v), want (%d, %v)", c.iri, id, ok, c.id, c.ok)
		}
	}
}
