package activitypub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func jrdFor(actorIRI string) WebFingerResponse {
	return WebFingerResponse{
		Subject: actorIRI,
		Links: []WebFingerLink{
			{Rel: "self", Type: "application/ld+json", Href: actorIRI},
		},
	}
}

func TestDiscoverExactResource(t *testing.T) {
	e := newTestEngine(t)

	var queried []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resource := r.URL.Query().Get("resource")
		queried = append(queried, resource)
		w.Header().Set("Content-Type", "application/jrd+json")
		json.NewEncoder(w).Encode(jrdFor("http://" + r.Host + "/organization/1"))
	}))
	defer server.Close()

	actorIRI, err := e.Discover(server.URL + "/some/profile")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if actorIRI != server.URL+"/organization/1" {
		t.Errorf("Expected actor IRI, got %q", actorIRI)
	}
	if len(queried) != 1 || queried[0] != server.URL+"/some/profile" {
		t.Errorf("Expected one query with the exact URL, got %v", queried)
	}
}

func TestDiscoverOriginFallback(t *testing.T) {
	e := newTestEngine(t)

	var queried []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resource := r.URL.Query().Get("resource")
		queried = append(queried, resource)

		// Only the origin resolves; the exact URL is unknown.
		if resource != "http://"+r.Host {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/jrd+json")
		json.NewEncoder(w).Encode(jrdFor("http://" + r.Host + "/organization/1"))
	}))
	defer server.Close()

	actorIRI, err := e.Discover(server.URL + "/some/profile")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if actorIRI != server.URL+"/organization/1" {
		t.Errorf("Expected actor IRI, got %q", actorIRI)
	}
	if len(queried) != 2 {
		t.Fatalf("Expected exact query then origin fallback, got %v", queried)
	}
	if queried[1] != server.URL {
		t.Errorf("Expected origin fallback query, got %q", queried[1])
	}
}

func TestDiscoverNoActorLink(t *testing.T) {
	e := newTestEngine(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/jrd+json")
		json.NewEncoder(w).Encode(WebFingerResponse{Subject: "whatever"})
	}))
	defer server.Close()

	if _, err := e.Discover(server.URL); err == nil {
		t.Error("Expected error when the response carries no actor link")
	}
}

func TestDiscoverInvalidURL(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.Discover("not a url"); err == nil {
		t.Error("Expected error for an invalid partner URL")
	}
}
