package activitypub

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/benkert/gutwerk/domain"
	"github.com/benkert/gutwerk/jsonld"
)

// SyncActor fetches-or-reuses an actor by IRI. A fresh cached record is
// returned as-is; a stale one is re-fetched and updated in place. Two
// concurrent first syncs of the same IRI still produce one record, the
// store retries get-or-create on a unique violation.
func (e *Engine) SyncActor(iri string) (*domain.Actor, error) {
	err, cached := e.db.ReadActorByIRI(iri)
	if err == nil && time.Since(cached.LastFetchedAt) < actorCacheTTL {
		return cached, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	fetched, err := e.FetchRemoteActor(iri)
	if err != nil {
		// A stale cached record beats a failed fetch.
		if cached != nil {
			log.Warnf("Sync: Re-fetch of %s failed, serving cached record: %v", iri, err)
			return cached, nil
		}
		return nil, err
	}

	if cached != nil {
		fetched.ID = cached.ID
		if err := e.db.UpdateActor(fetched); err != nil {
			return nil, err
		}
		return fetched, nil
	}

	err, stored := e.db.GetOrCreateActor(fetched)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// FetchRemoteActor performs a signed GET for an actor document and
// decodes it. It does not touch the store.
func (e *Engine) FetchRemoteActor(iri string) (*domain.Actor, error) {
	raw, err := e.signedGet(iri)
	if err != nil {
		return nil, err
	}
	return e.ActorFromDocument(raw, iri)
}

// SyncEvent fetches-or-reuses an event by IRI: repeated references to
// the same remote IRI produce exactly one local record, and references
// to one of our own event URLs resolve through the store rather than a
// fetch against ourselves. The concrete kind is read off the fetched
// document's expanded @type.
func (e *Engine) SyncEvent(iri string) (*domain.Event, error) {
	if id, ok := e.localEventID(iri); ok {
		err, ev := e.db.ReadEventById(id)
		if err != nil {
			return nil, fmt.Errorf("unknown local event %s: %w", iri, err)
		}
		return ev, nil
	}

	err, existing := e.db.ReadEventByIRI(iri)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	raw, err := e.signedGet(iri)
	if err != nil {
		return nil, err
	}

	kind, err := e.eventKindOf(raw)
	if err != nil {
		return nil, err
	}
	return e.SaveEventGraph(raw, kind)
}

// localEventID parses one of our own event URLs into its numeric key.
// Local objects store no IRI, so IRI lookups can never resolve them.
func (e *Engine) localEventID(iri string) (int64, bool) {
	rest, ok := strings.CutPrefix(iri, e.conf.BaseURL()+"/")
	if !ok {
		return 0, false
	}
	seg, idStr, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, false
	}
	for _, kind := range append(domain.EventKinds(), domain.KindSubEvent) {
		if kind.Path() != seg {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

// RefetchEvent replaces the stored event with a freshly fetched copy.
// Update handling goes through here instead of trusting inline payload
// data, activities may arrive out of causal order.
func (e *Engine) RefetchEvent(iri string) (*domain.Event, error) {
	raw, err := e.signedGet(iri)
	if err != nil {
		return nil, err
	}

	kind, err := e.eventKindOf(raw)
	if err != nil {
		return nil, err
	}

	ev, _, err := e.EventFromDocument(raw, kind)
	if err != nil {
		return nil, err
	}

	if err := e.db.ReplaceEventByIRI(iri, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// signedGet performs a GET signed with the platform actor's key and
// parses the response body as a wire document.
func (e *Engine) signedGet(iri string) (map[string]interface{}, error) {
	err, platform := e.db.ReadPlatformActor()
	if err != nil {
		return nil, ErrNoPlatformActor
	}

	req, err := http.NewRequest(http.MethodGet, iri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/ld+json, application/activity+json")
	req.Header.Set("User-Agent", e.userAgent())
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Host", req.URL.Host)

	privateKey, err := ParsePrivateKey(platform.PrivateKeyPem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse platform key: %w", err)
	}

	if err := SignRequest(req, privateKey, platform.KeyID(e.conf.BaseURL()), defaultAlgorithm); err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch of %s failed with status: %d", iri, resp.StatusCode)
	}

	return jsonld.ParseBody(resp.Body)
}
