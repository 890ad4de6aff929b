package activitypub

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/benkert/gutwerk/domain"
)

// Authenticate resolves the caller of a signed inbound request.
//
// A cryptographically unusable request (no signature, unknown key,
// invalid signature) yields a nil actor and a nil error: downstream
// permission checks treat the caller as anonymous. Only store and other
// internal failures surface as an error, so a broken database never
// masquerades as an unauthenticated caller.
func (e *Engine) Authenticate(r *http.Request) (*domain.Actor, error) {
	if r.Header.Get("Signature") == "" && r.Header.Get("Signature-Input") == "" {
		return nil, nil
	}

	keyId, err := KeyIdOf(r)
	if err != nil {
		log.Debugf("Auth: Unparseable signature: %v", err)
		return nil, nil
	}

	actor, err := e.ResolveKeyId(keyId)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		log.Debugf("Auth: Key %s does not resolve to an actor", keyId)
		return nil, nil
	}

	if _, err := VerifyRequest(r, actor.PublicKeyPem); err != nil {
		log.Debugf("Auth: Signature verification failed for %s: %v", keyId, err)
		return nil, nil
	}

	return actor, nil
}

// ResolveKeyId maps a key identifier to the actor owning the key. Local
// key URLs resolve through the store by numeric key; remote ones by IRI,
// fetching the actor on first contact. A nil actor with nil error means
// the key is unknown; an error means the store failed.
func (e *Engine) ResolveKeyId(keyId string) (*domain.Actor, error) {
	actorIRI := strings.Split(keyId, "#")[0]

	localKeyPrefix := e.conf.BaseURL() + "/" + domain.KindPublicKey.Path() + "/"
	if rest, ok := strings.CutPrefix(actorIRI, localKeyPrefix); ok {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return nil, nil
		}
		err, actor := e.db.ReadActorById(id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve local key %s: %w", keyId, err)
		}
		return actor, nil
	}

	err, actor := e.db.ReadActorByIRI(actorIRI)
	if err == nil {
		return actor, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to resolve key %s: %w", keyId, err)
	}

	// First contact: fetch the actor so its key becomes verifiable.
	actor, err = e.SyncActor(actorIRI)
	if err != nil {
		log.Debugf("Auth: Failed to fetch actor %s: %v", actorIRI, err)
		return nil, nil
	}
	return actor, nil
}
