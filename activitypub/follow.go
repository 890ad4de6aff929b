package activitypub

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/benkert/gutwerk/domain"
)

// Follow subscribes this platform to a partner identified by a
// human-entered URL. Discovery resolves the URL to the partner's
// representative actor; the local Follow record is created first and is
// the source of truth, delivery of the Follow activity is best-effort.
// Re-following the same partner returns the existing Follow.
func (e *Engine) Follow(rawURL string, mode domain.AdoptionMode, adoptionType domain.AdoptionType) (*domain.Activity, error) {
	actorIRI, err := e.Discover(rawURL)
	if err != nil {
		return nil, fmt.Errorf("discovery failed for %s: %w", rawURL, err)
	}

	partner, err := e.SyncActor(actorIRI)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch partner actor: %w", err)
	}

	err, platform := e.db.ReadPlatformActor()
	if err != nil {
		return nil, ErrNoPlatformActor
	}

	base := e.conf.BaseURL()
	follow := &domain.Activity{
		Kind:         domain.KindFollow,
		ActorIRI:     platform.IRI(base),
		ObjectIRI:    partner.IRI(base),
		AdoptionMode: mode,
		AdoptionType: adoptionType,
		Local:        true,
		CreatedAt:    time.Now(),
	}

	err, follow = e.db.CreateFollow(follow)
	if err != nil {
		return nil, fmt.Errorf("failed to store follow: %w", err)
	}

	doc := e.ActivityDocument(follow, follow.ObjectIRI)
	if err := e.SendActivity(doc, partner.Inbox(base)); err != nil {
		log.Warnf("Follow: Failed to deliver Follow to %s: %v", partner.Inbox(base), err)
	}

	return follow, nil
}
