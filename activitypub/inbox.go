package activitypub

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/benkert/gutwerk/domain"
)

// HandleInbox processes one inbound activity. The caller has already
// been authenticated (nil means anonymous); the body is the raw wire
// payload and raw its parsed form. Parse and type errors, permission
// denials and store failures are returned for the HTTP layer to map to
// status codes.
func (e *Engine) HandleInbox(caller *domain.Actor, raw map[string]interface{}, body []byte) error {
	act, _, err := e.ActivityFromDocument(raw)
	if err != nil {
		return err
	}
	act.RawJSON = string(body)

	if err := e.Admit(act.Kind, caller); err != nil {
		return err
	}

	log.Infof("Inbox: Received %s from %s", act.Kind, act.ActorIRI)

	switch act.Kind {
	case domain.KindFollow:
		return e.handleFollow(act)
	case domain.KindAccept:
		return e.handleAccept(act)
	case domain.KindPublish, domain.KindAnnounce, domain.KindCreate:
		return e.handlePublish(act, raw)
	case domain.KindUpdate:
		return e.handleUpdate(act)
	case domain.KindDelete:
		return e.handleDelete(act)
	case domain.KindCancel:
		return e.handleCancel(act)
	case domain.KindFinish:
		return e.storeActivity(act)
	}
	return ErrPermissionDenied
}

// Admit is the request-admission gate evaluated per activity kind:
//   - Follow: always admitted, anyone may request to follow.
//   - Announce: admitted only if the caller holds an accepted follow of
//     this platform.
//   - Everything else: admitted only if this platform has an outgoing
//     follow of the caller.
func (e *Engine) Admit(kind domain.Kind, caller *domain.Actor) error {
	if kind == domain.KindFollow {
		return nil
	}
	if caller == nil {
		return ErrPermissionDenied
	}
	callerIRI := caller.IRI(e.conf.BaseURL())

	switch kind {
	case domain.KindAnnounce:
		err, accepted := e.db.HasAcceptedFollowFrom(callerIRI)
		if err != nil {
			return err
		}
		if !accepted {
			return ErrPermissionDenied
		}
		return nil
	case domain.KindPublish, domain.KindAccept, domain.KindCreate,
		domain.KindUpdate, domain.KindDelete, domain.KindCancel, domain.KindFinish:
		err, followed := e.db.HasLocalFollowOf(callerIRI)
		if err != nil {
			return err
		}
		if !followed {
			return ErrPermissionDenied
		}
		return nil
	}
	return ErrPermissionDenied
}

// ReadAdmitted gates read access to federated objects. Reads are open
// unless the platform is configured closed, in which case only callers
// with an accepted follow get through.
func (e *Engine) ReadAdmitted(caller *domain.Actor) (bool, error) {
	if !e.conf.Conf.Closed {
		return true, nil
	}
	if caller == nil {
		return false, nil
	}
	err, accepted := e.db.HasAcceptedFollowFrom(caller.IRI(e.conf.BaseURL()))
	if err != nil {
		return false, err
	}
	return accepted, nil
}

// handleFollow stores the follow request and answers it with an Accept.
func (e *Engine) handleFollow(act *domain.Activity) error {
	follower, err := e.SyncActor(act.ActorIRI)
	if err != nil {
		return fmt.Errorf("failed to resolve follower %s: %w", act.ActorIRI, err)
	}

	err, follow := e.db.CreateFollow(act)
	if err != nil {
		return fmt.Errorf("failed to store follow: %w", err)
	}

	err, platform := e.db.ReadPlatformActor()
	if err != nil {
		return ErrNoPlatformActor
	}

	base := e.conf.BaseURL()
	accept := &domain.Activity{
		Kind:      domain.KindAccept,
		ActorIRI:  platform.IRI(base),
		ObjectIRI: follow.IRI(base),
		Local:     true,
		CreatedAt: time.Now(),
	}
	if err := e.db.CreateActivity(accept); err != nil {
		return fmt.Errorf("failed to store accept: %w", err)
	}

	// The stored Accept is the source of truth; delivering it is
	// advisory.
	doc := e.ActivityDocument(accept, map[string]interface{}{
		"id":     follow.IRI(base),
		"type":   string(domain.KindFollow),
		"actor":  follow.ActorIRI,
		"object": follow.ObjectIRI,
	})
	if err := e.SendActivity(doc, follower.Inbox(base)); err != nil {
		log.Warnf("Inbox: Failed to deliver Accept to %s: %v", follower.Inbox(base), err)
	}

	return nil
}

// handleAccept records the partner's approval of our follow request.
func (e *Engine) handleAccept(act *domain.Activity) error {
	return e.storeActivity(act)
}

// handlePublish stores the delivered event graph and the activity that
// carried it. The event's object may be inline or a bare IRI.
func (e *Engine) handlePublish(act *domain.Activity, raw map[string]interface{}) error {
	var ev *domain.Event

	if object, ok := raw["object"].(map[string]interface{}); ok {
		// The object inherits the activity's context.
		inline := make(map[string]interface{}, len(object)+1)
		for k, v := range object {
			inline[k] = v
		}
		inline["@context"] = raw["@context"]

		kind, err := e.eventKindOf(inline)
		if err != nil {
			return err
		}
		ev, err = e.SaveEventGraph(inline, kind)
		if err != nil {
			return fmt.Errorf("failed to store event: %w", err)
		}
	} else if act.ObjectIRI != "" {
		var err error
		ev, err = e.SyncEvent(act.ObjectIRI)
		if err != nil {
			return fmt.Errorf("failed to sync event %s: %w", act.ObjectIRI, err)
		}
	}

	if err := e.storeActivity(act); err != nil {
		return err
	}

	if ev != nil {
		e.maybeAdopt(act, ev)
	}
	return nil
}

// maybeAdopt adopts the received event when our follow of the sender
// asked for automatic adoption. Adoption failures never fail delivery.
func (e *Engine) maybeAdopt(act *domain.Activity, ev *domain.Event) {
	if e.adopter == nil {
		return
	}

	err, platform := e.db.ReadPlatformActor()
	if err != nil {
		log.Warnf("Inbox: no platform actor for adoption check: %v", err)
		return
	}
	err, follow := e.db.ReadFollowByPair(platform.IRI(e.conf.BaseURL()), act.ActorIRI)
	if errors.Is(err, sql.ErrNoRows) {
		return
	}
	if err != nil {
		log.Warnf("Inbox: adoption check failed: %v", err)
		return
	}
	if follow.AdoptionMode != domain.AdoptAutomatic {
		return
	}

	if _, err := e.adopter.Adopt(ev); err != nil {
		log.Warnf("Inbox: automatic adoption of %s failed: %v", ev.ID.RemoteIRI, err)
		return
	}
	log.Infof("Inbox: automatically adopted %s", ev.ID.RemoteIRI)
}

// handleUpdate re-fetches the object by IRI rather than trusting the
// inline payload; updates can arrive out of causal order.
func (e *Engine) handleUpdate(act *domain.Activity) error {
	if err := e.storeActivity(act); err != nil {
		return err
	}

	err, _ := e.db.ReadEventByIRI(act.ObjectIRI)
	if errors.Is(err, sql.ErrNoRows) {
		log.Infof("Inbox: Update for unknown object %s, ignoring", act.ObjectIRI)
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := e.RefetchEvent(act.ObjectIRI); err != nil {
		return fmt.Errorf("failed to refetch %s: %w", act.ObjectIRI, err)
	}
	return nil
}

// handleDelete removes the named object: the caller's own actor record,
// or one of their events.
func (e *Engine) handleDelete(act *domain.Activity) error {
	if err := e.storeActivity(act); err != nil {
		return err
	}

	if act.ObjectIRI == act.ActorIRI {
		err, actor := e.db.ReadActorByIRI(act.ObjectIRI)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		log.Infof("Inbox: Actor %s deleted their account", act.ObjectIRI)
		return e.db.DeleteActor(actor.ID.LocalID)
	}

	return e.deleteOwnedEvent(act)
}

// handleCancel withdraws a published event.
func (e *Engine) handleCancel(act *domain.Activity) error {
	if err := e.storeActivity(act); err != nil {
		return err
	}
	return e.deleteOwnedEvent(act)
}

// deleteOwnedEvent removes the named event, but only for its organizer.
// A followed partner must not be able to remove another platform's
// events.
func (e *Engine) deleteOwnedEvent(act *domain.Activity) error {
	err, ev := e.db.ReadEventByIRI(act.ObjectIRI)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	if !organizedBy(ev, act.ActorIRI) {
		log.Warnf("Inbox: %s tried to remove foreign event %s", act.ActorIRI, act.ObjectIRI)
		return ErrPermissionDenied
	}
	return e.db.DeleteEventByIRI(act.ObjectIRI)
}

// organizedBy reports whether the actor owns the event: it is the
// recorded organizer, or shares the event IRI's origin when no
// organizer was recorded.
func organizedBy(ev *domain.Event, actorIRI string) bool {
	if ev.OrganizerIRI != "" {
		return ev.OrganizerIRI == actorIRI
	}
	return sameOrigin(ev.ID.RemoteIRI, actorIRI)
}

func sameOrigin(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return ua.Scheme == ub.Scheme && ua.Host == ub.Host && ua.Host != ""
}

func (e *Engine) storeActivity(act *domain.Activity) error {
	err, _ := e.db.GetOrCreateActivity(act)
	if err != nil {
		return fmt.Errorf("failed to store activity: %w", err)
	}
	return nil
}
