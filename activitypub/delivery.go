package activitypub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/benkert/gutwerk/db"
	"github.com/benkert/gutwerk/domain"
)

// DeliveryResult is the outcome of one attempted POST to one audience
// actor's inbox. Delivery is best-effort; the caller decides what to do
// with failures, the engine never swallows them.
type DeliveryResult struct {
	ActorIRI string
	InboxIRI string
	Err      error
}

func (r DeliveryResult) Delivered() bool {
	return r.Err == nil
}

// Publish delivers a local activity to every actor in its audience. The
// activity record is the source of truth and must already be stored;
// failed deliveries leave the recipient's send flag unset so a later
// re-delivery can pick it up.
func (e *Engine) Publish(act *domain.Activity, doc map[string]interface{}) []DeliveryResult {
	results := make([]DeliveryResult, 0, len(act.To))

	for _, actorIRI := range act.To {
		result := DeliveryResult{ActorIRI: actorIRI}

		rec := &domain.Recipient{
			ActivityID: act.ID.LocalID,
			ActorIRI:   actorIRI,
			CreatedAt:  time.Now(),
		}
		if err := e.db.CreateRecipient(rec); err != nil && !db.IsUniqueViolation(err) {
			result.Err = err
			results = append(results, result)
			continue
		}

		target, err := e.SyncActor(actorIRI)
		if err != nil {
			result.Err = fmt.Errorf("failed to resolve recipient: %w", err)
			log.Warnf("Publish: %s: %v", actorIRI, result.Err)
			results = append(results, result)
			continue
		}

		result.InboxIRI = target.Inbox(e.conf.BaseURL())
		if err := e.SendActivity(doc, result.InboxIRI); err != nil {
			result.Err = err
			log.Warnf("Publish: Delivery to %s failed: %v", result.InboxIRI, err)
			results = append(results, result)
			continue
		}

		if err := e.db.MarkRecipientSent(act.ID.LocalID, actorIRI); err != nil {
			log.Warnf("Publish: Failed to mark %s as sent: %v", actorIRI, err)
		}
		results = append(results, result)
	}

	return results
}

// SendActivity performs one signed POST of a wire document to a remote
// inbox.
func (e *Engine) SendActivity(doc map[string]interface{}, inboxIRI string) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}
	return e.postSigned(inboxIRI, body)
}

func (e *Engine) postSigned(inboxIRI string, body []byte) error {
	err, platform := e.db.ReadPlatformActor()
	if err != nil {
		return ErrNoPlatformActor
	}

	req, err := http.NewRequest(http.MethodPost, inboxIRI, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/ld+json")
	req.Header.Set("Accept", "application/ld+json, application/activity+json")
	req.Header.Set("User-Agent", e.userAgent())
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Host", req.URL.Host)

	privateKey, err := ParsePrivateKey(platform.PrivateKeyPem)
	if err != nil {
		return fmt.Errorf("failed to parse platform key: %w", err)
	}

	if err := SignRequest(req, privateKey, platform.KeyID(e.conf.BaseURL()), defaultAlgorithm); err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return &DeliveryError{InboxIRI: inboxIRI, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{InboxIRI: inboxIRI, Status: resp.StatusCode}
	}

	return nil
}

// Redeliver queues a re-delivery of one activity to one recipient. The
// actual POST happens on the delivery worker so an unreachable remote
// inbox cannot block the administrative action that requested it.
func (e *Engine) Redeliver(recipientID int64) error {
	err, rec := e.db.ReadRecipientById(recipientID)
	if err != nil {
		return fmt.Errorf("failed to read recipient: %w", err)
	}

	err, act := e.db.ReadActivityById(rec.ActivityID)
	if err != nil {
		return fmt.Errorf("failed to read activity: %w", err)
	}

	target, err := e.SyncActor(rec.ActorIRI)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient: %w", err)
	}

	doc := e.ActivityDocument(act, act.ObjectIRI)
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}

	item := &db.DeliveryQueueItem{
		Id:           uuid.New(),
		InboxIRI:     target.Inbox(e.conf.BaseURL()),
		ActivityJSON: string(body),
		RecipientID:  rec.ID,
		Attempts:     0,
		NextRetryAt:  time.Now(),
		CreatedAt:    time.Now(),
	}

	return e.db.EnqueueDelivery(item)
}

// StartDeliveryWorker starts the background worker that drains the
// delivery queue.
func (e *Engine) StartDeliveryWorker() {
	log.Info("Starting delivery worker")

	ticker := time.NewTicker(10 * time.Second)
	go func() {
		for range ticker.C {
			e.processDeliveryQueue()
		}
	}()
}

func (e *Engine) processDeliveryQueue() {
	err, items := e.db.ReadPendingDeliveries(50)
	if err != nil {
		log.Errorf("DeliveryWorker: Failed to read queue: %v", err)
		return
	}

	if items == nil || len(*items) == 0 {
		return
	}

	log.Infof("DeliveryWorker: Processing %d pending deliveries", len(*items))

	for _, item := range *items {
		if err := e.postSigned(item.InboxIRI, []byte(item.ActivityJSON)); err != nil {
			item.Attempts++
			backoffMinutes := []int{1, 5, 15, 60, 240, 1440}[min(item.Attempts-1, 5)]
			item.NextRetryAt = time.Now().Add(time.Duration(backoffMinutes) * time.Minute)

			if item.Attempts >= 10 {
				log.Warnf("DeliveryWorker: Giving up on delivery to %s after %d attempts", item.InboxIRI, item.Attempts)
				e.db.DeleteDelivery(item.Id)
			} else {
				log.Warnf("DeliveryWorker: Delivery to %s failed (attempt %d), retry in %dm: %v",
					item.InboxIRI, item.Attempts, backoffMinutes, err)
				e.db.UpdateDeliveryAttempt(item.Id, item.Attempts, item.NextRetryAt)
			}
			continue
		}

		log.Infof("DeliveryWorker: Delivered to %s", item.InboxIRI)
		e.db.DeleteDelivery(item.Id)

		if err := e.db.MarkRecipientSentById(item.RecipientID); err != nil {
			log.Warnf("DeliveryWorker: Failed to mark recipient %d as sent: %v", item.RecipientID, err)
		}
	}
}
