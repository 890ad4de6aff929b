package activitypub

import (
	"fmt"
	"time"

	"github.com/benkert/gutwerk/domain"
	"github.com/benkert/gutwerk/jsonld"
)

// Documents built here use the wire convention (camelCase); inbound
// documents arrive already compacted to the internal convention
// (snake_case) by the processor.

// ActorDocument serializes an actor for the wire.
func (e *Engine) ActorDocument(a *domain.Actor) map[string]interface{} {
	base := e.conf.BaseURL()

	doc := map[string]interface{}{
		"@context":          domain.Contexts(),
		"id":                a.IRI(base),
		"type":              string(a.Kind),
		"preferredUsername": a.Username,
		"name":              a.Name,
		"summary":           a.Summary,
		"inbox":             a.Inbox(base),
		"outbox":            a.Outbox(base),
		"publicKey": map[string]interface{}{
			"id":           a.KeyID(base),
			"owner":        a.IRI(base),
			"publicKeyPem": a.PublicKeyPem,
		},
	}

	if a.AvatarURL != "" {
		doc["icon"] = map[string]interface{}{
			"type": string(domain.KindImage),
			"url":  a.AvatarURL,
		}
	}

	return doc
}

// ActorFromDocument decodes a fetched actor document. The expanded
// @type must be one of the actor kinds.
func (e *Engine) ActorFromDocument(raw map[string]interface{}, iri string) (*domain.Actor, error) {
	typeIRI, err := e.proc.ExpandedType(raw)
	if err != nil {
		return nil, err
	}
	kind, ok := domain.KindByTypeIRI(typeIRI)
	if !ok || !kind.IsActor() {
		return nil, &jsonld.TypeMismatchError{Expected: domain.KindOrganization.TypeIRI(), Actual: typeIRI}
	}

	doc, err := e.proc.Compact(raw)
	if err != nil {
		return nil, err
	}

	actor := &domain.Actor{
		ID:            domain.RemoteID(str(doc, "id")),
		Kind:          kind,
		Username:      str(doc, "preferred_username"),
		Name:          str(doc, "name"),
		Summary:       str(doc, "summary"),
		InboxIRI:      nodeIRI(doc["inbox"]),
		OutboxIRI:     nodeIRI(doc["outbox"]),
		LastFetchedAt: time.Now(),
		CreatedAt:     time.Now(),
	}
	if actor.ID.RemoteIRI == "" {
		actor.ID = domain.RemoteID(iri)
	}

	if icon, ok := doc["icon"].(map[string]interface{}); ok {
		actor.AvatarURL = str(icon, "url")
	}

	if key, ok := doc["public_key"].(map[string]interface{}); ok {
		actor.PublicKeyPem = str(key, "public_key_pem")
	}

	if actor.ID.RemoteIRI == "" || actor.InboxIRI == "" || actor.PublicKeyPem == "" {
		return nil, &jsonld.ParseError{Err: fmt.Errorf("actor %s missing required fields", iri)}
	}

	return actor, nil
}

// ActivityDocument serializes an activity for the wire.
func (e *Engine) ActivityDocument(act *domain.Activity, object interface{}) map[string]interface{} {
	base := e.conf.BaseURL()

	doc := map[string]interface{}{
		"@context": domain.Contexts(),
		"id":       act.IRI(base),
		"type":     string(act.Kind),
		"actor":    act.ActorIRI,
		"object":   object,
	}

	if len(act.To) > 0 {
		to := make([]interface{}, len(act.To))
		for i, iri := range act.To {
			to[i] = iri
		}
		doc["to"] = to
	}

	if act.Kind == domain.KindFollow {
		if act.AdoptionMode != "" {
			doc["adoptionMode"] = string(act.AdoptionMode)
		}
		if act.AdoptionType != "" {
			doc["adoptionType"] = string(act.AdoptionType)
		}
	}

	return doc
}

// ActivityFromDocument decodes an inbound activity. The inline object
// document, if any, is returned for kind-specific handling.
func (e *Engine) ActivityFromDocument(raw map[string]interface{}) (*domain.Activity, map[string]interface{}, error) {
	typeIRI, err := e.proc.ExpandedType(raw)
	if err != nil {
		return nil, nil, err
	}
	kind, ok := domain.KindByTypeIRI(typeIRI)
	if !ok || !kind.IsActivity() {
		return nil, nil, &jsonld.ParseError{Err: fmt.Errorf("unsupported activity type %s", typeIRI)}
	}

	doc, err := e.proc.Compact(raw)
	if err != nil {
		return nil, nil, err
	}

	act := &domain.Activity{
		ID:           domain.RemoteID(str(doc, "id")),
		Kind:         kind,
		ActorIRI:     nodeIRI(doc["actor"]),
		ObjectIRI:    nodeIRI(doc["object"]),
		AdoptionMode: domain.AdoptionMode(str(doc, "adoption_mode")),
		AdoptionType: domain.AdoptionType(str(doc, "adoption_type")),
		CreatedAt:    time.Now(),
	}

	switch to := doc["to"].(type) {
	case string:
		act.To = []string{to}
	case []interface{}:
		for _, v := range to {
			if iri := nodeIRI(v); iri != "" {
				act.To = append(act.To, iri)
			}
		}
	}

	object, _ := doc["object"].(map[string]interface{})
	return act, object, nil
}

// EventDocument serializes an event, with its slot children inlined.
func (e *Engine) EventDocument(ev *domain.Event, children []domain.Event) map[string]interface{} {
	doc := e.eventNode(ev)
	doc["@context"] = domain.Contexts()

	if len(children) > 0 {
		subs := make([]interface{}, len(children))
		for i := range children {
			subs[i] = e.eventNode(&children[i])
		}
		doc["subEvent"] = subs
	}

	return doc
}

func (e *Engine) eventNode(ev *domain.Event) map[string]interface{} {
	base := e.conf.BaseURL()

	doc := map[string]interface{}{
		"id":   ev.IRI(base),
		"type": string(ev.Kind),
		"name": ev.Name,
	}

	if ev.Description != "" {
		doc["content"] = ev.Description
	}
	if ev.ImageURL != "" {
		doc["image"] = map[string]interface{}{
			"type": string(domain.KindImage),
			"url":  ev.ImageURL,
		}
	}
	if ev.StartTime != nil {
		doc["startTime"] = ev.StartTime.Format(time.RFC3339)
	}
	if ev.EndTime != nil {
		doc["endTime"] = ev.EndTime.Format(time.RFC3339)
	}
	if ev.Duration != 0 {
		doc["duration"] = ev.Duration.String()
	}
	if ev.Deadline != nil {
		doc["deadline"] = ev.Deadline.Format(time.RFC3339)
	}
	if ev.GoalAmount != 0 {
		doc["goalAmount"] = ev.GoalAmount
	}
	if ev.OrganizerIRI != "" {
		doc["organizer"] = ev.OrganizerIRI
	}
	if ev.SlotSeq != 0 {
		doc["slotSeq"] = ev.SlotSeq
	}
	if ev.Place != nil {
		place := map[string]interface{}{
			"type": string(domain.KindPlace),
			"name": ev.Place.Name,
		}
		if ev.Place.Address != nil {
			place["address"] = map[string]interface{}{
				"type":    string(domain.KindAddress),
				"street":  ev.Place.Address.Street,
				"zipcode": ev.Place.Address.Zipcode,
				"city":    ev.Place.Address.City,
				"country": ev.Place.Address.Country,
			}
		}
		doc["location"] = place
	}

	return doc
}

// eventKindOf reads the concrete event kind off a document's expanded
// @type.
func (e *Engine) eventKindOf(raw map[string]interface{}) (domain.Kind, error) {
	typeIRI, err := e.proc.ExpandedType(raw)
	if err != nil {
		return "", err
	}
	kind, ok := domain.KindByTypeIRI(typeIRI)
	if !ok || !kind.IsEvent() {
		return "", &jsonld.TypeMismatchError{Expected: domain.KindDoGoodEvent.TypeIRI(), Actual: typeIRI}
	}
	return kind, nil
}

// EventFromDocument decodes an event graph. The expanded @type must
// match the expected kind. Slot children inlined under sub_event are
// decoded recursively.
func (e *Engine) EventFromDocument(raw map[string]interface{}, kind domain.Kind) (*domain.Event, []*domain.Event, error) {
	if err := e.proc.EnsureType(raw, kind); err != nil {
		return nil, nil, err
	}

	doc, err := e.proc.Compact(raw)
	if err != nil {
		return nil, nil, err
	}

	ev := eventFromCompacted(doc, kind)

	var children []*domain.Event
	for _, sub := range nodeList(doc["sub_event"]) {
		subDoc, ok := sub.(map[string]interface{})
		if !ok {
			continue
		}
		child := eventFromCompacted(subDoc, kind)
		// A slot inherits its parent's organizer.
		child.OrganizerIRI = ev.OrganizerIRI
		children = append(children, child)
	}

	return ev, children, nil
}

func eventFromCompacted(doc map[string]interface{}, kind domain.Kind) *domain.Event {
	ev := &domain.Event{
		ID:           domain.RemoteID(str(doc, "id")),
		Kind:         kind,
		Name:         str(doc, "name"),
		Description:  str(doc, "content"),
		OrganizerIRI: nodeIRI(doc["organizer"]),
		StartTime:    timeField(doc, "start_time"),
		EndTime:      timeField(doc, "end_time"),
		Deadline:     timeField(doc, "deadline"),
		GoalAmount:   int64(intField(doc, "goal_amount")),
		SlotSeq:      intField(doc, "slot_seq"),
		CreatedAt:    time.Now(),
	}

	if d, err := time.ParseDuration(str(doc, "duration")); err == nil {
		ev.Duration = d
	}

	if image, ok := doc["image"].(map[string]interface{}); ok {
		ev.ImageURL = str(image, "url")
	} else if url := str(doc, "image"); url != "" {
		ev.ImageURL = url
	}

	if location, ok := doc["location"].(map[string]interface{}); ok {
		place := &domain.Place{Name: str(location, "name")}
		if address, ok := location["address"].(map[string]interface{}); ok {
			place.Address = &domain.Address{
				Street:  str(address, "street"),
				Zipcode: str(address, "zipcode"),
				City:    str(address, "city"),
				Country: str(address, "country"),
			}
		}
		ev.Place = place
	}

	return ev
}

// SaveEventGraph materializes an event graph into the store: the inline
// organizer (if identified) is stored first and linked by reference, the
// event and its slot children follow as one tree. Repeated saves of the
// same IRI return the existing record.
func (e *Engine) SaveEventGraph(raw map[string]interface{}, kind domain.Kind) (*domain.Event, error) {
	ev, children, err := e.EventFromDocument(raw, kind)
	if err != nil {
		return nil, err
	}

	// An inline identified organizer is materialized before the event
	// that references it.
	if doc, ok := raw["organizer"].(map[string]interface{}); ok {
		if iri := nodeIRI(doc["id"]); iri != "" {
			if _, err := e.SyncActor(iri); err != nil {
				return nil, fmt.Errorf("failed to materialize organizer %s: %w", iri, err)
			}
			ev.OrganizerIRI = iri
		}
	}

	if ev.ID.RemoteIRI != "" {
		err, existing := e.db.ReadEventByIRI(ev.ID.RemoteIRI)
		if err == nil {
			return existing, nil
		}
	}

	if len(children) > 0 {
		if err := e.db.CreateEventTree(ev, children); err != nil {
			return nil, err
		}
		return ev, nil
	}

	err, stored := e.db.GetOrCreateEvent(ev)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func str(doc map[string]interface{}, key string) string {
	s, _ := doc[key].(string)
	return s
}

// nodeIRI extracts the identifier from a node reference, which on the
// wire may be a bare IRI string or an inline object carrying an id.
func nodeIRI(v interface{}) string {
	switch node := v.(type) {
	case string:
		return node
	case map[string]interface{}:
		return str(node, "id")
	}
	return ""
}

// nodeList normalizes a value that may be a single node or a list.
func nodeList(v interface{}) []interface{} {
	switch node := v.(type) {
	case []interface{}:
		return node
	case map[string]interface{}:
		return []interface{}{node}
	}
	return nil
}

func timeField(doc map[string]interface{}, key string) *time.Time {
	s := str(doc, key)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func intField(doc map[string]interface{}, key string) int {
	switch n := doc[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}
