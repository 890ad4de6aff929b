package domain

import "fmt"

// Vocabulary namespaces. Wire documents are compacted against these three
// contexts, in this order.
const (
	ContextActivityStreams = "https://www.w3.org/ns/activitystreams"
	ContextSecurity        = "https://w3id.org/security/v1"
	ContextGutwerk         = "https://gutwerk.org/ns/federation"

	nsActivityStreams = "https://www.w3.org/ns/activitystreams#"
	nsSecurity        = "https://w3id.org/security#"
	nsGutwerk         = "https://gutwerk.org/ns#"
)

// Contexts returns the fixed ordered context list for all local documents.
func Contexts() []interface{} {
	return []interface{}{ContextActivityStreams, ContextSecurity, ContextGutwerk}
}

// ObjectID identifies a federated object. Exactly one of LocalID or
// RemoteIRI is set: a local object carries an internally assigned numeric
// key and derives its canonical URL lazily, a remote object carries the
// opaque IRI it was received under.
type ObjectID struct {
	LocalID   int64
	RemoteIRI string
}

func LocalID(id int64) ObjectID {
	return ObjectID{LocalID: id}
}

func RemoteID(iri string) ObjectID {
	return ObjectID{RemoteIRI: iri}
}

// IsLocal reports whether the object belongs to this instance. An object
// is local iff it has no remote IRI.
func (o ObjectID) IsLocal() bool {
	return o.RemoteIRI == ""
}

// IRI returns the globally unique identifier: the remote IRI when set,
// otherwise the canonical local URL derived from the kind's path segment
// and the numeric key.
func (o ObjectID) IRI(base string, kind Kind) string {
	if o.RemoteIRI != "" {
		return o.RemoteIRI
	}
	return fmt.Sprintf("%s/%s/%d", base, kind.Path(), o.LocalID)
}

// Kind is the concrete type tag of a federated object, drawn from the
// vocabulary. The enumeration is closed so dispatch over it can be
// checked for exhaustiveness.
type Kind string

const (
	KindPerson       Kind = "Person"
	KindOrganization Kind = "Organization"
	KindPublicKey    Kind = "PublicKey"
	KindInbox        Kind = "Inbox"
	KindOutbox       Kind = "Outbox"
	KindImage        Kind = "Image"
	KindPlace        Kind = "Place"
	KindAddress      Kind = "Address"

	KindFollow   Kind = "Follow"
	KindAccept   Kind = "Accept"
	KindPublish  Kind = "Publish"
	KindAnnounce Kind = "Announce"
	KindCreate   Kind = "Create"
	KindUpdate   Kind = "Update"
	KindDelete   Kind = "Delete"
	KindCancel   Kind = "Cancel"
	KindFinish   Kind = "Finish"

	KindGoodDeed     Kind = "GoodDeed"
	KindCrowdFunding Kind = "CrowdFunding"
	KindDoGoodEvent  Kind = "DoGoodEvent"
	// KindSubEvent tags child events of a multi-slot activity. On the
	// wire children carry their parent's vocabulary type; the distinct
	// path keeps their local URLs apart.
	KindSubEvent Kind = "SubEvent"
)

var kindPaths = map[Kind]string{
	KindPerson:       "person",
	KindOrganization: "organization",
	KindPublicKey:    "publickey",
	KindInbox:        "inbox",
	KindOutbox:       "outbox",
	KindImage:        "image",
	KindPlace:        "place",
	KindAddress:      "address",
	KindFollow:       "follow",
	KindAccept:       "accept",
	KindPublish:      "publish",
	KindAnnounce:     "announce",
	KindCreate:       "create",
	KindUpdate:       "update",
	KindDelete:       "delete",
	KindCancel:       "cancel",
	KindFinish:       "finish",
	KindGoodDeed:     "good-deed",
	KindCrowdFunding: "crowd-funding",
	KindDoGoodEvent:  "do-good-event",
	KindSubEvent:     "sub-event",
}

var kindTypeIRIs = map[Kind]string{
	KindPerson:       nsActivityStreams + "Person",
	KindOrganization: nsActivityStreams + "Organization",
	KindPublicKey:    nsSecurity + "Key",
	KindInbox:        nsActivityStreams + "OrderedCollection",
	KindOutbox:       nsActivityStreams + "OrderedCollection",
	KindImage:        nsActivityStreams + "Image",
	KindPlace:        nsActivityStreams + "Place",
	KindAddress:      nsGutwerk + "Address",
	KindFollow:       nsActivityStreams + "Follow",
	KindAccept:       nsActivityStreams + "Accept",
	KindPublish:      nsGutwerk + "Publish",
	KindAnnounce:     nsActivityStreams + "Announce",
	KindCreate:       nsActivityStreams + "Create",
	KindUpdate:       nsActivityStreams + "Update",
	KindDelete:       nsActivityStreams + "Delete",
	KindCancel:       nsGutwerk + "Cancel",
	KindFinish:       nsGutwerk + "Finish",
	KindGoodDeed:     nsGutwerk + "GoodDeed",
	KindCrowdFunding: nsGutwerk + "CrowdFunding",
	KindDoGoodEvent:  nsGutwerk + "DoGoodEvent",
	KindSubEvent:     nsGutwerk + "DoGoodEvent",
}

// Path returns the URL path segment local objects of this kind live under.
func (k Kind) Path() string {
	return kindPaths[k]
}

// TypeIRI returns the expanded vocabulary IRI for this kind's type tag.
func (k Kind) TypeIRI() string {
	return kindTypeIRIs[k]
}

// KindByTypeIRI maps an expanded @type IRI back to its kind tag. The
// second return is false for IRIs outside the enumerated vocabulary.
func KindByTypeIRI(iri string) (Kind, bool) {
	for k, v := range kindTypeIRIs {
		if v != iri {
			continue
		}
		// Aliased entries never resolve backwards.
		if k == KindSubEvent || k == KindInbox || k == KindOutbox {
			continue
		}
		return k, true
	}
	return "", false
}

// ActivityKinds enumerates every concrete activity kind.
func ActivityKinds() []Kind {
	return []Kind{
		KindFollow, KindAccept, KindPublish, KindAnnounce,
		KindCreate, KindUpdate, KindDelete, KindCancel, KindFinish,
	}
}

// EventKinds enumerates every concrete event kind.
func EventKinds() []Kind {
	return []Kind{KindGoodDeed, KindCrowdFunding, KindDoGoodEvent}
}

// ActorKinds enumerates every concrete actor kind.
func ActorKinds() []Kind {
	return []Kind{KindPerson, KindOrganization}
}

func (k Kind) IsActivity() bool {
	switch k {
	case KindFollow, KindAccept, KindPublish, KindAnnounce,
		KindCreate, KindUpdate, KindDelete, KindCancel, KindFinish:
		return true
	}
	return false
}

func (k Kind) IsEvent() bool {
	switch k {
	case KindGoodDeed, KindCrowdFunding, KindDoGoodEvent, KindSubEvent:
		return true
	}
	return false
}

func (k Kind) IsActor() bool {
	return k == KindPerson || k == KindOrganization
}
