package domain

import "time"

// Actor is a federated identity, either a platform end user (Person) or
// a tenant organization (Organization). An actor exclusively owns its
// inbox, outbox and public key; all three share the actor's lifetime.
type Actor struct {
	ID       ObjectID
	Kind     Kind // KindPerson or KindOrganization
	Username string
	Name     string
	Summary  string

	// InboxIRI and OutboxIRI are stored for remote actors; for local
	// actors they are derived from the actor's numeric key.
	InboxIRI  string
	OutboxIRI string
	AvatarURL string

	PublicKeyPem string
	// PrivateKeyPem is set only for locally-controlled actors. Key
	// material is generated once, on first use.
	PrivateKeyPem string

	LastFetchedAt time.Time
	CreatedAt     time.Time
}

// IRI returns the actor's globally unique identifier.
func (a *Actor) IRI(base string) string {
	return a.ID.IRI(base, a.Kind)
}

// Inbox returns the actor's inbox URL.
func (a *Actor) Inbox(base string) string {
	if !a.ID.IsLocal() {
		return a.InboxIRI
	}
	return LocalID(a.ID.LocalID).IRI(base, KindInbox)
}

// Outbox returns the actor's outbox URL.
func (a *Actor) Outbox(base string) string {
	if !a.ID.IsLocal() {
		return a.OutboxIRI
	}
	return LocalID(a.ID.LocalID).IRI(base, KindOutbox)
}

// KeyID returns the identifier of the actor's public key, used as the
// keyId parameter of HTTP signatures.
func (a *Actor) KeyID(base string) string {
	if !a.ID.IsLocal() {
		return a.ID.RemoteIRI + "#main-key"
	}
	return LocalID(a.ID.LocalID).IRI(base, KindPublicKey)
}
