package db

import (
	"database/sql"

	"github.com/benkert/gutwerk/domain"
)

const (
	sqlInsertActor = `INSERT INTO actors(iri, kind, username, name, summary, inbox_iri, outbox_iri, avatar_url, public_key_pem, private_key_pem, last_fetched_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectActor = `SELECT id, iri, kind, username, name, summary, inbox_iri, outbox_iri, avatar_url, public_key_pem, private_key_pem, last_fetched_at, created_at FROM actors`
	sqlUpdateActor = `UPDATE actors SET name = ?, summary = ?, inbox_iri = ?, outbox_iri = ?, avatar_url = ?, public_key_pem = ?, last_fetched_at = ? WHERE id = ?`
	sqlDeleteActor = `DELETE FROM actors WHERE id = ?`
)

// CreateActor persists an actor and assigns its local numeric key. The
// actor's inbox, outbox and key material live on the same row, so a
// later DeleteActor removes all of it at once.
func (db *DB) CreateActor(actor *domain.Actor) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlInsertActor,
			nullString(actor.ID.RemoteIRI),
			string(actor.Kind),
			actor.Username,
			actor.Name,
			actor.Summary,
			actor.InboxIRI,
			actor.OutboxIRI,
			actor.AvatarURL,
			actor.PublicKeyPem,
			actor.PrivateKeyPem,
			actor.LastFetchedAt,
			actor.CreatedAt,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		actor.ID.LocalID = id
		return nil
	})
}

// GetOrCreateActor inserts a remote-derived actor unless a record for
// its IRI already exists; the existing record wins.
func (db *DB) GetOrCreateActor(actor *domain.Actor) (error, *domain.Actor) {
	err := db.CreateActor(actor)
	if err == nil {
		return nil, actor
	}
	if !IsUniqueViolation(err) {
		return err, nil
	}
	return db.ReadActorByIRI(actor.ID.RemoteIRI)
}

func (db *DB) ReadActorByIRI(iri string) (error, *domain.Actor) {
	row := db.db.QueryRow(sqlSelectActor+` WHERE iri = ?`, iri)
	return scanActor(row)
}

func (db *DB) ReadActorById(id int64) (error, *domain.Actor) {
	row := db.db.QueryRow(sqlSelectActor+` WHERE id = ?`, id)
	return scanActor(row)
}

// ReadPlatformActor returns the local Organization actor representing
// this instance.
func (db *DB) ReadPlatformActor() (error, *domain.Actor) {
	row := db.db.QueryRow(sqlSelectActor+` WHERE iri IS NULL AND kind = ? ORDER BY id LIMIT 1`, string(domain.KindOrganization))
	return scanActor(row)
}

func (db *DB) UpdateActor(actor *domain.Actor) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateActor,
			actor.Name,
			actor.Summary,
			actor.InboxIRI,
			actor.OutboxIRI,
			actor.AvatarURL,
			actor.PublicKeyPem,
			actor.LastFetchedAt,
			actor.ID.LocalID,
		)
		return err
	})
}

// DeleteActor removes the actor row; the owned inbox, outbox and key go
// with it.
func (db *DB) DeleteActor(id int64) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteActor, id)
		return err
	})
}

func scanActor(row *sql.Row) (error, *domain.Actor) {
	var actor domain.Actor
	var iri sql.NullString
	var kind string
	var lastFetched sql.NullTime
	err := row.Scan(
		&actor.ID.LocalID,
		&iri,
		&kind,
		&actor.Username,
		&actor.Name,
		&actor.Summary,
		&actor.InboxIRI,
		&actor.OutboxIRI,
		&actor.AvatarURL,
		&actor.PublicKeyPem,
		&actor.PrivateKeyPem,
		&lastFetched,
		&actor.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	actor.ID.RemoteIRI = iri.String
	actor.Kind = domain.Kind(kind)
	if lastFetched.Valid {
		actor.LastFetchedAt = lastFetched.Time
	}
	return nil, &actor
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
