package db

import (
	"database/sql"

	"github.com/benkert/gutwerk/domain"
)

const (
	sqlInsertActivity = `INSERT INTO activities(iri, kind, actor_iri, object_iri, adoption_mode, adoption_type, raw_json, local, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectActivity = `SELECT id, iri, kind, actor_iri, object_iri, adoption_mode, adoption_type, raw_json, local, created_at FROM activities`

	sqlInsertRecipient     = `INSERT INTO recipients(activity_id, actor_iri, send, created_at) VALUES (?, ?, ?, ?)`
	sqlSelectRecipients    = `SELECT id, activity_id, actor_iri, send, created_at FROM recipients WHERE activity_id = ?`
	sqlSelectRecipientById = `SELECT id, activity_id, actor_iri, send, created_at FROM recipients WHERE id = ?`
	sqlMarkRecipientSent     = `UPDATE recipients SET send = 1 WHERE activity_id = ? AND actor_iri = ?`
	sqlMarkRecipientSentById = `UPDATE recipients SET send = 1 WHERE id = ?`
)

// CreateActivity persists an activity and assigns its local numeric key.
// Activities are immutable once created.
func (db *DB) CreateActivity(act *domain.Activity) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlInsertActivity,
			nullString(act.ID.RemoteIRI),
			string(act.Kind),
			act.ActorIRI,
			act.ObjectIRI,
			string(act.AdoptionMode),
			string(act.AdoptionType),
			act.RawJSON,
			act.Local,
			act.CreatedAt,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		act.ID.LocalID = id
		return nil
	})
}

// CreateFollow persists a Follow, enforcing the (actor, object) pair
// uniqueness: re-following returns the existing record.
func (db *DB) CreateFollow(act *domain.Activity) (error, *domain.Activity) {
	err := db.CreateActivity(act)
	if err == nil {
		return nil, act
	}
	if !IsUniqueViolation(err) {
		return err, nil
	}
	return db.ReadFollowByPair(act.ActorIRI, act.ObjectIRI)
}

// GetOrCreateActivity inserts a remote-derived activity unless its IRI
// is already known.
func (db *DB) GetOrCreateActivity(act *domain.Activity) (error, *domain.Activity) {
	err := db.CreateActivity(act)
	if err == nil {
		return nil, act
	}
	if !IsUniqueViolation(err) {
		return err, nil
	}
	return db.ReadActivityByIRI(act.ID.RemoteIRI)
}

func (db *DB) ReadActivityByIRI(iri string) (error, *domain.Activity) {
	row := db.db.QueryRow(sqlSelectActivity+` WHERE iri = ?`, iri)
	return scanActivity(row)
}

func (db *DB) ReadActivityById(id int64) (error, *domain.Activity) {
	row := db.db.QueryRow(sqlSelectActivity+` WHERE id = ?`, id)
	return scanActivity(row)
}

func (db *DB) ReadFollowByPair(actorIRI, objectIRI string) (error, *domain.Activity) {
	row := db.db.QueryRow(sqlSelectActivity+` WHERE kind = 'Follow' AND actor_iri = ? AND object_iri = ?`, actorIRI, objectIRI)
	return scanActivity(row)
}

// HasLocalFollowOf reports whether this platform has an outgoing Follow
// whose object is the given actor ("we follow them").
func (db *DB) HasLocalFollowOf(objectIRI string) (error, bool) {
	var n int
	err := db.db.QueryRow(`SELECT COUNT(1) FROM activities WHERE kind = 'Follow' AND local = 1 AND object_iri = ?`, objectIRI).Scan(&n)
	if err != nil {
		return err, false
	}
	return nil, n > 0
}

// HasAcceptedFollowFrom reports whether an Accept exists wrapping a
// Follow performed by the given actor.
func (db *DB) HasAcceptedFollowFrom(actorIRI string) (error, bool) {
	var n int
	err := db.db.QueryRow(`SELECT COUNT(1) FROM activities a
		JOIN activities f ON a.object_iri = f.iri
		WHERE a.kind = 'Accept' AND f.kind = 'Follow' AND f.actor_iri = ?`, actorIRI).Scan(&n)
	if err != nil {
		return err, false
	}
	return nil, n > 0
}

// ReadAcceptOfFollow returns the Accept wrapping the given Follow IRI, if
// any. A Follow has at most one Accept.
func (db *DB) ReadAcceptOfFollow(followIRI string) (error, *domain.Activity) {
	row := db.db.QueryRow(sqlSelectActivity+` WHERE kind = 'Accept' AND object_iri = ?`, followIRI)
	return scanActivity(row)
}

// ReadLocalActivitiesByKind lists this platform's own activities of one
// kind, newest first.
func (db *DB) ReadLocalActivitiesByKind(kind domain.Kind, limit int) (error, *[]domain.Activity) {
	rows, err := db.db.Query(sqlSelectActivity+` WHERE kind = ? AND local = 1 ORDER BY created_at DESC LIMIT ?`, string(kind), limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		err, act := scanActivityRows(rows)
		if err != nil {
			return err, &activities
		}
		activities = append(activities, *act)
	}
	if err = rows.Err(); err != nil {
		return err, &activities
	}
	return nil, &activities
}

func (db *DB) CreateRecipient(rec *domain.Recipient) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlInsertRecipient, rec.ActivityID, rec.ActorIRI, rec.Send, rec.CreatedAt)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rec.ID = id
		return nil
	})
}

func (db *DB) ReadRecipients(activityID int64) (error, *[]domain.Recipient) {
	rows, err := db.db.Query(sqlSelectRecipients, activityID)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var recipients []domain.Recipient
	for rows.Next() {
		var rec domain.Recipient
		if err := rows.Scan(&rec.ID, &rec.ActivityID, &rec.ActorIRI, &rec.Send, &rec.CreatedAt); err != nil {
			return err, &recipients
		}
		recipients = append(recipients, rec)
	}
	if err = rows.Err(); err != nil {
		return err, &recipients
	}
	return nil, &recipients
}

func (db *DB) ReadRecipientById(id int64) (error, *domain.Recipient) {
	var rec domain.Recipient
	err := db.db.QueryRow(sqlSelectRecipientById, id).Scan(&rec.ID, &rec.ActivityID, &rec.ActorIRI, &rec.Send, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	return nil, &rec
}

func (db *DB) MarkRecipientSent(activityID int64, actorIRI string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlMarkRecipientSent, activityID, actorIRI)
		return err
	})
}

func (db *DB) MarkRecipientSentById(id int64) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlMarkRecipientSentById, id)
		return err
	})
}

func scanActivity(row *sql.Row) (error, *domain.Activity) {
	var act domain.Activity
	var iri sql.NullString
	var kind, adoptionMode, adoptionType string
	err := row.Scan(
		&act.ID.LocalID,
		&iri,
		&kind,
		&act.ActorIRI,
		&act.ObjectIRI,
		&adoptionMode,
		&adoptionType,
		&act.RawJSON,
		&act.Local,
		&act.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	act.ID.RemoteIRI = iri.String
	act.Kind = domain.Kind(kind)
	act.AdoptionMode = domain.AdoptionMode(adoptionMode)
	act.AdoptionType = domain.AdoptionType(adoptionType)
	return nil, &act
}

func scanActivityRows(rows *sql.Rows) (error, *domain.Activity) {
	var act domain.Activity
	var iri sql.NullString
	var kind, adoptionMode, adoptionType string
	err := rows.Scan(
		&act.ID.LocalID,
		&iri,
		&kind,
		&act.ActorIRI,
		&act.ObjectIRI,
		&adoptionMode,
		&adoptionType,
		&act.RawJSON,
		&act.Local,
		&act.CreatedAt,
	)
	if err != nil {
		return err, nil
	}
	act.ID.RemoteIRI = iri.String
	act.Kind = domain.Kind(kind)
	act.AdoptionMode = domain.AdoptionMode(adoptionMode)
	act.AdoptionType = domain.AdoptionType(adoptionType)
	return nil, &act
}
