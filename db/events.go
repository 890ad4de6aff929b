package db

import (
	"database/sql"
	"time"

	"github.com/benkert/gutwerk/domain"
)

const (
	sqlInsertEvent = `INSERT INTO events(iri, kind, name, description, image_url, start_time, end_time, duration_sec, deadline, goal_amount, organizer_iri, place_name, street, zipcode, city, country, parent_id, slot_seq, project_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectEvent          = `SELECT id, iri, kind, name, description, image_url, start_time, end_time, duration_sec, deadline, goal_amount, organizer_iri, place_name, street, zipcode, city, country, parent_id, slot_seq, project_id, created_at FROM events`
	sqlDeleteEventByIRI     = `DELETE FROM events WHERE iri = ? OR parent_id IN (SELECT id FROM events WHERE iri = ?)`
	sqlSelectEventProjectId = `SELECT project_id FROM events WHERE iri = ?`
	sqlUpdateEventProjectId = `UPDATE events SET project_id = ? WHERE id = ?`
)

// CreateEvent persists an event and assigns its local numeric key.
func (db *DB) CreateEvent(ev *domain.Event) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		return insertEvent(tx, ev)
	})
}

// CreateEventTree persists a parent event together with its slot
// children in one transaction.
func (db *DB) CreateEventTree(parent *domain.Event, children []*domain.Event) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if err := insertEvent(tx, parent); err != nil {
			return err
		}
		for _, child := range children {
			child.ParentID = parent.ID.LocalID
			// A slot's organizer always equals its parent's.
			child.OrganizerIRI = parent.OrganizerIRI
			if err := insertEvent(tx, child); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetOrCreateEvent inserts a remote-derived event unless its IRI is
// already known; the existing record wins.
func (db *DB) GetOrCreateEvent(ev *domain.Event) (error, *domain.Event) {
	err := db.CreateEvent(ev)
	if err == nil {
		return nil, ev
	}
	if !IsUniqueViolation(err) {
		return err, nil
	}
	return db.ReadEventByIRI(ev.ID.RemoteIRI)
}

func (db *DB) ReadEventByIRI(iri string) (error, *domain.Event) {
	row := db.db.QueryRow(sqlSelectEvent+` WHERE iri = ?`, iri)
	return scanEvent(row)
}

func (db *DB) ReadEventById(id int64) (error, *domain.Event) {
	row := db.db.QueryRow(sqlSelectEvent+` WHERE id = ?`, id)
	return scanEvent(row)
}

func (db *DB) ReadChildEvents(parentID int64) (error, *[]domain.Event) {
	rows, err := db.db.Query(sqlSelectEvent+` WHERE parent_id = ? ORDER BY slot_seq ASC`, parentID)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		err, ev := scanEventRows(rows)
		if err != nil {
			return err, &events
		}
		events = append(events, *ev)
	}
	if err = rows.Err(); err != nil {
		return err, &events
	}
	return nil, &events
}

// ReadLocalEvents lists this platform's own events, newest first.
func (db *DB) ReadLocalEvents(limit int) (error, *[]domain.Event) {
	rows, err := db.db.Query(sqlSelectEvent+` WHERE iri IS NULL AND parent_id = 0 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		err, ev := scanEventRows(rows)
		if err != nil {
			return err, &events
		}
		events = append(events, *ev)
	}
	if err = rows.Err(); err != nil {
		return err, &events
	}
	return nil, &events
}

// DeleteEventByIRI removes a remote-derived event and its slot children.
func (db *DB) DeleteEventByIRI(iri string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteEventByIRI, iri, iri)
		return err
	})
}

// ReplaceEventByIRI swaps the stored event for a freshly fetched one.
// Events are never mutated in place; the adoption back-reference
// survives the swap.
func (db *DB) ReplaceEventByIRI(iri string, ev *domain.Event) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		var projectID int64
		err := tx.QueryRow(sqlSelectEventProjectId, iri).Scan(&projectID)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		if ev.ProjectID == 0 {
			ev.ProjectID = projectID
		}

		if _, err := tx.Exec(sqlDeleteEventByIRI, iri, iri); err != nil {
			return err
		}
		return insertEvent(tx, ev)
	})
}

// SetEventProject records the back-reference from a remote-derived event
// to the locally-adopted domain object.
func (db *DB) SetEventProject(eventID, projectID int64) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateEventProjectId, projectID, eventID)
		return err
	})
}

func insertEvent(tx *sql.Tx, ev *domain.Event) error {
	var placeName, street, zipcode, city, country string
	if ev.Place != nil {
		placeName = ev.Place.Name
		if ev.Place.Address != nil {
			street = ev.Place.Address.Street
			zipcode = ev.Place.Address.Zipcode
			city = ev.Place.Address.City
			country = ev.Place.Address.Country
		}
	}

	res, err := tx.Exec(sqlInsertEvent,
		nullString(ev.ID.RemoteIRI),
		string(ev.Kind),
		ev.Name,
		ev.Description,
		ev.ImageURL,
		nullTime(ev.StartTime),
		nullTime(ev.EndTime),
		int64(ev.Duration/time.Second),
		nullTime(ev.Deadline),
		ev.GoalAmount,
		ev.OrganizerIRI,
		placeName,
		street,
		zipcode,
		city,
		country,
		ev.ParentID,
		ev.SlotSeq,
		ev.ProjectID,
		ev.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID.LocalID = id
	return nil
}

type eventScanner interface {
	Scan(dest ...interface{}) error
}

func scanEventFrom(s eventScanner) (error, *domain.Event) {
	var ev domain.Event
	var iri sql.NullString
	var kind string
	var start, end, deadline sql.NullTime
	var durationSec int64
	var placeName, street, zipcode, city, country string
	err := s.Scan(
		&ev.ID.LocalID,
		&iri,
		&kind,
		&ev.Name,
		&ev.Description,
		&ev.ImageURL,
		&start,
		&end,
		&durationSec,
		&deadline,
		&ev.GoalAmount,
		&ev.OrganizerIRI,
		&placeName,
		&street,
		&zipcode,
		&city,
		&country,
		&ev.ParentID,
		&ev.SlotSeq,
		&ev.ProjectID,
		&ev.CreatedAt,
	)
	if err != nil {
		return err, nil
	}
	ev.ID.RemoteIRI = iri.String
	ev.Kind = domain.Kind(kind)
	if start.Valid {
		ev.StartTime = &start.Time
	}
	if end.Valid {
		ev.EndTime = &end.Time
	}
	if deadline.Valid {
		ev.Deadline = &deadline.Time
	}
	ev.Duration = time.Duration(durationSec) * time.Second
	if placeName != "" || street != "" || city != "" {
		ev.Place = &domain.Place{Name: placeName}
		if street != "" || city != "" {
			ev.Place.Address = &domain.Address{
				Street:  street,
				Zipcode: zipcode,
				City:    city,
				Country: country,
			}
		}
	}
	return nil, &ev
}

func scanEvent(row *sql.Row) (error, *domain.Event) {
	err, ev := scanEventFrom(row)
	if err == sql.ErrNoRows {
		return err, nil
	}
	return err, ev
}

func scanEventRows(rows *sql.Rows) (error, *domain.Event) {
	return scanEventFrom(rows)
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
