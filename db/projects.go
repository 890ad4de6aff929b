package db

import (
	"database/sql"
	"time"

	"github.com/benkert/gutwerk/domain"
)

const (
	sqlInsertProject = `INSERT INTO projects(kind, title, description, image_path, duration_sec, deadline, goal_amount, source_event_iri, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectProject     = `SELECT id, kind, title, description, image_path, duration_sec, deadline, goal_amount, source_event_iri, created_at FROM projects`
	sqlInsertProjectSlot = `INSERT INTO project_slots(project_id, seq, starts_at, ends_at) VALUES (?, ?, ?, ?)`
	sqlSelectProjectSlot = `SELECT id, project_id, seq, starts_at, ends_at FROM project_slots WHERE project_id = ? ORDER BY seq ASC`
)

// CreateProject persists a domain project together with its time slots.
// The unique source_event_iri column makes adoption of the same remote
// event idempotent at the store level.
func (db *DB) CreateProject(p *domain.Project) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlInsertProject,
			string(p.Kind),
			p.Title,
			p.Description,
			p.ImagePath,
			int64(p.Duration/time.Second),
			nullTime(p.Deadline),
			p.GoalAmount,
			nullString(p.SourceEventIRI),
			p.CreatedAt,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		p.ID = id

		for i := range p.Slots {
			p.Slots[i].ProjectID = id
			slotRes, err := tx.Exec(sqlInsertProjectSlot, id, p.Slots[i].Seq, p.Slots[i].StartsAt, p.Slots[i].EndsAt)
			if err != nil {
				return err
			}
			slotID, err := slotRes.LastInsertId()
			if err != nil {
				return err
			}
			p.Slots[i].ID = slotID
		}
		return nil
	})
}

func (db *DB) ReadProjectById(id int64) (error, *domain.Project) {
	row := db.db.QueryRow(sqlSelectProject+` WHERE id = ?`, id)
	err, p := scanProject(row)
	if err != nil {
		return err, nil
	}
	return db.attachSlots(p)
}

// ReadProjectBySourceEvent finds the project adopted from the given
// remote event, if any.
func (db *DB) ReadProjectBySourceEvent(eventIRI string) (error, *domain.Project) {
	row := db.db.QueryRow(sqlSelectProject+` WHERE source_event_iri = ?`, eventIRI)
	err, p := scanProject(row)
	if err != nil {
		return err, nil
	}
	return db.attachSlots(p)
}

func (db *DB) attachSlots(p *domain.Project) (error, *domain.Project) {
	rows, err := db.db.Query(sqlSelectProjectSlot, p.ID)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	for rows.Next() {
		var slot domain.ProjectSlot
		if err := rows.Scan(&slot.ID, &slot.ProjectID, &slot.Seq, &slot.StartsAt, &slot.EndsAt); err != nil {
			return err, nil
		}
		p.Slots = append(p.Slots, slot)
	}
	if err = rows.Err(); err != nil {
		return err, nil
	}
	return nil, p
}

func scanProject(row *sql.Row) (error, *domain.Project) {
	var p domain.Project
	var kind string
	var deadline sql.NullTime
	var sourceIRI sql.NullString
	var durationSec int64
	err := row.Scan(
		&p.ID,
		&kind,
		&p.Title,
		&p.Description,
		&p.ImagePath,
		&durationSec,
		&deadline,
		&p.GoalAmount,
		&sourceIRI,
		&p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	p.Kind = domain.ProjectKind(kind)
	p.Duration = time.Duration(durationSec) * time.Second
	if deadline.Valid {
		p.Deadline = &deadline.Time
	}
	p.SourceEventIRI = sourceIRI.String
	return nil, &p
}
