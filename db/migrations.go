package db

import (
	"database/sql"

	"github.com/charmbracelet/log"
)

const (
	// Actors own their inbox, outbox and key material; all of it lives
	// on the actor row so deleting the actor is the cascade.
	sqlCreateActorsTable = `CREATE TABLE IF NOT EXISTS actors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		iri TEXT UNIQUE,
		kind TEXT NOT NULL,
		username TEXT,
		name TEXT,
		summary TEXT,
		inbox_iri TEXT,
		outbox_iri TEXT,
		avatar_url TEXT,
		public_key_pem TEXT,
		private_key_pem TEXT,
		last_fetched_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateActorsIndices = `
		CREATE INDEX IF NOT EXISTS idx_actors_kind ON actors(kind);
		CREATE INDEX IF NOT EXISTS idx_actors_username ON actors(username);
	`

	sqlCreateActivitiesTable = `CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		iri TEXT UNIQUE,
		kind TEXT NOT NULL,
		actor_iri TEXT NOT NULL,
		object_iri TEXT,
		adoption_mode TEXT,
		adoption_type TEXT,
		raw_json TEXT,
		local INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateActivitiesIndices = `
		CREATE INDEX IF NOT EXISTS idx_activities_kind ON activities(kind);
		CREATE INDEX IF NOT EXISTS idx_activities_actor ON activities(actor_iri);
		CREATE INDEX IF NOT EXISTS idx_activities_object ON activities(object_iri);
		CREATE UNIQUE INDEX IF NOT EXISTS ux_follow_pair
			ON activities(actor_iri, object_iri) WHERE kind = 'Follow';
	`

	sqlCreateRecipientsTable = `CREATE TABLE IF NOT EXISTS recipients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL,
		actor_iri TEXT NOT NULL,
		send INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(activity_id, actor_iri)
	)`

	sqlCreateEventsTable = `CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		iri TEXT UNIQUE,
		kind TEXT NOT NULL,
		name TEXT,
		description TEXT,
		image_url TEXT,
		start_time TIMESTAMP,
		end_time TIMESTAMP,
		duration_sec INTEGER DEFAULT 0,
		deadline TIMESTAMP,
		goal_amount INTEGER DEFAULT 0,
		organizer_iri TEXT,
		place_name TEXT,
		street TEXT,
		zipcode TEXT,
		city TEXT,
		country TEXT,
		parent_id INTEGER DEFAULT 0,
		slot_seq INTEGER DEFAULT 0,
		project_id INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateEventsIndices = `
		CREATE INDEX IF NOT EXISTS idx_events_parent ON events(parent_id);
		CREATE INDEX IF NOT EXISTS idx_events_organizer ON events(organizer_iri);
		CREATE INDEX IF NOT EXISTS idx_events_project ON events(project_id);
	`

	sqlCreateProjectsTable = `CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		image_path TEXT,
		duration_sec INTEGER DEFAULT 0,
		deadline TIMESTAMP,
		goal_amount INTEGER DEFAULT 0,
		source_event_iri TEXT UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateProjectSlotsTable = `CREATE TABLE IF NOT EXISTS project_slots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		starts_at TIMESTAMP NOT NULL,
		ends_at TIMESTAMP NOT NULL,
		UNIQUE(project_id, seq)
	)`

	sqlCreateDeliveryQueueTable = `CREATE TABLE IF NOT EXISTS delivery_queue (
		id TEXT NOT NULL PRIMARY KEY,
		inbox_iri TEXT NOT NULL,
		activity_json TEXT NOT NULL,
		recipient_id INTEGER DEFAULT 0,
		attempts INTEGER DEFAULT 0,
		next_retry_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateDeliveryQueueIndices = `
		CREATE INDEX IF NOT EXISTS idx_delivery_queue_next_retry ON delivery_queue(next_retry_at);
	`
)

// RunMigrations creates the schema.
func (db *DB) RunMigrations() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		tables := []struct {
			name string
			stmt string
		}{
			{"actors", sqlCreateActorsTable},
			{"activities", sqlCreateActivitiesTable},
			{"recipients", sqlCreateRecipientsTable},
			{"events", sqlCreateEventsTable},
			{"projects", sqlCreateProjectsTable},
			{"project_slots", sqlCreateProjectSlotsTable},
			{"delivery_queue", sqlCreateDeliveryQueueTable},
		}

		for _, table := range tables {
			if _, err := tx.Exec(table.stmt); err != nil {
				log.Errorf("Failed to create table %s: %v", table.name, err)
				return err
			}
		}

		indices := []string{
			sqlCreateActorsIndices,
			sqlCreateActivitiesIndices,
			sqlCreateEventsIndices,
			sqlCreateDeliveryQueueIndices,
		}
		for _, stmt := range indices {
			if _, err := tx.Exec(stmt); err != nil {
				log.Warnf("Failed to create indices: %v", err)
			}
		}

		return nil
	})
}
