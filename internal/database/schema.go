package database

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS sightings (
		sighting_id TEXT PRIMARY KEY,
		event_id    TEXT NOT NULL,
		bib_id      TEXT NOT NULL,
		filename    TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS sightings_event_id_idx ON sightings (event_id)`,
	`CREATE TABLE IF NOT EXISTS ingestion_jobs (
		event_id   TEXT NOT NULL,
		file_id    TEXT NOT NULL,
		status     TEXT NOT NULL,
		error      TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (event_id, file_id)
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS sightings (
		sighting_id TEXT PRIMARY KEY,
		event_id    TEXT NOT NULL,
		bib_id      TEXT NOT NULL,
		filename    TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sightings_event_id_idx ON sightings (event_id)`,
	`CREATE TABLE IF NOT EXISTS ingestion_jobs (
		event_id   TEXT NOT NULL,
		file_id    TEXT NOT NULL,
		status     TEXT NOT NULL,
		error      TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (event_id, file_id)
	)`,
}
