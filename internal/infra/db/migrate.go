package db

import "database/sql"

const createChannelsPostgres = `
CREATE TABLE IF NOT EXISTS channels (
    id               BIGSERIAL PRIMARY KEY,
    channel_url      TEXT NOT NULL UNIQUE,
    channel_id       TEXT,
    channel_name     TEXT,
    status           TEXT NOT NULL DEFAULT 'unknown',
    last_video_title TEXT,
    last_video_views BIGINT NOT NULL DEFAULT 0,
    last_checked     TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createChannelsSQLite = `
CREATE TABLE IF NOT EXISTS channels (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    channel_url      TEXT NOT NULL UNIQUE,
    channel_id       TEXT,
    channel_name     TEXT,
    status           TEXT DEFAULT 'unknown',
    last_video_title TEXT,
    last_video_views INTEGER DEFAULT 0,
    last_checked     DATETIME,
    created_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// MigrateUp creates the channels table and its indexes. Every statement is
// idempotent so it runs on each process start.
func MigrateUp(db *sql.DB, dialect Dialect) error {
	create := createChannelsPostgres
	if dialect == DialectSQLite {
		create = createChannelsSQLite
	}
	if _, err := db.Exec(create); err != nil {
		return err
	}

	indexes := []string{
		// List の ORDER BY created_at DESC 用
		`CREATE INDEX IF NOT EXISTS idx_channels_created_at ON channels(created_at DESC)`,
		// ステータス別集計用
		`CREATE INDEX IF NOT EXISTS idx_channels_status ON channels(status)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}
