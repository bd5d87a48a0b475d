package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/observability/metrics"
	"chanwatch/internal/repository"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type ChannelRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewChannelRepo(db *sql.DB) repository.ChannelRepository {
	return &ChannelRepo{db: db, now: time.Now}
}

const channelColumns = `id, channel_url, channel_id, channel_name, status,
       last_video_title, last_video_views, last_checked, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (*entity.Channel, error) {
	var (
		ch          entity.Channel
		externalID  sql.NullString
		displayName sql.NullString
		status      sql.NullString
		latestTitle sql.NullString
		viewCount   sql.NullInt64
		lastChecked sql.NullTime
	)
	if err := row.Scan(
		&ch.ID, &ch.Reference, &externalID, &displayName, &status,
		&latestTitle, &viewCount, &lastChecked, &ch.CreatedAt, &ch.UpdatedAt,
	); err != nil {
		return nil, err
	}
	// 旧スキーマでは status が NULL の可能性がある
	ch.Status = entity.StatusUnknown
	if status.Valid && status.String != "" {
		ch.Status = entity.ChannelStatus(status.String)
	}
	ch.LatestViewCount = viewCount.Int64
	if externalID.Valid {
		ch.ExternalID = &externalID.String
	}
	if displayName.Valid {
		ch.DisplayName = &displayName.String
	}
	if latestTitle.Valid {
		ch.LatestTitle = &latestTitle.String
	}
	if lastChecked.Valid {
		ch.LastCheckedAt = &lastChecked.Time
	}
	return &ch, nil
}

func (repo *ChannelRepo) Get(ctx context.Context, id int64) (*entity.Channel, error) {
	const query = `
SELECT ` + channelColumns + `
FROM channels
WHERE id = ?
LIMIT 1`
	ch, err := scanChannel(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: QueryRowContext: %w", err)
	}
	return ch, nil
}

func (repo *ChannelRepo) GetByReference(ctx context.Context, reference string) (*entity.Channel, error) {
	const query = `
SELECT ` + channelColumns + `
FROM channels
WHERE channel_url = ?
LIMIT 1`
	ch, err := scanChannel(repo.db.QueryRowContext(ctx, query, reference))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByReference: QueryRowContext: %w", err)
	}
	return ch, nil
}

func (repo *ChannelRepo) List(ctx context.Context) ([]*entity.Channel, error) {
	defer metrics.ObserveDBQuery("list_channels", time.Now())

	const query = `
SELECT ` + channelColumns + `
FROM channels
ORDER BY created_at DESC, id DESC
`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	channels := make([]*entity.Channel, 0, 50)
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows.Err: %w", err)
	}

	return channels, nil
}

func (repo *ChannelRepo) Create(ctx context.Context, ch *entity.Channel) error {
	const query = `
INSERT INTO channels (channel_url, status, created_at, updated_at)
VALUES (?, ?, ?, ?)`
	status := ch.Status
	if status == "" {
		status = entity.StatusPending
	}
	now := repo.now().UTC()
	res, err := repo.db.ExecContext(ctx, query, ch.Reference, string(status), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", entity.ErrDuplicate)
		}
		return fmt.Errorf("Create: ExecContext: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("Create: LastInsertId: %w", err)
	}
	ch.ID = id
	ch.Status = status
	ch.CreatedAt = now
	ch.UpdatedAt = now
	return nil
}

// Update overwrites every mutable column in one statement.
func (repo *ChannelRepo) Update(ctx context.Context, ch *entity.Channel) error {
	defer metrics.ObserveDBQuery("update_channel", time.Now())

	const query = `
UPDATE channels
SET channel_id       = ?,
    channel_name     = ?,
    status           = ?,
    last_video_title = ?,
    last_video_views = ?,
    last_checked     = ?,
    updated_at       = ?
WHERE id = ?`
	res, err := repo.db.ExecContext(ctx, query,
		ch.ExternalID,
		ch.DisplayName,
		string(ch.Status),
		ch.LatestTitle,
		ch.LatestViewCount,
		ch.LastCheckedAt,
		ch.UpdatedAt,
		ch.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: ExecContext: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ChannelRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM channels WHERE id = ?`
	if _, err := repo.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("Delete: ExecContext: %w", err)
	}
	return nil
}

func (repo *ChannelRepo) CountByStatus(ctx context.Context) (map[entity.ChannelStatus]int, error) {
	defer metrics.ObserveDBQuery("count_channels", time.Now())

	const query = `SELECT COALESCE(status, 'unknown'), COUNT(*) FROM channels GROUP BY 1`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CountByStatus: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[entity.ChannelStatus]int, 4)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("CountByStatus: Scan: %w", err)
		}
		counts[entity.ChannelStatus(status)] = n
	}
	return counts, rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
