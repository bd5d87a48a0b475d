package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/observability/metrics"
	"chanwatch/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for a UNIQUE conflict.
const uniqueViolation = "23505"

type ChannelRepo struct{ db *sql.DB }

func NewChannelRepo(db *sql.DB) repository.ChannelRepository {
	return &ChannelRepo{db: db}
}

const channelColumns = `id, channel_url, channel_id, channel_name, status,
       last_video_title, last_video_views, last_checked, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanChannel is a helper function to scan a channel row in channelColumns order
func scanChannel(row rowScanner) (*entity.Channel, error) {
	var (
		ch          entity.Channel
		externalID  sql.NullString
		displayName sql.NullString
		status      string
		latestTitle sql.NullString
		lastChecked sql.NullTime
	)
	if err := row.Scan(
		&ch.ID, &ch.Reference, &externalID, &displayName, &status,
		&latestTitle, &ch.LatestViewCount, &lastChecked, &ch.CreatedAt, &ch.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ch.Status = entity.ChannelStatus(status)
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
WHERE id = $1
LIMIT 1`
	ch, err := scanChannel(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return ch, nil
}

func (repo *ChannelRepo) GetByReference(ctx context.Context, reference string) (*entity.Channel, error) {
	const query = `
SELECT ` + channelColumns + `
FROM channels
WHERE channel_url = $1
LIMIT 1`
	ch, err := scanChannel(repo.db.QueryRowContext(ctx, query, reference))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByReference: %w", err)
	}
	return ch, nil
}

func (repo *ChannelRepo) List(ctx context.Context) ([]*entity.Channel, error) {
	defer metrics.ObserveDBQuery("list_channels", time.Now())

	const query = `
SELECT ` + channelColumns + `
FROM channels
ORDER BY created_at DESC, id DESC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// パフォーマンス最適化: メモリ再割り当てを削減するため事前割り当て
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
INSERT INTO channels (channel_url, status)
VALUES ($1, $2)
RETURNING id, created_at, updated_at`
	status := ch.Status
	if status == "" {
		status = entity.StatusPending
	}
	err := repo.db.QueryRowContext(ctx, query, ch.Reference, string(status)).
		Scan(&ch.ID, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", entity.ErrDuplicate)
		}
		return fmt.Errorf("Create: %w", err)
	}
	ch.Status = status
	return nil
}

// Update overwrites every mutable column in one statement.
func (repo *ChannelRepo) Update(ctx context.Context, ch *entity.Channel) error {
	defer metrics.ObserveDBQuery("update_channel", time.Now())

	const query = `
UPDATE channels
SET channel_id       = $1,
    channel_name     = $2,
    status           = $3,
    last_video_title = $4,
    last_video_views = $5,
    last_checked     = $6,
    updated_at       = $7
WHERE id = $8`
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
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ChannelRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM channels WHERE id = $1`
	if _, err := repo.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func (repo *ChannelRepo) CountByStatus(ctx context.Context) (map[entity.ChannelStatus]int, error) {
	defer metrics.ObserveDBQuery("count_channels", time.Now())

	const query = `SELECT status, COUNT(*) FROM channels GROUP BY status`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CountByStatus: %w", err)
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
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
