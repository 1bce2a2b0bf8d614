package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

type syncStateRepository struct {
	db *sql.DB
}

func (r *syncStateRepository) GetEventCursor(ctx context.Context, key types.EntityKey) (string, error) {
	var cursor string
	err := r.db.QueryRowContext(ctx,
		"SELECT event_cursor FROM sync_state WHERE entity_key = ?", key.String()).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", goerr.Wrap(err, "failed to load event cursor", goerr.V("entity", key))
	}
	return cursor, nil
}

func (r *syncStateRepository) SetEventCursor(ctx context.Context, key types.EntityKey, cursor string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (entity_key, event_cursor) VALUES (?, ?)
		ON CONFLICT(entity_key) DO UPDATE SET event_cursor = excluded.event_cursor`,
		key.String(), cursor)
	if err != nil {
		return goerr.Wrap(err, "failed to store event cursor", goerr.V("entity", key))
	}
	return nil
}

func (r *syncStateRepository) GetLastSyncAt(ctx context.Context, key types.EntityKey) (*time.Time, error) {
	var at sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT last_sync_at FROM sync_state WHERE entity_key = ?", key.String()).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load sync watermark", goerr.V("entity", key))
	}
	return parseNullTime(at)
}

func (r *syncStateRepository) SetLastSyncAt(ctx context.Context, key types.EntityKey, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (entity_key, last_sync_at) VALUES (?, ?)
		ON CONFLICT(entity_key) DO UPDATE SET last_sync_at = excluded.last_sync_at`,
		key.String(), formatTime(at))
	if err != nil {
		return goerr.Wrap(err, "failed to store sync watermark", goerr.V("entity", key))
	}
	return nil
}

func (r *syncStateRepository) InsertSyncJob(ctx context.Context, job *model.SyncJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_jobs (id, entity_key, status, started_at, completed_at,
			synced_count, failed_count, range_start, range_end, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.EntityKey.String(), job.Status.String(), formatTime(job.StartedAt),
		nullTime(job.CompletedAt), job.SyncedCount, job.FailedCount,
		nullTime(job.RangeStart), nullTime(job.RangeEnd), job.Error)
	if err != nil {
		return goerr.Wrap(err, "failed to insert sync job", goerr.V("id", job.ID))
	}
	return nil
}

func (r *syncStateRepository) UpdateSyncJob(ctx context.Context, job *model.SyncJob) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_jobs SET status = ?, completed_at = ?, synced_count = ?, failed_count = ?, error = ?
		WHERE id = ?`,
		job.Status.String(), nullTime(job.CompletedAt), job.SyncedCount, job.FailedCount,
		job.Error, job.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to update sync job", goerr.V("id", job.ID))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to count updated rows", goerr.V("id", job.ID))
	}
	if affected == 0 {
		return goerr.New("sync job not found", goerr.V("id", job.ID))
	}
	return nil
}

func (r *syncStateRepository) SyncedRanges(ctx context.Context, key types.EntityKey) ([]model.DateRange, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT start_day, end_day FROM synced_ranges WHERE entity_key = ? ORDER BY start_day",
		key.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load synced ranges", goerr.V("entity", key))
	}
	defer rows.Close()

	var ranges []model.DateRange
	for rows.Next() {
		var startDay, endDay string
		if err := rows.Scan(&startDay, &endDay); err != nil {
			return nil, goerr.Wrap(err, "failed to scan synced range")
		}
		start, err := time.Parse("2006-01-02", startDay)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse stored day", goerr.V("value", startDay))
		}
		end, err := time.Parse("2006-01-02", endDay)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse stored day", goerr.V("value", endDay))
		}
		ranges = append(ranges, model.DateRange{Start: start, End: end})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate synced ranges")
	}
	return ranges, nil
}

func (r *syncStateRepository) InsertSyncedRange(ctx context.Context, rng *model.SyncedRange) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO synced_ranges (entity_key, start_day, end_day, synced_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_key, start_day, end_day) DO UPDATE SET synced_at = excluded.synced_at`,
		rng.EntityKey.String(), rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02"),
		formatTime(rng.SyncedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to insert synced range", goerr.V("entity", rng.EntityKey))
	}
	return nil
}
