package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

type entityRepository struct {
	db *sql.DB
}

func (r *entityRepository) Put(ctx context.Context, entity *model.MonitoredEntity) error {
	if err := entity.Validate(); err != nil {
		return goerr.Wrap(err, "invalid entity")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monitored_entities (entity_key, entity_type, entity_gid, display_name, added_at, sync_enabled, seq)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM monitored_entities))
		ON CONFLICT(entity_key) DO UPDATE SET
			display_name = excluded.display_name,
			added_at     = excluded.added_at,
			sync_enabled = excluded.sync_enabled`,
		entity.EntityKey.String(), entity.EntityType.String(), entity.EntityGID.String(),
		entity.DisplayName, formatTime(entity.AddedAt), entity.SyncEnabled)
	if err != nil {
		return goerr.Wrap(err, "failed to store entity", goerr.V("entity", entity.EntityKey))
	}
	return nil
}

func (r *entityRepository) EnsureForSync(ctx context.Context, entityType types.EntityType, gid types.GID, displayName string) error {
	key := types.NewEntityKey(entityType, gid)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monitored_entities (entity_key, entity_type, entity_gid, display_name, sync_enabled, seq)
		VALUES (?, ?, ?, ?, 0, (SELECT COALESCE(MAX(seq), 0) + 1 FROM monitored_entities))
		ON CONFLICT(entity_key) DO NOTHING`,
		key.String(), entityType.String(), gid.String(), displayName)
	if err != nil {
		return goerr.Wrap(err, "failed to anchor entity", goerr.V("entity", key))
	}
	return nil
}

const entitySelect = `
	SELECT e.entity_key, e.entity_type, e.entity_gid, e.display_name, e.added_at, e.sync_enabled,
	       COALESCE(s.event_cursor, ''), s.last_sync_at
	FROM monitored_entities e
	LEFT JOIN sync_state s ON s.entity_key = e.entity_key`

func scanEntity(row interface{ Scan(...any) error }) (*model.MonitoredEntity, error) {
	var ent model.MonitoredEntity
	var key, entityType, gid string
	var addedAt, lastSyncAt sql.NullString

	if err := row.Scan(&key, &entityType, &gid, &ent.DisplayName, &addedAt, &ent.SyncEnabled,
		&ent.EventCursor, &lastSyncAt); err != nil {
		return nil, err
	}

	ent.EntityKey = types.EntityKey(key)
	ent.EntityGID = types.GID(gid)
	var err error
	if ent.EntityType, err = types.ParseEntityType(entityType); err != nil {
		return nil, err
	}
	if addedAt.Valid {
		if ent.AddedAt, err = parseTime(addedAt.String); err != nil {
			return nil, err
		}
	}
	if ent.LastSyncAt, err = parseNullTime(lastSyncAt); err != nil {
		return nil, err
	}
	return &ent, nil
}

func (r *entityRepository) Get(ctx context.Context, key types.EntityKey) (*model.MonitoredEntity, error) {
	row := r.db.QueryRowContext(ctx, entitySelect+" WHERE e.entity_key = ?", key.String())
	ent, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load entity", goerr.V("entity", key))
	}
	return ent, nil
}

func (r *entityRepository) Remove(ctx context.Context, key types.EntityKey) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM monitored_entities WHERE entity_key = ?", key.String())
	if err != nil {
		return false, goerr.Wrap(err, "failed to remove entity", goerr.V("entity", key))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, goerr.Wrap(err, "failed to count removed rows", goerr.V("entity", key))
	}
	return affected > 0, nil
}

func (r *entityRepository) List(ctx context.Context) ([]*model.MonitoredEntity, error) {
	rows, err := r.db.QueryContext(ctx, entitySelect+" WHERE e.sync_enabled = 1 ORDER BY e.seq")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list entities")
	}
	defer rows.Close()

	var entities []*model.MonitoredEntity
	for rows.Next() {
		ent, err := scanEntity(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan entity row")
		}
		entities = append(entities, ent)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate entity rows")
	}
	return entities, nil
}
