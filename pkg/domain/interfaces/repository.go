package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

// Repository defines the interface for data persistence
type Repository interface {
	Entity() EntityRepository
	Mirror() MirrorRepository
	SyncState() SyncStateRepository
	Config() ConfigRepository

	Close() error
}

// EntityRepository manages monitored-entity rows
type EntityRepository interface {
	// Put inserts or replaces a monitored entity
	Put(ctx context.Context, entity *model.MonitoredEntity) error

	// EnsureForSync creates an entity row with SyncEnabled=false when none
	// exists, so that incidentally-touched entities can anchor a cursor.
	// An existing row is left untouched.
	EnsureForSync(ctx context.Context, entityType types.EntityType, gid types.GID, displayName string) error

	// Get returns the entity for the key, or nil when absent
	Get(ctx context.Context, key types.EntityKey) (*model.MonitoredEntity, error)

	// Remove deletes the entity row, reporting whether one existed
	Remove(ctx context.Context, key types.EntityKey) (bool, error)

	// List returns sync-enabled entities in the order they were added
	List(ctx context.Context) ([]*model.MonitoredEntity, error)
}

// SyncStateRepository manages cursors, watermarks, jobs and backfill ranges
type SyncStateRepository interface {
	// GetEventCursor returns the stored cursor token, or "" when none
	GetEventCursor(ctx context.Context, key types.EntityKey) (string, error)
	SetEventCursor(ctx context.Context, key types.EntityKey, cursor string) error

	// GetLastSyncAt returns the last successful sync watermark, or nil
	GetLastSyncAt(ctx context.Context, key types.EntityKey) (*time.Time, error)
	SetLastSyncAt(ctx context.Context, key types.EntityKey, at time.Time) error

	InsertSyncJob(ctx context.Context, job *model.SyncJob) error
	UpdateSyncJob(ctx context.Context, job *model.SyncJob) error

	// SyncedRanges returns the historical windows already backfilled
	SyncedRanges(ctx context.Context, key types.EntityKey) ([]model.DateRange, error)
	InsertSyncedRange(ctx context.Context, rng *model.SyncedRange) error
}

// MirrorRepository holds the idempotent upserts for mirrored resources.
// Each upsert is insert-or-replace keyed by the natural remote id.
type MirrorRepository interface {
	UpsertUser(ctx context.Context, user *model.User) error

	// UpsertUserMinimal inserts a user reference without clobbering a
	// richer existing row
	UpsertUserMinimal(ctx context.Context, ref *model.UserRef) error

	UpsertProject(ctx context.Context, project *model.Project) error

	UpsertTask(ctx context.Context, task *model.Task) error

	// UpsertTaskBatch writes a batch of tasks with referential integrity
	// checking relaxed for its duration, since a task's parent may not yet
	// be present. Integrity is restored before dependent rows are written.
	UpsertTaskBatch(ctx context.Context, tasks []*model.Task) error

	UpsertComment(ctx context.Context, comment *model.Comment) error
	UpsertSection(ctx context.Context, section *model.Section) error
	UpsertTeam(ctx context.Context, team *model.Team) error
	UpsertTeamMember(ctx context.Context, teamGID, userGID types.GID) error
	UpsertPortfolio(ctx context.Context, portfolio *model.Portfolio) error
	UpsertPortfolioProject(ctx context.Context, portfolioGID, projectGID types.GID) error
	UpsertStatusUpdate(ctx context.Context, update *model.StatusUpdate) error
}

// ConfigRepository is the process-wide key/value store for cached
// configuration, such as the workspace gid and current user identity
type ConfigRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	List(ctx context.Context) (map[string]string, error)
}
