package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

// MonitoredEntity is a top-level synchronizable unit tracked by the mirror.
// Rows with SyncEnabled=false exist only to anchor an event cursor for
// entities the engine touches incidentally (e.g. a project discovered via a
// portfolio) without making them first-class sync targets.
type MonitoredEntity struct {
	EntityKey   types.EntityKey
	EntityType  types.EntityType
	EntityGID   types.GID
	DisplayName string
	AddedAt     time.Time
	LastSyncAt  *time.Time
	SyncEnabled bool
	EventCursor string
}

// NewMonitoredEntity creates a monitored entity for explicit tracking
func NewMonitoredEntity(t types.EntityType, gid types.GID, displayName string, now time.Time) *MonitoredEntity {
	return &MonitoredEntity{
		EntityKey:   types.NewEntityKey(t, gid),
		EntityType:  t,
		EntityGID:   gid,
		DisplayName: displayName,
		AddedAt:     now,
		SyncEnabled: true,
	}
}

// Validate checks if the monitored entity is well-formed
func (e *MonitoredEntity) Validate() error {
	if !e.EntityType.IsValid() {
		return goerr.New("invalid entity type", goerr.V("type", e.EntityType))
	}
	if err := e.EntityGID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid entity gid")
	}
	if e.EntityKey != types.NewEntityKey(e.EntityType, e.EntityGID) {
		return goerr.New("entity key does not match type and gid",
			goerr.V("key", e.EntityKey),
			goerr.V("type", e.EntityType),
			goerr.V("gid", e.EntityGID))
	}
	return nil
}
