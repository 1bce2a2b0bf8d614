package interfaces

import (
	"context"

	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

// SyncProgress receives observability callbacks from the sync engine.
// Implementations embed NoopProgress and override what they care about.
type SyncProgress interface {
	SyncStarted(ctx context.Context, key types.EntityKey)
	TaskSynced(ctx context.Context, key types.EntityKey, taskGID types.GID)
	BatchCompleted(ctx context.Context, key types.EntityKey, completed, total int)
	SyncFinished(ctx context.Context, report *model.SyncReport)
}

// NoopProgress is a SyncProgress that does nothing
type NoopProgress struct{}

var _ SyncProgress = NoopProgress{}

func (NoopProgress) SyncStarted(context.Context, types.EntityKey)            {}
func (NoopProgress) TaskSynced(context.Context, types.EntityKey, types.GID)  {}
func (NoopProgress) BatchCompleted(context.Context, types.EntityKey, int, int) {}
func (NoopProgress) SyncFinished(context.Context, *model.SyncReport)         {}
