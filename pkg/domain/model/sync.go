package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

// DefaultLookbackDays bounds a full sync when no explicit window is given
const DefaultLookbackDays = 90

// SyncOptions controls a sync operation
type SyncOptions struct {
	Since     *time.Time
	Days      int
	ForceFull bool
}

// SinceDate resolves the lookback boundary: the explicit date if set,
// now minus the configured days, or the 90-day default
func (o SyncOptions) SinceDate(now time.Time) time.Time {
	if o.Since != nil {
		return DayOf(*o.Since)
	}
	days := o.Days
	if days <= 0 {
		days = DefaultLookbackDays
	}
	return DayOf(now.AddDate(0, 0, -days))
}

// SyncJob is an append-only audit record of one sync attempt. After
// completion only the terminal status write mutates the row.
type SyncJob struct {
	ID          string
	EntityKey   types.EntityKey
	Status      types.JobStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	SyncedCount int
	FailedCount int
	RangeStart  *time.Time
	RangeEnd    *time.Time
	Error       string
}

// NewSyncJob creates a running sync job for the given entity
func NewSyncJob(entityKey types.EntityKey, startedAt time.Time) *SyncJob {
	return &SyncJob{
		ID:        uuid.New().String(),
		EntityKey: entityKey,
		Status:    types.JobStatusRunning,
		StartedAt: startedAt,
	}
}

// Complete writes the terminal state of the job
func (j *SyncJob) Complete(status types.JobStatus, syncedCount, failedCount int, errMsg string, at time.Time) {
	j.Status = status
	j.SyncedCount = syncedCount
	j.FailedCount = failedCount
	j.Error = errMsg
	j.CompletedAt = &at
}

// SyncReport is the engine's output contract for one entity sync
type SyncReport struct {
	EntityKey        types.EntityKey
	Status           types.SyncStatus
	ItemsSynced      int
	ItemsFailed      int
	BatchesCompleted int
	BatchesTotal     int
	Error            string
}

// NewSyncReport derives a report from counts. Status is a pure function of
// the counts: no failures is Success, failures alongside any progress is
// PartialFailure, and failures with no progress at all is Failed.
func NewSyncReport(entityKey types.EntityKey, synced, failed, batchesCompleted, batchesTotal int) *SyncReport {
	status := types.SyncStatusSuccess
	var errMsg string
	if failed > 0 {
		if synced > 0 || batchesCompleted > 0 {
			status = types.SyncStatusPartialFailure
		} else {
			status = types.SyncStatusFailed
		}
		errMsg = fmt.Sprintf("%d items failed", failed)
	}
	return &SyncReport{
		EntityKey:        entityKey,
		Status:           status,
		ItemsSynced:      synced,
		ItemsFailed:      failed,
		BatchesCompleted: batchesCompleted,
		BatchesTotal:     batchesTotal,
		Error:            errMsg,
	}
}

// NewFailedReport builds a Failed report carrying the given error
func NewFailedReport(entityKey types.EntityKey, err error) *SyncReport {
	r := &SyncReport{
		EntityKey: entityKey,
		Status:    types.SyncStatusFailed,
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
