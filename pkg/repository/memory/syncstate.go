package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

type syncStateRepository struct {
	mu      sync.RWMutex
	cursors map[types.EntityKey]string
	syncAt  map[types.EntityKey]time.Time
	jobs    []*model.SyncJob
	ranges  map[types.EntityKey][]*model.SyncedRange
}

func newSyncStateRepository() *syncStateRepository {
	return &syncStateRepository{
		cursors: make(map[types.EntityKey]string),
		syncAt:  make(map[types.EntityKey]time.Time),
		ranges:  make(map[types.EntityKey][]*model.SyncedRange),
	}
}

func (r *syncStateRepository) GetEventCursor(ctx context.Context, key types.EntityKey) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cursors[key], nil
}

func (r *syncStateRepository) SetEventCursor(ctx context.Context, key types.EntityKey, cursor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursors[key] = cursor
	return nil
}

func (r *syncStateRepository) GetLastSyncAt(ctx context.Context, key types.EntityKey) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	at, exists := r.syncAt[key]
	if !exists {
		return nil, nil
	}
	c := at
	return &c, nil
}

func (r *syncStateRepository) SetLastSyncAt(ctx context.Context, key types.EntityKey, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncAt[key] = at
	return nil
}

func copyJob(j *model.SyncJob) *model.SyncJob {
	c := *j
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		c.CompletedAt = &at
	}
	if j.RangeStart != nil {
		at := *j.RangeStart
		c.RangeStart = &at
	}
	if j.RangeEnd != nil {
		at := *j.RangeEnd
		c.RangeEnd = &at
	}
	return &c
}

func (r *syncStateRepository) InsertSyncJob(ctx context.Context, job *model.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.jobs {
		if existing.ID == job.ID {
			return goerr.New("sync job already exists", goerr.V("id", job.ID))
		}
	}
	r.jobs = append(r.jobs, copyJob(job))
	return nil
}

func (r *syncStateRepository) UpdateSyncJob(ctx context.Context, job *model.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.jobs {
		if existing.ID == job.ID {
			r.jobs[i] = copyJob(job)
			return nil
		}
	}
	return goerr.New("sync job not found", goerr.V("id", job.ID))
}

func (r *syncStateRepository) SyncedRanges(ctx context.Context, key types.EntityKey) ([]model.DateRange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.ranges[key]
	ranges := make([]model.DateRange, 0, len(stored))
	for _, rng := range stored {
		ranges = append(ranges, model.DateRange{Start: rng.Start, End: rng.End})
	}
	return ranges, nil
}

func (r *syncStateRepository) InsertSyncedRange(ctx context.Context, rng *model.SyncedRange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *rng
	r.ranges[rng.EntityKey] = append(r.ranges[rng.EntityKey], &c)
	return nil
}

// Jobs returns a snapshot of all recorded sync jobs. Test helper.
func (r *syncStateRepository) Jobs() []*model.SyncJob {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]*model.SyncJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, copyJob(job))
	}
	return jobs
}
