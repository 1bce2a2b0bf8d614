package usecase

import (
	"context"
	"time"

	"github.com/secmon-lab/taskmirror/pkg/domain/interfaces"
	"github.com/secmon-lab/taskmirror/pkg/service/asana"
)

// UseCases bundles the sync engine and its collaborators
type UseCases struct {
	repo     interfaces.Repository
	api      asana.Service
	progress interfaces.SyncProgress

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures UseCases
type Option func(*UseCases)

// WithProgress attaches observability callbacks to the engine
func WithProgress(p interfaces.SyncProgress) Option {
	return func(uc *UseCases) {
		uc.progress = p
	}
}

// WithClock overrides the time source (used in tests)
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

// WithSleeper overrides the backoff sleep (used in tests)
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(uc *UseCases) {
		uc.sleep = sleep
	}
}

// New creates a new UseCases instance
func New(repo interfaces.Repository, api asana.Service, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:     repo,
		api:      api,
		progress: interfaces.NoopProgress{},
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
