package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/service/asana"
	"github.com/secmon-lab/taskmirror/pkg/utils/logging"
)

// syncProjectFull re-fetches a project's full current state bounded by the
// lookback window. The task-listing call is bounded by a completed-since
// filter rather than modified-since, since the remote API cannot filter a
// task list by modification time: it returns all incomplete tasks plus
// tasks completed on or after the boundary.
func (uc *UseCases) syncProjectFull(ctx context.Context, ent *model.MonitoredEntity, opts model.SyncOptions) (*model.SyncReport, error) {
	key := ent.EntityKey
	logger := logging.From(ctx)

	project, err := callAPI(ctx, uc, func(ctx context.Context) (*model.Project, error) {
		return uc.api.GetProject(ctx, ent.EntityGID)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch project", goerr.V("entity", key))
	}
	sections, err := callAPI(ctx, uc, func(ctx context.Context) ([]*model.Section, error) {
		return uc.api.ListSections(ctx, ent.EntityGID)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch sections", goerr.V("entity", key))
	}
	if err := uc.writeProjectMetadata(ctx, project, sections); err != nil {
		return nil, err
	}

	now := uc.now()
	since := opts.SinceDate(now)
	today := model.DayOf(now)

	job := model.NewSyncJob(key, now)
	job.RangeStart = &since
	job.RangeEnd = &today
	if err := uc.repo.SyncState().InsertSyncJob(ctx, job); err != nil {
		return nil, goerr.Wrap(err, "failed to record sync job", goerr.V("entity", key))
	}

	tasks, err := callAPI(ctx, uc, func(ctx context.Context) ([]*model.Task, error) {
		return uc.api.ListProjectTasks(ctx, ent.EntityGID, since)
	})
	if err != nil {
		uc.failJob(ctx, job, err)
		return nil, goerr.Wrap(err, "failed to list project tasks", goerr.V("entity", key))
	}

	// Watermark read before it is advanced: comments are only re-fetched
	// for tasks modified after the last successful sync
	watermark, err := uc.repo.SyncState().GetLastSyncAt(ctx, key)
	if err != nil {
		uc.failJob(ctx, job, err)
		return nil, goerr.Wrap(err, "failed to load sync watermark", goerr.V("entity", key))
	}

	var failed int
	taskComments := make(map[types.GID][]*model.Comment, len(tasks))
	for _, task := range tasks {
		if watermark != nil && !task.ModifiedAt.After(*watermark) {
			continue
		}
		comments, err := callAPI(ctx, uc, func(ctx context.Context) ([]*model.Comment, error) {
			return uc.api.ListComments(ctx, task.GID)
		})
		if err != nil {
			logger.Warn("failed to fetch comments", "task", task.GID.String(), "error", err.Error())
			failed++
			continue
		}
		taskComments[task.GID] = comments
	}

	if err := uc.writeTaskBatch(ctx, tasks, taskComments); err != nil {
		uc.failJob(ctx, job, err)
		return nil, err
	}

	// Status updates are refreshed unconditionally: without the event
	// stream there is no cheap way to detect their staleness
	if err := uc.refreshStatusUpdates(ctx, ent.EntityGID); err != nil {
		logger.Warn("failed to refresh status updates", "entity", key.String(), "error", err.Error())
		failed++
	}

	synced := len(tasks)
	report := model.NewSyncReport(key, synced, failed, 1, 1)

	job.Complete(types.JobStatusFor(report.Status), synced, failed, report.Error, uc.now())
	if err := uc.repo.SyncState().UpdateSyncJob(ctx, job); err != nil {
		return nil, goerr.Wrap(err, "failed to finalize sync job", goerr.V("entity", key))
	}
	if err := uc.repo.SyncState().SetLastSyncAt(ctx, key, now); err != nil {
		return nil, goerr.Wrap(err, "failed to persist sync watermark", goerr.V("entity", key))
	}

	// Final step: establish a fresh cursor so the next attempt can go
	// incremental. Failure here is not fatal; the next attempt simply
	// does another full sync.
	fresh, err := callAPI(ctx, uc, func(ctx context.Context) (string, error) {
		return uc.api.EstablishCursor(ctx, ent.EntityGID)
	})
	if err != nil {
		logger.Warn("failed to establish event cursor after full sync",
			"entity", key.String(), "error", err.Error())
	} else if err := uc.repo.SyncState().SetEventCursor(ctx, key, fresh); err != nil {
		return nil, goerr.Wrap(err, "failed to persist event cursor", goerr.V("entity", key))
	}

	logger.Info("full sync complete",
		"entity", key.String(), "synced", synced, "failed", failed)
	return report, nil
}

// syncUserFull syncs a user's tasks across the workspace via task search,
// bounded by the modified-since lookback. The events API does not cover
// search-based entities, so users always sync fully.
func (uc *UseCases) syncUserFull(ctx context.Context, ent *model.MonitoredEntity, opts model.SyncOptions) (*model.SyncReport, error) {
	key := ent.EntityKey

	workspaceGID, err := uc.WorkspaceGID(ctx)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	since := opts.SinceDate(now)
	today := model.DayOf(now)

	job := model.NewSyncJob(key, now)
	job.RangeStart = &since
	job.RangeEnd = &today
	if err := uc.repo.SyncState().InsertSyncJob(ctx, job); err != nil {
		return nil, goerr.Wrap(err, "failed to record sync job", goerr.V("entity", key))
	}

	tasks, err := callAPI(ctx, uc, func(ctx context.Context) ([]*model.Task, error) {
		return uc.api.SearchTasks(ctx, workspaceGID, asana.TaskSearchQuery{
			ModifiedSince: &since,
			AssigneeGID:   ent.EntityGID,
		})
	})
	if err != nil {
		uc.failJob(ctx, job, err)
		return nil, goerr.Wrap(err, "failed to search user tasks", goerr.V("entity", key))
	}

	if err := uc.writeTaskBatch(ctx, tasks, nil); err != nil {
		uc.failJob(ctx, job, err)
		return nil, err
	}

	synced := len(tasks)
	report := model.NewSyncReport(key, synced, 0, 1, 1)

	job.Complete(types.JobStatusCompleted, synced, 0, "", uc.now())
	if err := uc.repo.SyncState().UpdateSyncJob(ctx, job); err != nil {
		return nil, goerr.Wrap(err, "failed to finalize sync job", goerr.V("entity", key))
	}
	if err := uc.repo.SyncState().SetLastSyncAt(ctx, key, now); err != nil {
		return nil, goerr.Wrap(err, "failed to persist sync watermark", goerr.V("entity", key))
	}

	logging.From(ctx).Info("user sync complete", "entity", key.String(), "synced", synced)
	return report, nil
}

// writeTaskBatch upserts tasks and their comments in foreign-key order:
// all referenced users first, then the task batch with integrity checking
// relaxed, then the dependent comment rows.
func (uc *UseCases) writeTaskBatch(ctx context.Context, tasks []*model.Task, taskComments map[types.GID][]*model.Comment) error {
	for _, task := range tasks {
		if task.Assignee == nil {
			continue
		}
		if err := uc.repo.Mirror().UpsertUserMinimal(ctx, task.Assignee); err != nil {
			return goerr.Wrap(err, "failed to upsert assignee", goerr.V("task", task.GID))
		}
	}
	for _, comments := range taskComments {
		for _, comment := range comments {
			if comment.Author == nil {
				continue
			}
			if err := uc.repo.Mirror().UpsertUserMinimal(ctx, comment.Author); err != nil {
				return goerr.Wrap(err, "failed to upsert comment author", goerr.V("comment", comment.GID))
			}
		}
	}

	if err := uc.repo.Mirror().UpsertTaskBatch(ctx, tasks); err != nil {
		return goerr.Wrap(err, "failed to upsert task batch")
	}

	for _, comments := range taskComments {
		for _, comment := range comments {
			if err := uc.repo.Mirror().UpsertComment(ctx, comment); err != nil {
				return goerr.Wrap(err, "failed to upsert comment", goerr.V("comment", comment.GID))
			}
		}
	}
	return nil
}

// failJob records a terminal failure on the job; best effort, the original
// error stays authoritative
func (uc *UseCases) failJob(ctx context.Context, job *model.SyncJob, cause error) {
	job.Complete(types.JobStatusFailed, 0, 0, cause.Error(), uc.now())
	if err := uc.repo.SyncState().UpdateSyncJob(ctx, job); err != nil {
		logging.From(ctx).Warn("failed to record job failure",
			"job", job.ID, "error", err.Error())
	}
}
