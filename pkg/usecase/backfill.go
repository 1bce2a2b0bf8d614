package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/service/asana"
	"github.com/secmon-lab/taskmirror/pkg/utils/logging"
)

// Backfill fills historical coverage gaps for a project or user entity. The
// desired range is diffed against already-synced ranges; only the uncovered
// parts are fetched, one month-bounded batch at a time. Each batch records
// its range on success so reruns resume where the last attempt left off.
func (uc *UseCases) Backfill(ctx context.Context, key types.EntityKey, desired model.DateRange) (*model.SyncReport, error) {
	if err := desired.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid backfill range")
	}

	ent, err := uc.repo.Entity().Get(ctx, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load entity", goerr.V("entity", key))
	}
	if ent == nil {
		return nil, goerr.Wrap(ErrEntityNotMonitored, "unknown entity", goerr.V("entity", key))
	}
	if ent.EntityType != types.EntityTypeProject && ent.EntityType != types.EntityTypeUser {
		return nil, goerr.New("backfill supports project and user entities only",
			goerr.V("entity", key), goerr.V("type", ent.EntityType))
	}

	logger := logging.From(ctx)

	synced, err := uc.repo.SyncState().SyncedRanges(ctx, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load synced ranges", goerr.V("entity", key))
	}
	gaps := FindGaps(desired, synced)
	if len(gaps) == 0 {
		logger.Info("backfill range already covered",
			"entity", key.String(), "range", desired.String())
		return model.NewSyncReport(key, 0, 0, 0, 0), nil
	}

	workspaceGID, err := uc.WorkspaceGID(ctx)
	if err != nil {
		return nil, err
	}

	uc.progress.SyncStarted(ctx, key)

	job := model.NewSyncJob(key, uc.now())
	job.RangeStart = &gaps[0].Start
	job.RangeEnd = &gaps[len(gaps)-1].End
	if err := uc.repo.SyncState().InsertSyncJob(ctx, job); err != nil {
		return nil, goerr.Wrap(err, "failed to record sync job", goerr.V("entity", key))
	}

	var itemsSynced, itemsFailed, completed int
	for _, gap := range gaps {
		gap := gap
		query := asana.TaskSearchQuery{CompletedOn: &gap}
		switch ent.EntityType {
		case types.EntityTypeProject:
			query.ProjectGID = ent.EntityGID
		case types.EntityTypeUser:
			query.AssigneeGID = ent.EntityGID
		}

		tasks, err := callAPI(ctx, uc, func(ctx context.Context) ([]*model.Task, error) {
			return uc.api.SearchTasks(ctx, workspaceGID, query)
		})
		if err != nil {
			logger.Error("backfill batch failed",
				"entity", key.String(), "range", gap.String(), "error", err.Error())
			itemsFailed++
			continue
		}

		if err := uc.writeTaskBatch(ctx, tasks, nil); err != nil {
			uc.failJob(ctx, job, err)
			return nil, goerr.Wrap(err, "failed to store backfill batch",
				goerr.V("entity", key), goerr.V("range", gap.String()))
		}

		if err := uc.repo.SyncState().InsertSyncedRange(ctx, &model.SyncedRange{
			EntityKey: key,
			Start:     gap.Start,
			End:       gap.End,
			SyncedAt:  uc.now(),
		}); err != nil {
			uc.failJob(ctx, job, err)
			return nil, goerr.Wrap(err, "failed to record synced range",
				goerr.V("entity", key), goerr.V("range", gap.String()))
		}

		itemsSynced += len(tasks)
		completed++
		uc.progress.BatchCompleted(ctx, key, completed, len(gaps))
		logger.Info("backfill batch completed",
			"entity", key.String(), "range", gap.String(), "tasks", len(tasks))
	}

	report := model.NewSyncReport(key, itemsSynced, itemsFailed, completed, len(gaps))
	job.Complete(types.JobStatusFor(report.Status), itemsSynced, itemsFailed, report.Error, uc.now())
	if err := uc.repo.SyncState().UpdateSyncJob(ctx, job); err != nil {
		return nil, goerr.Wrap(err, "failed to finalize sync job", goerr.V("entity", key))
	}

	uc.progress.SyncFinished(ctx, report)
	return report, nil
}
