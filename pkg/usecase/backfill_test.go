package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/service/asana"
)

func TestBackfill_FillsOnlyUncoveredGaps(t *testing.T) {
	ctx := context.Background()

	var queries []asana.TaskSearchQuery
	api := &mockService{
		searchTasks: func(ctx context.Context, workspaceGID types.GID, query asana.TaskSearchQuery) ([]*model.Task, error) {
			queries = append(queries, query)
			return []*model.Task{
				{GID: types.GID("t" + query.CompletedOn.Start.Format("0102"))},
			}, nil
		},
	}

	uc, repo, _ := newTestUseCases(t, api)
	key := addProject(t, repo, "p1")
	gt.NoError(t, repo.SyncState().InsertSyncedRange(ctx, &model.SyncedRange{
		EntityKey: key,
		Start:     day(2024, 2, 1),
		End:       day(2024, 2, 29),
		SyncedAt:  day(2024, 3, 1),
	})).Required()

	report, err := uc.Backfill(ctx, key, rng(day(2024, 1, 1), day(2024, 3, 31)))
	gt.NoError(t, err).Required()

	gt.Value(t, report.Status).Equal(types.SyncStatusSuccess)
	gt.Value(t, report.ItemsSynced).Equal(2)
	gt.Value(t, report.BatchesCompleted).Equal(2)
	gt.Value(t, report.BatchesTotal).Equal(2)

	// February was already covered, so only January and March are fetched
	gt.Array(t, queries).Length(2)
	gt.Value(t, queries[0].ProjectGID).Equal(types.GID("p1"))
	gt.Value(t, queries[0].CompletedOn.Start).Equal(day(2024, 1, 1))
	gt.Value(t, queries[0].CompletedOn.End).Equal(day(2024, 1, 31))
	gt.Value(t, queries[1].CompletedOn.Start).Equal(day(2024, 3, 1))
	gt.Value(t, queries[1].CompletedOn.End).Equal(day(2024, 3, 31))

	ranges, err := repo.SyncState().SyncedRanges(ctx, key)
	gt.NoError(t, err).Required()
	gt.Array(t, ranges).Length(3)

	jobs := repo.SyncJobs()
	gt.Array(t, jobs).Length(1)
	gt.Value(t, jobs[0].Status).Equal(types.JobStatusCompleted)
	gt.Value(t, jobs[0].RangeStart).NotNil()
	gt.Value(t, jobs[0].RangeEnd).NotNil()
}

func TestBackfill_AlreadyCoveredIsNoOp(t *testing.T) {
	ctx := context.Background()

	api := &mockService{}
	uc, repo, _ := newTestUseCases(t, api)
	key := addProject(t, repo, "p1")
	gt.NoError(t, repo.SyncState().InsertSyncedRange(ctx, &model.SyncedRange{
		EntityKey: key,
		Start:     day(2024, 1, 1),
		End:       day(2024, 12, 31),
		SyncedAt:  day(2025, 1, 1),
	})).Required()

	report, err := uc.Backfill(ctx, key, rng(day(2024, 3, 1), day(2024, 3, 31)))
	gt.NoError(t, err).Required()

	gt.Value(t, report.Status).Equal(types.SyncStatusSuccess)
	gt.Value(t, report.BatchesTotal).Equal(0)
	gt.Value(t, api.searchCalls).Equal(0)
	gt.Array(t, repo.SyncJobs()).Length(0)
}

func TestBackfill_FailedBatchIsRetriedOnRerun(t *testing.T) {
	ctx := context.Background()

	broken := true
	api := &mockService{
		searchTasks: func(ctx context.Context, workspaceGID types.GID, query asana.TaskSearchQuery) ([]*model.Task, error) {
			if broken && query.CompletedOn.Start.Equal(day(2024, 2, 1)) {
				return nil, goerr.New("search unavailable")
			}
			return []*model.Task{{GID: "t1"}}, nil
		},
	}

	uc, repo, _ := newTestUseCases(t, api)
	key := addProject(t, repo, "p1")

	report, err := uc.Backfill(ctx, key, rng(day(2024, 1, 1), day(2024, 2, 29)))
	gt.NoError(t, err).Required()
	gt.Value(t, report.Status).Equal(types.SyncStatusPartialFailure)
	gt.Value(t, report.BatchesCompleted).Equal(1)
	gt.Value(t, report.BatchesTotal).Equal(2)

	// Only the successful batch recorded its range
	ranges, err := repo.SyncState().SyncedRanges(ctx, key)
	gt.NoError(t, err).Required()
	gt.Array(t, ranges).Length(1)
	gt.Value(t, ranges[0].Start).Equal(day(2024, 1, 1))

	// The rerun sees only the February gap
	broken = false
	report, err = uc.Backfill(ctx, key, rng(day(2024, 1, 1), day(2024, 2, 29)))
	gt.NoError(t, err).Required()
	gt.Value(t, report.Status).Equal(types.SyncStatusSuccess)
	gt.Value(t, report.BatchesTotal).Equal(1)

	ranges, err = repo.SyncState().SyncedRanges(ctx, key)
	gt.NoError(t, err).Required()
	gt.Array(t, ranges).Length(2)
}

func TestBackfill_UserEntitySearchesByAssignee(t *testing.T) {
	ctx := context.Background()

	var got asana.TaskSearchQuery
	api := &mockService{
		searchTasks: func(ctx context.Context, workspaceGID types.GID, query asana.TaskSearchQuery) ([]*model.Task, error) {
			got = query
			return nil, nil
		},
	}

	uc, repo, _ := newTestUseCases(t, api)
	ent := model.NewMonitoredEntity(types.EntityTypeUser, "u1", "Alice", day(2024, 6, 1))
	gt.NoError(t, repo.Entity().Put(ctx, ent)).Required()

	_, err := uc.Backfill(ctx, ent.EntityKey, rng(day(2024, 5, 1), day(2024, 5, 31)))
	gt.NoError(t, err).Required()

	gt.Value(t, got.AssigneeGID).Equal(types.GID("u1"))
	gt.Value(t, got.ProjectGID).Equal(types.GID(""))
	gt.Value(t, got.CompletedOn).NotNil()
}

func TestBackfill_RejectsContainerEntities(t *testing.T) {
	ctx := context.Background()

	uc, repo, _ := newTestUseCases(t, &mockService{})
	ent := model.NewMonitoredEntity(types.EntityTypeTeam, "team1", "Core", day(2024, 6, 1))
	gt.NoError(t, repo.Entity().Put(ctx, ent)).Required()

	_, err := uc.Backfill(ctx, ent.EntityKey, rng(day(2024, 5, 1), day(2024, 5, 31)))
	gt.Value(t, err).NotNil()
}
