package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/service/asana"
)

func TestFullSync_StoresTasksAndComments(t *testing.T) {
	ctx := context.Background()

	modified := day(2024, 6, 10)
	api := &mockService{
		listProjectTasks: func(ctx context.Context, gid types.GID, since time.Time) ([]*model.Task, error) {
			return []*model.Task{
				{GID: "t1", Name: "Ship it", ModifiedAt: modified,
					Assignee: &model.UserRef{GID: "u1", Name: "Alice"}},
				{GID: "t2", Name: "Review", ModifiedAt: modified},
			}, nil
		},
		listComments: func(ctx context.Context, taskGID types.GID) ([]*model.Comment, error) {
			if taskGID == "t1" {
				return []*model.Comment{
					{GID: "c1", TaskGID: "t1", Text: "LGTM",
						Author: &model.UserRef{GID: "u2", Name: "Bob"}},
				}, nil
			}
			return nil, nil
		},
	}

	uc, repo, _ := newTestUseCases(t, api)
	key := addProject(t, repo, "p1")

	report, err := uc.SyncOne(ctx, key, model.SyncOptions{ForceFull: true})
	gt.NoError(t, err).Required()

	gt.Value(t, report.Status).Equal(types.SyncStatusSuccess)
	gt.Value(t, report.ItemsSynced).Equal(2)
	gt.Value(t, repo.TaskCount()).Equal(2)
	gt.Value(t, repo.CommentCount()).Equal(1)
	gt.Value(t, repo.StoredUser("u1")).NotNil()
	gt.Value(t, repo.StoredUser("u2")).NotNil()

	// Full sync primes the cursor for the next incremental attempt
	cursor, err := repo.SyncState().GetEventCursor(ctx, key)
	gt.NoError(t, err).Required()
	gt.Value(t, cursor).Equal("cursor-fresh")
}

func TestFullSync_WatermarkSkipsUnmodifiedComments(t *testing.T) {
	ctx := context.Background()

	watermark := day(2024, 6, 10)
	commentCalls := map[types.GID]int{}
	api := &mockService{
		listProjectTasks: func(ctx context.Context, gid types.GID, since time.Time) ([]*model.Task, error) {
			return []*model.Task{
				{GID: "stale", ModifiedAt: day(2024, 6, 1)},
				{GID: "touched", ModifiedAt: day(2024, 6, 12)},
			}, nil
		},
		listComments: func(ctx context.Context, taskGID types.GID) ([]*model.Comment, error) {
			commentCalls[taskGID]++
			return nil, nil
		},
	}

	uc, repo, _ := newTestUseCases(t, api)
	key := addProject(t, repo, "p1")
	gt.NoError(t, repo.SyncState().SetLastSyncAt(ctx, key, watermark)).Required()

	report, err := uc.SyncOne(ctx, key, model.SyncOptions{ForceFull: true})
	gt.NoError(t, err).Required()
	gt.Value(t, report.Status).Equal(types.SyncStatusSuccess)

	// The unmodified task's row is still refreshed, only its comment fetch
	// is skipped
	gt.Value(t, repo.TaskCount()).Equal(2)
	gt.Value(t, commentCalls["stale"]).Equal(0)
	gt.Value(t, commentCalls["touched"]).Equal(1)
}

func TestFullSync_CommentFailureIsPartial(t *testing.T) {
	ctx := context.Background()

	api := &mockService{
		listProjectTasks: func(ctx context.Context, gid types.GID, since time.Time) ([]*model.Task, error) {
			return []*model.Task{{GID: "t1", ModifiedAt: day(2024, 6, 12)}}, nil
		},
		listComments: func(ctx context.Context, taskGID types.GID) ([]*model.Comment, error) {
			return nil, goerr.New("stories endpoint broke")
		},
	}

	uc, repo, _ := newTestUseCases(t, api)
	key := addProject(t, repo, "p1")

	report, err := uc.SyncOne(ctx, key, model.SyncOptions{ForceFull: true})
	gt.NoError(t, err).Required()

	gt.Value(t, report.Status).Equal(types.SyncStatusPartialFailure)
	gt.Value(t, report.ItemsSynced).Equal(1)
	gt.Value(t, report.ItemsFailed).Equal(1)

	// The task row itself still landed
	gt.Value(t, repo.StoredTask("t1")).NotNil()
}

func TestFullSync_RecordsJob(t *testing.T) {
	ctx := context.Background()

	api := &mockService{
		listProjectTasks: func(ctx context.Context, gid types.GID, since time.Time) ([]*model.Task, error) {
			return []*model.Task{{GID: "t1", ModifiedAt: day(2024, 6, 12)}}, nil
		},
	}

	uc, repo, _ := newTestUseCases(t, api)
	key := addProject(t, repo, "p1")

	_, err := uc.SyncOne(ctx, key, model.SyncOptions{ForceFull: true})
	gt.NoError(t, err).Required()

	jobs := repo.SyncJobs()
	gt.Array(t, jobs).Length(1)
	gt.Value(t, jobs[0].EntityKey).Equal(key)
	gt.Value(t, jobs[0].Status).Equal(types.JobStatusCompleted)
	gt.Value(t, jobs[0].SyncedCount).Equal(1)
	gt.Value(t, jobs[0].CompletedAt).NotNil()
}

func TestFullSync_LookbackDefaultsTo90Days(t *testing.T) {
	ctx := context.Background()

	var gotSince time.Time
	api := &mockService{
		listProjectTasks: func(ctx context.Context, gid types.GID, since time.Time) ([]*model.Task, error) {
			gotSince = since
			return nil, nil
		},
	}

	uc, repo, _ := newTestUseCases(t, api)
	key := addProject(t, repo, "p1")

	_, err := uc.SyncOne(ctx, key, model.SyncOptions{ForceFull: true})
	gt.NoError(t, err).Required()

	// Clock is pinned to 2024-06-15 in the test harness
	gt.Value(t, gotSince).Equal(day(2024, 6, 15).AddDate(0, 0, -90))
}

func TestUserSync_SearchesWorkspaceTasks(t *testing.T) {
	ctx := context.Background()

	var gotAssignee types.GID
	api := &mockService{
		searchTasks: func(ctx context.Context, workspaceGID types.GID, query asana.TaskSearchQuery) ([]*model.Task, error) {
			gotAssignee = query.AssigneeGID
			return []*model.Task{{GID: "t1"}, {GID: "t2"}}, nil
		},
	}

	uc, repo, _ := newTestUseCases(t, api)
	ent := model.NewMonitoredEntity(types.EntityTypeUser, "u7", "Grace", day(2024, 6, 1))
	gt.NoError(t, repo.Entity().Put(ctx, ent)).Required()

	report, err := uc.SyncOne(ctx, ent.EntityKey, model.SyncOptions{})
	gt.NoError(t, err).Required()

	gt.Value(t, report.Status).Equal(types.SyncStatusSuccess)
	gt.Value(t, report.ItemsSynced).Equal(2)
	gt.Value(t, gotAssignee).Equal(types.GID("u7"))

	// Workspace got resolved once and cached
	ws, err := repo.Config().Get(ctx, "workspace_gid")
	gt.NoError(t, err).Required()
	gt.Value(t, ws).Equal("ws1")
}
