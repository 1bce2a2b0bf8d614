package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/repository/sqlite"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestClient(t *testing.T) *sqlite.Client {
	t.Helper()
	client, err := sqlite.NewMemory()
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, client.Close())
	})
	return client
}

func TestEntity_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	at := day(2024, 6, 1)
	ent := model.NewMonitoredEntity(types.EntityTypeProject, "p1", "Website", at)
	gt.NoError(t, client.Entity().Put(ctx, ent)).Required()

	got, err := client.Entity().Get(ctx, ent.EntityKey)
	gt.NoError(t, err).Required()
	gt.Value(t, got).NotNil()
	gt.Value(t, got.EntityType).Equal(types.EntityTypeProject)
	gt.Value(t, got.EntityGID).Equal(types.GID("p1"))
	gt.Value(t, got.DisplayName).Equal("Website")
	gt.Value(t, got.SyncEnabled).Equal(true)
	gt.Value(t, got.AddedAt.Equal(at)).Equal(true)

	missing, err := client.Entity().Get(ctx, "project:absent")
	gt.NoError(t, err).Required()
	gt.Value(t, missing).Nil()
}

func TestEntity_ListOrderSurvivesUpdate(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	first := model.NewMonitoredEntity(types.EntityTypeProject, "p1", "First", day(2024, 6, 1))
	second := model.NewMonitoredEntity(types.EntityTypeUser, "u1", "Second", day(2024, 6, 2))
	gt.NoError(t, client.Entity().Put(ctx, first)).Required()
	gt.NoError(t, client.Entity().Put(ctx, second)).Required()

	// Re-putting the first entity must not move it to the end
	first.DisplayName = "Renamed"
	gt.NoError(t, client.Entity().Put(ctx, first)).Required()

	entities, err := client.Entity().List(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, entities).Length(2)
	gt.Value(t, entities[0].DisplayName).Equal("Renamed")
	gt.Value(t, entities[1].EntityGID).Equal(types.GID("u1"))
}

func TestEntity_EnsureForSyncIsHidden(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	gt.NoError(t, client.Entity().EnsureForSync(ctx, types.EntityTypeProject, "p1", "Anchor")).Required()

	ent, err := client.Entity().Get(ctx, types.NewEntityKey(types.EntityTypeProject, "p1"))
	gt.NoError(t, err).Required()
	gt.Value(t, ent).NotNil()
	gt.Value(t, ent.SyncEnabled).Equal(false)

	entities, err := client.Entity().List(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, entities).Length(0)

	// A monitored row is not downgraded
	monitored := model.NewMonitoredEntity(types.EntityTypeProject, "p2", "Monitored", day(2024, 6, 1))
	gt.NoError(t, client.Entity().Put(ctx, monitored)).Required()
	gt.NoError(t, client.Entity().EnsureForSync(ctx, types.EntityTypeProject, "p2", "ignored")).Required()

	ent, err = client.Entity().Get(ctx, monitored.EntityKey)
	gt.NoError(t, err).Required()
	gt.Value(t, ent.SyncEnabled).Equal(true)
}

func TestEntity_GetJoinsSyncState(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	ent := model.NewMonitoredEntity(types.EntityTypeProject, "p1", "Website", day(2024, 6, 1))
	gt.NoError(t, client.Entity().Put(ctx, ent)).Required()

	gt.NoError(t, client.SyncState().SetEventCursor(ctx, ent.EntityKey, "cursor-1")).Required()
	gt.NoError(t, client.SyncState().SetLastSyncAt(ctx, ent.EntityKey, day(2024, 6, 15))).Required()

	got, err := client.Entity().Get(ctx, ent.EntityKey)
	gt.NoError(t, err).Required()
	gt.Value(t, got.EventCursor).Equal("cursor-1")
	gt.Value(t, got.LastSyncAt).NotNil()
	gt.Value(t, got.LastSyncAt.Equal(day(2024, 6, 15))).Equal(true)
}

func TestMirror_TaskMembershipsReplacedWholesale(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	task := &model.Task{
		GID:        "t1",
		Name:       "Write report",
		CreatedAt:  day(2024, 6, 1),
		ModifiedAt: day(2024, 6, 10),
		Memberships: []model.Membership{
			{ProjectGID: "p1", ProjectName: "Website", SectionGID: "s1", SectionName: "Doing"},
			{ProjectGID: "p2", ProjectName: "Roadmap"},
		},
		Tags: []string{"urgent", "q3"},
	}
	gt.NoError(t, client.Mirror().UpsertTask(ctx, task)).Required()

	count := func() int {
		var n int
		err := client.DB().QueryRowContext(ctx,
			"SELECT COUNT(*) FROM task_memberships WHERE task_gid = 't1'").Scan(&n)
		gt.NoError(t, err).Required()
		return n
	}
	gt.Value(t, count()).Equal(2)

	task.Memberships = task.Memberships[:1]
	gt.NoError(t, client.Mirror().UpsertTask(ctx, task)).Required()
	gt.Value(t, count()).Equal(1)
}

func TestMirror_TaskBatchToleratesForwardReferences(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	// The assignee row does not exist yet; the batch must still land
	tasks := []*model.Task{
		{
			GID:        "t1",
			Name:       "Orphaned assignee",
			Assignee:   &model.UserRef{GID: "u-later", Name: "Late User"},
			CreatedAt:  day(2024, 6, 1),
			ModifiedAt: day(2024, 6, 10),
		},
	}
	gt.NoError(t, client.Mirror().UpsertTaskBatch(ctx, tasks)).Required()

	var n int
	gt.NoError(t, client.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks").Scan(&n)).Required()
	gt.Value(t, n).Equal(1)
}

func TestMirror_CommentRequiresTask(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	comment := &model.Comment{
		GID:       "c1",
		TaskGID:   "t-missing",
		Text:      "orphan",
		CreatedAt: day(2024, 6, 1),
	}
	gt.Value(t, client.Mirror().UpsertComment(ctx, comment)).NotNil()

	task := &model.Task{GID: "t1", Name: "Host", CreatedAt: day(2024, 6, 1), ModifiedAt: day(2024, 6, 1)}
	gt.NoError(t, client.Mirror().UpsertTask(ctx, task)).Required()

	comment.TaskGID = "t1"
	gt.NoError(t, client.Mirror().UpsertComment(ctx, comment))
}

func TestMirror_UserMinimalDoesNotClobber(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	gt.NoError(t, client.Mirror().UpsertUser(ctx, &model.User{
		GID: "u1", Name: "Alice", Email: "alice@example.com", UpdatedAt: day(2024, 6, 1),
	})).Required()
	gt.NoError(t, client.Mirror().UpsertUserMinimal(ctx, &model.UserRef{GID: "u1", Name: "A."})).Required()

	var name string
	gt.NoError(t, client.DB().QueryRowContext(ctx,
		"SELECT name FROM users WHERE gid = 'u1'").Scan(&name)).Required()
	gt.Value(t, name).Equal("Alice")
}

func TestSyncState_CursorAndWatermark(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	key := types.EntityKey("project:p1")

	cursor, err := client.SyncState().GetEventCursor(ctx, key)
	gt.NoError(t, err).Required()
	gt.Value(t, cursor).Equal("")

	gt.NoError(t, client.SyncState().SetEventCursor(ctx, key, "cursor-1")).Required()
	gt.NoError(t, client.SyncState().SetLastSyncAt(ctx, key, day(2024, 6, 15))).Required()
	gt.NoError(t, client.SyncState().SetEventCursor(ctx, key, "cursor-2")).Required()

	cursor, err = client.SyncState().GetEventCursor(ctx, key)
	gt.NoError(t, err).Required()
	gt.Value(t, cursor).Equal("cursor-2")

	// The watermark survives cursor updates on the same row
	at, err := client.SyncState().GetLastSyncAt(ctx, key)
	gt.NoError(t, err).Required()
	gt.Value(t, at).NotNil()
	gt.Value(t, at.Equal(day(2024, 6, 15))).Equal(true)
}

func TestSyncState_JobLifecycle(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	job := model.NewSyncJob("project:p1", day(2024, 6, 15))
	start := day(2024, 1, 1)
	end := day(2024, 3, 31)
	job.RangeStart = &start
	job.RangeEnd = &end
	gt.NoError(t, client.SyncState().InsertSyncJob(ctx, job)).Required()
	gt.Value(t, client.SyncState().InsertSyncJob(ctx, job)).NotNil()

	job.Complete(types.JobStatusCompleted, 12, 0, "", day(2024, 6, 15))
	gt.NoError(t, client.SyncState().UpdateSyncJob(ctx, job)).Required()

	var status string
	var syncedCount int
	gt.NoError(t, client.DB().QueryRowContext(ctx,
		"SELECT status, synced_count FROM sync_jobs WHERE id = ?", job.ID).
		Scan(&status, &syncedCount)).Required()
	gt.Value(t, status).Equal("completed")
	gt.Value(t, syncedCount).Equal(12)

	orphan := model.NewSyncJob("project:p1", day(2024, 6, 16))
	gt.Value(t, client.SyncState().UpdateSyncJob(ctx, orphan)).NotNil()
}

func TestSyncState_SyncedRangesSortedByStart(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	key := types.EntityKey("project:p1")

	for _, r := range []model.SyncedRange{
		{EntityKey: key, Start: day(2024, 3, 1), End: day(2024, 3, 31), SyncedAt: day(2024, 6, 1)},
		{EntityKey: key, Start: day(2024, 1, 1), End: day(2024, 1, 31), SyncedAt: day(2024, 6, 1)},
	} {
		r := r
		gt.NoError(t, client.SyncState().InsertSyncedRange(ctx, &r)).Required()
	}

	ranges, err := client.SyncState().SyncedRanges(ctx, key)
	gt.NoError(t, err).Required()
	gt.Array(t, ranges).Length(2)
	gt.Value(t, ranges[0].Start).Equal(day(2024, 1, 1))
	gt.Value(t, ranges[1].Start).Equal(day(2024, 3, 1))

	// Re-inserting the same window is an upsert, not a duplicate
	gt.NoError(t, client.SyncState().InsertSyncedRange(ctx, &model.SyncedRange{
		EntityKey: key, Start: day(2024, 1, 1), End: day(2024, 1, 31), SyncedAt: day(2024, 7, 1),
	})).Required()

	ranges, err = client.SyncState().SyncedRanges(ctx, key)
	gt.NoError(t, err).Required()
	gt.Array(t, ranges).Length(2)
}

func TestConfig_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	v, err := client.Config().Get(ctx, "missing")
	gt.NoError(t, err).Required()
	gt.Value(t, v).Equal("")

	gt.NoError(t, client.Config().Set(ctx, "workspace_gid", "ws1")).Required()
	gt.NoError(t, client.Config().Set(ctx, "workspace_gid", "ws2")).Required()

	v, err = client.Config().Get(ctx, "workspace_gid")
	gt.NoError(t, err).Required()
	gt.Value(t, v).Equal("ws2")

	all, err := client.Config().List(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, all["workspace_gid"]).Equal("ws2")
}
