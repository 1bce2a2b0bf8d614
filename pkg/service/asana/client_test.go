package asana_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/service/asana"
)

func newTestService(t *testing.T, handler http.Handler) asana.Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := asana.New("test-token", asana.WithBaseURL(srv.URL))
	gt.NoError(t, err).Required()
	return svc
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := asana.New("")
	gt.Value(t, err).NotNil()
}

func TestGetTask_DecodesResource(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Header.Get("Authorization")).Equal("Bearer test-token")
		gt.Value(t, r.URL.Path).Equal("/tasks/1234")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": {
			"gid": "1234",
			"name": "Write report",
			"notes": "due soon",
			"completed": true,
			"completed_at": "2024-06-10T12:00:00.000Z",
			"assignee": {"gid": "u1", "name": "Alice", "email": "alice@example.com"},
			"due_on": "2024-06-15",
			"created_at": "2024-06-01T09:00:00.000Z",
			"modified_at": "2024-06-10T12:00:00.000Z",
			"parent": {"gid": "9999"},
			"num_subtasks": 2,
			"memberships": [
				{"project": {"gid": "p1", "name": "Website"}, "section": {"gid": "s1", "name": "Doing"}}
			],
			"tags": [{"gid": "tag1", "name": "urgent"}],
			"permalink_url": "https://example.com/1234"
		}}`)
	}))

	task, err := svc.GetTask(ctx, "1234")
	gt.NoError(t, err).Required()

	gt.Value(t, task.GID).Equal(types.GID("1234"))
	gt.Value(t, task.Name).Equal("Write report")
	gt.Value(t, task.Completed).Equal(true)
	gt.Value(t, task.CompletedAt).NotNil()
	gt.Value(t, task.Assignee.GID).Equal(types.GID("u1"))
	gt.Value(t, task.Assignee.Email).Equal("alice@example.com")
	gt.Value(t, task.DueOn).NotNil()
	gt.Value(t, task.ParentGID).Equal(types.GID("9999"))
	gt.Value(t, task.NumSubtasks).Equal(2)
	gt.Array(t, task.Memberships).Length(1)
	gt.Value(t, task.Memberships[0].ProjectGID).Equal(types.GID("p1"))
	gt.Value(t, task.Memberships[0].SectionName).Equal("Doing")
	gt.Array(t, task.Tags).Length(1)
	gt.Value(t, task.Tags[0]).Equal("urgent")
}

func TestListProjectTasks_WalksPagination(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("offset") {
		case "":
			fmt.Fprint(w, `{"data": [{"gid": "t1", "name": "First"}],
				"next_page": {"offset": "page2"}}`)
		case "page2":
			fmt.Fprint(w, `{"data": [{"gid": "t2", "name": "Second"}]}`)
		default:
			t.Errorf("unexpected offset: %s", r.URL.Query().Get("offset"))
		}
	}))

	tasks, err := svc.ListProjectTasks(ctx, "p1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	gt.NoError(t, err).Required()
	gt.Array(t, tasks).Length(2)
	gt.Value(t, tasks[0].GID).Equal(types.GID("t1"))
	gt.Value(t, tasks[1].GID).Equal(types.GID("t2"))
}

func TestListProjectTasks_RequestsConfiguredPageSize(t *testing.T) {
	ctx := context.Background()

	var limits []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limits = append(limits, r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": []}`)
	}))
	t.Cleanup(srv.Close)

	svc, err := asana.New("test-token", asana.WithBaseURL(srv.URL), asana.WithPageSize(25))
	gt.NoError(t, err).Required()

	_, err = svc.ListProjectTasks(ctx, "p1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	gt.NoError(t, err).Required()
	gt.Array(t, limits).Length(1)
	gt.Value(t, limits[0]).Equal("25")
}

func TestSearchTasks_BuildsQuery(t *testing.T) {
	ctx := context.Background()

	var captured map[string]string
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = map[string]string{
			"path":                r.URL.Path,
			"projects.any":        r.URL.Query().Get("projects.any"),
			"completed_on.after":  r.URL.Query().Get("completed_on.after"),
			"completed_on.before": r.URL.Query().Get("completed_on.before"),
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": []}`)
	}))

	window := model.DateRange{
		Start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
	}
	_, err := svc.SearchTasks(ctx, "ws1", asana.TaskSearchQuery{
		ProjectGID:  "p1",
		CompletedOn: &window,
	})
	gt.NoError(t, err).Required()

	gt.Value(t, captured["path"]).Equal("/workspaces/ws1/tasks/search")
	gt.Value(t, captured["projects.any"]).Equal("p1")
	gt.Value(t, captured["completed_on.after"]).Equal("2024-02-01")
	gt.Value(t, captured["completed_on.before"]).Equal("2024-02-29")
}

func TestListComments_FiltersSystemStories(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": [
			{"gid": "s1", "resource_subtype": "comment_added", "text": "looks good",
			 "created_at": "2024-06-01T09:00:00.000Z", "created_by": {"gid": "u1", "name": "Alice"}},
			{"gid": "s2", "resource_subtype": "assigned", "text": "assigned to Alice",
			 "created_at": "2024-06-01T10:00:00.000Z"},
			{"gid": "s3", "resource_subtype": "comment_added", "text": "done",
			 "created_at": "2024-06-02T09:00:00.000Z", "created_by": {"gid": "u2", "name": "Bob"}}
		]}`)
	}))

	comments, err := svc.ListComments(ctx, "t1")
	gt.NoError(t, err).Required()
	gt.Array(t, comments).Length(2)
	gt.Value(t, comments[0].Text).Equal("looks good")
	gt.Value(t, comments[0].TaskGID).Equal(types.GID("t1"))
	gt.Value(t, comments[0].Author.Name).Equal("Alice")
	gt.Value(t, comments[1].Author.Name).Equal("Bob")
}

func TestGetEvents_DecodesBatch(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.URL.Query().Get("resource")).Equal("p1")
		gt.Value(t, r.URL.Query().Get("sync")).Equal("cursor-1")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"sync": "cursor-2", "data": [
			{"action": "changed", "resource": {"gid": "t1", "resource_type": "task"}},
			{"action": "added", "resource": {"gid": "s1", "resource_type": "story"},
			 "parent": {"gid": "t2", "resource_type": "task"}}
		]}`)
	}))

	batch, err := svc.GetEvents(ctx, "p1", "cursor-1")
	gt.NoError(t, err).Required()
	gt.Value(t, batch.NewCursor).Equal("cursor-2")
	gt.Array(t, batch.Events).Length(2)
	gt.Value(t, batch.Events[0].ResourceGID).Equal(types.GID("t1"))
	gt.Value(t, batch.Events[1].ParentGID).Equal(types.GID("t2"))
}

func TestGetEvents_ExpiredCursorCarriesFreshToken(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPreconditionFailed)
		fmt.Fprint(w, `{"sync": "cursor-fresh", "errors": [{"message": "Sync token invalid or too old"}]}`)
	}))

	_, err := svc.GetEvents(ctx, "p1", "cursor-stale")
	gt.Value(t, err).NotNil()

	expired, ok := asana.AsCursorExpired(err)
	gt.Value(t, ok).Equal(true)
	gt.Value(t, expired.FreshCursor).Equal("cursor-fresh")
}

func TestEstablishCursor_From412(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.URL.Query().Get("sync")).Equal("")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPreconditionFailed)
		fmt.Fprint(w, `{"sync": "cursor-new"}`)
	}))

	cursor, err := svc.EstablishCursor(ctx, "p1")
	gt.NoError(t, err).Required()
	gt.Value(t, cursor).Equal("cursor-new")
}

func TestGet_RateLimited(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := svc.GetProject(ctx, "p1")
	gt.Value(t, err).NotNil()
	gt.Value(t, asana.IsRateLimit(err)).Equal(true)
	gt.Value(t, asana.IsNotFound(err)).Equal(false)
}

func TestGet_NotFound(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors": [{"message": "Not a recognized ID: ghost"}]}`)
	}))

	_, err := svc.GetTask(ctx, "ghost")
	gt.Value(t, err).NotNil()
	gt.Value(t, asana.IsNotFound(err)).Equal(true)
	gt.Value(t, asana.IsRateLimit(err)).Equal(false)
}
