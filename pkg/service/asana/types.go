package asana

import (
	"context"
	"time"

	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

// Service provides the interface to the remote project-management API.
// All calls may fail with a rate-limit error recognized by IsRateLimit.
type Service interface {
	// GetCurrentUser returns the authenticated user and their workspaces
	GetCurrentUser(ctx context.Context) (*model.User, []Workspace, error)

	GetProject(ctx context.Context, gid types.GID) (*model.Project, error)
	GetPortfolio(ctx context.Context, gid types.GID) (*model.Portfolio, error)
	GetTeam(ctx context.Context, gid types.GID) (*model.Team, error)
	GetUser(ctx context.Context, gid types.GID) (*model.User, error)

	// GetTask returns the task, or a not-found error recognized by
	// IsNotFound when it was deleted upstream
	GetTask(ctx context.Context, gid types.GID) (*model.Task, error)

	// ListProjectTasks returns all incomplete tasks of the project plus
	// tasks completed on or after completedSince. The task-list endpoint
	// does not support filtering by modification time.
	ListProjectTasks(ctx context.Context, projectGID types.GID, completedSince time.Time) ([]*model.Task, error)

	// SearchTasks queries the workspace task search endpoint
	SearchTasks(ctx context.Context, workspaceGID types.GID, query TaskSearchQuery) ([]*model.Task, error)

	ListComments(ctx context.Context, taskGID types.GID) ([]*model.Comment, error)
	ListSections(ctx context.Context, projectGID types.GID) ([]*model.Section, error)
	ListTeamMembers(ctx context.Context, teamGID types.GID) ([]*model.UserRef, error)
	ListTeamProjects(ctx context.Context, teamGID types.GID) ([]model.ProjectRef, error)
	ListPortfolioItems(ctx context.Context, portfolioGID types.GID) ([]model.PortfolioItem, error)
	ListStatusUpdates(ctx context.Context, parentGID types.GID) ([]*model.StatusUpdate, error)

	// EstablishCursor mints a fresh change-event cursor for the resource
	EstablishCursor(ctx context.Context, resourceGID types.GID) (string, error)

	// GetEvents returns the change events since the cursor and the next
	// cursor. When the server reports the cursor as expired, the returned
	// error is a *CursorExpiredError carrying the server-supplied fresh
	// cursor.
	GetEvents(ctx context.Context, resourceGID types.GID, cursor string) (*model.EventBatch, error)
}

// Workspace is a workspace the authenticated user belongs to
type Workspace struct {
	GID  types.GID
	Name string
}

// TaskSearchQuery narrows a workspace task search
type TaskSearchQuery struct {
	ModifiedSince *time.Time
	AssigneeGID   types.GID
	ProjectGID    types.GID
	CompletedOn   *model.DateRange
}
