package usecase_test

import (
	"context"
	"time"

	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/service/asana"
)

// mockService stubs the remote API with overridable function fields. Unset
// fields fall back to minimal successful responses so each test only spells
// out what it cares about.
type mockService struct {
	getCurrentUser     func(ctx context.Context) (*model.User, []asana.Workspace, error)
	getProject         func(ctx context.Context, gid types.GID) (*model.Project, error)
	getPortfolio       func(ctx context.Context, gid types.GID) (*model.Portfolio, error)
	getTeam            func(ctx context.Context, gid types.GID) (*model.Team, error)
	getUser            func(ctx context.Context, gid types.GID) (*model.User, error)
	getTask            func(ctx context.Context, gid types.GID) (*model.Task, error)
	listProjectTasks   func(ctx context.Context, projectGID types.GID, completedSince time.Time) ([]*model.Task, error)
	searchTasks        func(ctx context.Context, workspaceGID types.GID, query asana.TaskSearchQuery) ([]*model.Task, error)
	listComments       func(ctx context.Context, taskGID types.GID) ([]*model.Comment, error)
	listSections       func(ctx context.Context, projectGID types.GID) ([]*model.Section, error)
	listTeamMembers    func(ctx context.Context, teamGID types.GID) ([]*model.UserRef, error)
	listTeamProjects   func(ctx context.Context, teamGID types.GID) ([]model.ProjectRef, error)
	listPortfolioItems func(ctx context.Context, portfolioGID types.GID) ([]model.PortfolioItem, error)
	listStatusUpdates  func(ctx context.Context, parentGID types.GID) ([]*model.StatusUpdate, error)
	establishCursor    func(ctx context.Context, resourceGID types.GID) (string, error)
	getEvents          func(ctx context.Context, resourceGID types.GID, cursor string) (*model.EventBatch, error)

	establishCursorCalls int
	getEventsCalls       int
	getTaskCalls         int
	listProjectCalls     int
	searchCalls          int
}

var _ asana.Service = &mockService{}

func (m *mockService) GetCurrentUser(ctx context.Context) (*model.User, []asana.Workspace, error) {
	if m.getCurrentUser != nil {
		return m.getCurrentUser(ctx)
	}
	return &model.User{GID: "me", Name: "Test User"},
		[]asana.Workspace{{GID: "ws1", Name: "Workspace"}}, nil
}

func (m *mockService) GetProject(ctx context.Context, gid types.GID) (*model.Project, error) {
	if m.getProject != nil {
		return m.getProject(ctx, gid)
	}
	return &model.Project{GID: gid, Name: "Project " + gid.String()}, nil
}

func (m *mockService) GetPortfolio(ctx context.Context, gid types.GID) (*model.Portfolio, error) {
	if m.getPortfolio != nil {
		return m.getPortfolio(ctx, gid)
	}
	return &model.Portfolio{GID: gid, Name: "Portfolio " + gid.String()}, nil
}

func (m *mockService) GetTeam(ctx context.Context, gid types.GID) (*model.Team, error) {
	if m.getTeam != nil {
		return m.getTeam(ctx, gid)
	}
	return &model.Team{GID: gid, Name: "Team " + gid.String()}, nil
}

func (m *mockService) GetUser(ctx context.Context, gid types.GID) (*model.User, error) {
	if m.getUser != nil {
		return m.getUser(ctx, gid)
	}
	return &model.User{GID: gid, Name: "User " + gid.String()}, nil
}

func (m *mockService) GetTask(ctx context.Context, gid types.GID) (*model.Task, error) {
	m.getTaskCalls++
	if m.getTask != nil {
		return m.getTask(ctx, gid)
	}
	return &model.Task{GID: gid, Name: "Task " + gid.String()}, nil
}

func (m *mockService) ListProjectTasks(ctx context.Context, projectGID types.GID, completedSince time.Time) ([]*model.Task, error) {
	m.listProjectCalls++
	if m.listProjectTasks != nil {
		return m.listProjectTasks(ctx, projectGID, completedSince)
	}
	return nil, nil
}

func (m *mockService) SearchTasks(ctx context.Context, workspaceGID types.GID, query asana.TaskSearchQuery) ([]*model.Task, error) {
	m.searchCalls++
	if m.searchTasks != nil {
		return m.searchTasks(ctx, workspaceGID, query)
	}
	return nil, nil
}

func (m *mockService) ListComments(ctx context.Context, taskGID types.GID) ([]*model.Comment, error) {
	if m.listComments != nil {
		return m.listComments(ctx, taskGID)
	}
	return nil, nil
}

func (m *mockService) ListSections(ctx context.Context, projectGID types.GID) ([]*model.Section, error) {
	if m.listSections != nil {
		return m.listSections(ctx, projectGID)
	}
	return nil, nil
}

func (m *mockService) ListTeamMembers(ctx context.Context, teamGID types.GID) ([]*model.UserRef, error) {
	if m.listTeamMembers != nil {
		return m.listTeamMembers(ctx, teamGID)
	}
	return nil, nil
}

func (m *mockService) ListTeamProjects(ctx context.Context, teamGID types.GID) ([]model.ProjectRef, error) {
	if m.listTeamProjects != nil {
		return m.listTeamProjects(ctx, teamGID)
	}
	return nil, nil
}

func (m *mockService) ListPortfolioItems(ctx context.Context, portfolioGID types.GID) ([]model.PortfolioItem, error) {
	if m.listPortfolioItems != nil {
		return m.listPortfolioItems(ctx, portfolioGID)
	}
	return nil, nil
}

func (m *mockService) ListStatusUpdates(ctx context.Context, parentGID types.GID) ([]*model.StatusUpdate, error) {
	if m.listStatusUpdates != nil {
		return m.listStatusUpdates(ctx, parentGID)
	}
	return nil, nil
}

func (m *mockService) EstablishCursor(ctx context.Context, resourceGID types.GID) (string, error) {
	m.establishCursorCalls++
	if m.establishCursor != nil {
		return m.establishCursor(ctx, resourceGID)
	}
	return "cursor-fresh", nil
}

func (m *mockService) GetEvents(ctx context.Context, resourceGID types.GID, cursor string) (*model.EventBatch, error) {
	m.getEventsCalls++
	if m.getEvents != nil {
		return m.getEvents(ctx, resourceGID, cursor)
	}
	return &model.EventBatch{NewCursor: "cursor-next"}, nil
}
