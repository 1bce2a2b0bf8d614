package memory

import (
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

// Inspection helpers for tests. These bypass the Repository interface so
// tests can assert on stored state without widening the contract.

func (m *Memory) StoredTask(gid types.GID) *model.Task {
	return m.mirror.GetTask(gid)
}

func (m *Memory) StoredUser(gid types.GID) *model.User {
	return m.mirror.GetUser(gid)
}

func (m *Memory) TaskCount() int {
	return m.mirror.CountTasks()
}

func (m *Memory) CommentCount() int {
	return m.mirror.CountComments()
}

func (m *Memory) HasTeamMember(teamGID, userGID types.GID) bool {
	return m.mirror.HasTeamMember(teamGID, userGID)
}

func (m *Memory) HasPortfolioProject(portfolioGID, projectGID types.GID) bool {
	return m.mirror.HasPortfolioProject(portfolioGID, projectGID)
}

func (m *Memory) SyncJobs() []*model.SyncJob {
	return m.syncState.Jobs()
}
