package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

type teamMemberKey struct {
	teamGID types.GID
	userGID types.GID
}

type portfolioProjectKey struct {
	portfolioGID types.GID
	projectGID   types.GID
}

type mirrorRepository struct {
	mu                sync.RWMutex
	users             map[types.GID]*model.User
	projects          map[types.GID]*model.Project
	tasks             map[types.GID]*model.Task
	comments          map[types.GID]*model.Comment
	sections          map[types.GID]*model.Section
	teams             map[types.GID]*model.Team
	teamMembers       map[teamMemberKey]struct{}
	portfolios        map[types.GID]*model.Portfolio
	portfolioProjects map[portfolioProjectKey]struct{}
	statusUpdates     map[types.GID]*model.StatusUpdate
}

func newMirrorRepository() *mirrorRepository {
	return &mirrorRepository{
		users:             make(map[types.GID]*model.User),
		projects:          make(map[types.GID]*model.Project),
		tasks:             make(map[types.GID]*model.Task),
		comments:          make(map[types.GID]*model.Comment),
		sections:          make(map[types.GID]*model.Section),
		teams:             make(map[types.GID]*model.Team),
		teamMembers:       make(map[teamMemberKey]struct{}),
		portfolios:        make(map[types.GID]*model.Portfolio),
		portfolioProjects: make(map[portfolioProjectKey]struct{}),
		statusUpdates:     make(map[types.GID]*model.StatusUpdate),
	}
}

func copyTask(t *model.Task) *model.Task {
	c := *t
	if t.Assignee != nil {
		a := *t.Assignee
		c.Assignee = &a
	}
	c.Memberships = append([]model.Membership(nil), t.Memberships...)
	c.Tags = append([]string(nil), t.Tags...)
	return &c
}

func (r *mirrorRepository) UpsertUser(ctx context.Context, user *model.User) error {
	if err := user.GID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user gid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := *user
	r.users[user.GID] = &c
	return nil
}

func (r *mirrorRepository) UpsertUserMinimal(ctx context.Context, ref *model.UserRef) error {
	if err := ref.GID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user gid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.users[ref.GID]; exists {
		// Fill blanks only; a full upsert owns the richer fields
		if existing.Name == "" {
			existing.Name = ref.Name
		}
		if existing.Email == "" {
			existing.Email = ref.Email
		}
		return nil
	}
	r.users[ref.GID] = &model.User{
		GID:   ref.GID,
		Name:  ref.Name,
		Email: ref.Email,
	}
	return nil
}

func (r *mirrorRepository) UpsertProject(ctx context.Context, project *model.Project) error {
	if err := project.GID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid project gid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := *project
	if project.Owner != nil {
		o := *project.Owner
		c.Owner = &o
	}
	r.projects[project.GID] = &c
	return nil
}

func (r *mirrorRepository) UpsertTask(ctx context.Context, task *model.Task) error {
	if err := task.GID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid task gid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[task.GID] = copyTask(task)
	return nil
}

func (r *mirrorRepository) UpsertTaskBatch(ctx context.Context, tasks []*model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, task := range tasks {
		if err := task.GID.Validate(); err != nil {
			return goerr.Wrap(err, "invalid task gid in batch")
		}
		r.tasks[task.GID] = copyTask(task)
	}
	return nil
}

func (r *mirrorRepository) UpsertComment(ctx context.Context, comment *model.Comment) error {
	if err := comment.GID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid comment gid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := *comment
	if comment.Author != nil {
		a := *comment.Author
		c.Author = &a
	}
	r.comments[comment.GID] = &c
	return nil
}

func (r *mirrorRepository) UpsertSection(ctx context.Context, section *model.Section) error {
	if err := section.GID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid section gid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := *section
	r.sections[section.GID] = &c
	return nil
}

func (r *mirrorRepository) UpsertTeam(ctx context.Context, team *model.Team) error {
	if err := team.GID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid team gid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := *team
	r.teams[team.GID] = &c
	return nil
}

func (r *mirrorRepository) UpsertTeamMember(ctx context.Context, teamGID, userGID types.GID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.teamMembers[teamMemberKey{teamGID: teamGID, userGID: userGID}] = struct{}{}
	return nil
}

func (r *mirrorRepository) UpsertPortfolio(ctx context.Context, portfolio *model.Portfolio) error {
	if err := portfolio.GID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid portfolio gid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := *portfolio
	if portfolio.Owner != nil {
		o := *portfolio.Owner
		c.Owner = &o
	}
	r.portfolios[portfolio.GID] = &c
	return nil
}

func (r *mirrorRepository) UpsertPortfolioProject(ctx context.Context, portfolioGID, projectGID types.GID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.portfolioProjects[portfolioProjectKey{portfolioGID: portfolioGID, projectGID: projectGID}] = struct{}{}
	return nil
}

func (r *mirrorRepository) UpsertStatusUpdate(ctx context.Context, update *model.StatusUpdate) error {
	if err := update.GID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid status update gid")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := *update
	if update.Author != nil {
		a := *update.Author
		c.Author = &a
	}
	r.statusUpdates[update.GID] = &c
	return nil
}

// GetTask returns a stored task, or nil. Test helper, not part of the
// Repository contract.
func (r *mirrorRepository) GetTask(gid types.GID) *model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, exists := r.tasks[gid]
	if !exists {
		return nil
	}
	return copyTask(task)
}

// GetUser returns a stored user, or nil. Test helper.
func (r *mirrorRepository) GetUser(gid types.GID) *model.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[gid]
	if !exists {
		return nil
	}
	c := *user
	return &c
}

// CountTasks reports the number of mirrored tasks. Test helper.
func (r *mirrorRepository) CountTasks() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// CountComments reports the number of mirrored comments. Test helper.
func (r *mirrorRepository) CountComments() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.comments)
}

// HasTeamMember reports whether a team membership link exists. Test helper.
func (r *mirrorRepository) HasTeamMember(teamGID, userGID types.GID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.teamMembers[teamMemberKey{teamGID: teamGID, userGID: userGID}]
	return ok
}

// HasPortfolioProject reports whether a portfolio link exists. Test helper.
func (r *mirrorRepository) HasPortfolioProject(portfolioGID, projectGID types.GID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.portfolioProjects[portfolioProjectKey{portfolioGID: portfolioGID, projectGID: projectGID}]
	return ok
}
