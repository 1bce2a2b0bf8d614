package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

type mirrorRepository struct {
	db *sql.DB
}

func (r *mirrorRepository) UpsertUser(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (gid, name, email, photo_url, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			name = excluded.name, email = excluded.email,
			photo_url = excluded.photo_url, updated_at = excluded.updated_at`,
		user.GID.String(), user.Name, user.Email, user.PhotoURL, formatTime(user.UpdatedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to upsert user", goerr.V("gid", user.GID))
	}
	return nil
}

func (r *mirrorRepository) UpsertUserMinimal(ctx context.Context, ref *model.UserRef) error {
	// Fill blanks only; a full upsert owns the richer fields
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (gid, name, email) VALUES (?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			name  = CASE WHEN users.name  = '' THEN excluded.name  ELSE users.name  END,
			email = CASE WHEN users.email = '' THEN excluded.email ELSE users.email END`,
		ref.GID.String(), ref.Name, ref.Email)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert user reference", goerr.V("gid", ref.GID))
	}
	return nil
}

func (r *mirrorRepository) UpsertProject(ctx context.Context, project *model.Project) error {
	var ownerGID sql.NullString
	if project.Owner != nil {
		ownerGID = sql.NullString{String: project.Owner.GID.String(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (gid, name, notes, color, archived, owner_gid, team_gid, team_name,
			workspace_gid, due_on, start_on, created_at, modified_at, permalink_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			name = excluded.name, notes = excluded.notes, color = excluded.color,
			archived = excluded.archived, owner_gid = excluded.owner_gid,
			team_gid = excluded.team_gid, team_name = excluded.team_name,
			workspace_gid = excluded.workspace_gid, due_on = excluded.due_on,
			start_on = excluded.start_on, created_at = excluded.created_at,
			modified_at = excluded.modified_at, permalink_url = excluded.permalink_url`,
		project.GID.String(), project.Name, project.Notes, project.Color, project.Archived,
		ownerGID, project.TeamGID.String(), project.TeamName, project.WorkspaceGID.String(),
		nullTime(project.DueOn), nullTime(project.StartOn),
		formatTime(project.CreatedAt), formatTime(project.ModifiedAt), project.PermalinkURL)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert project", goerr.V("gid", project.GID))
	}
	return nil
}

func upsertTaskTx(ctx context.Context, tx *sql.Tx, task *model.Task) error {
	var assigneeGID sql.NullString
	if task.Assignee != nil {
		assigneeGID = sql.NullString{String: task.Assignee.GID.String(), Valid: true}
	}
	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return goerr.Wrap(err, "failed to encode tags", goerr.V("gid", task.GID))
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (gid, name, notes, completed, completed_at, assignee_gid, due_on,
			start_on, created_at, modified_at, parent_gid, num_subtasks, tags, permalink_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			name = excluded.name, notes = excluded.notes, completed = excluded.completed,
			completed_at = excluded.completed_at, assignee_gid = excluded.assignee_gid,
			due_on = excluded.due_on, start_on = excluded.start_on,
			created_at = excluded.created_at, modified_at = excluded.modified_at,
			parent_gid = excluded.parent_gid, num_subtasks = excluded.num_subtasks,
			tags = excluded.tags, permalink_url = excluded.permalink_url`,
		task.GID.String(), task.Name, task.Notes, task.Completed, nullTime(task.CompletedAt),
		assigneeGID, nullTime(task.DueOn), nullTime(task.StartOn),
		formatTime(task.CreatedAt), formatTime(task.ModifiedAt), task.ParentGID.String(),
		task.NumSubtasks, string(tags), task.PermalinkURL); err != nil {
		return goerr.Wrap(err, "failed to upsert task", goerr.V("gid", task.GID))
	}

	// Memberships are replaced wholesale so removals propagate
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM task_memberships WHERE task_gid = ?", task.GID.String()); err != nil {
		return goerr.Wrap(err, "failed to clear task memberships", goerr.V("gid", task.GID))
	}
	for _, m := range task.Memberships {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO task_memberships (task_gid, project_gid, project_name, section_gid, section_name)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(task_gid, project_gid) DO UPDATE SET
				project_name = excluded.project_name,
				section_gid = excluded.section_gid, section_name = excluded.section_name`,
			task.GID.String(), m.ProjectGID.String(), m.ProjectName,
			m.SectionGID.String(), m.SectionName); err != nil {
			return goerr.Wrap(err, "failed to upsert task membership", goerr.V("gid", task.GID))
		}
	}
	return nil
}

func (r *mirrorRepository) UpsertTask(ctx context.Context, task *model.Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertTaskTx(ctx, tx, task); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit task upsert", goerr.V("gid", task.GID))
	}
	return nil
}

func (r *mirrorRepository) UpsertTaskBatch(ctx context.Context, tasks []*model.Task) error {
	// A batch may reference users or parents that arrive later in the same
	// sync, so integrity checks are suspended for its duration. The pragma
	// is a no-op inside a transaction, hence the bracketing outside it.
	if _, err := r.db.ExecContext(ctx, "PRAGMA foreign_keys=OFF"); err != nil {
		return goerr.Wrap(err, "failed to relax foreign keys")
	}
	defer func() {
		_, _ = r.db.ExecContext(ctx, "PRAGMA foreign_keys=ON")
	}()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for _, task := range tasks {
		if err := upsertTaskTx(ctx, tx, task); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit task batch")
	}
	return nil
}

func (r *mirrorRepository) UpsertComment(ctx context.Context, comment *model.Comment) error {
	var authorGID, authorName string
	if comment.Author != nil {
		authorGID = comment.Author.GID.String()
		authorName = comment.Author.Name
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO comments (gid, task_gid, author_gid, author_name, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			author_gid = excluded.author_gid, author_name = excluded.author_name,
			text = excluded.text, created_at = excluded.created_at`,
		comment.GID.String(), comment.TaskGID.String(), authorGID, authorName,
		comment.Text, formatTime(comment.CreatedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to upsert comment", goerr.V("gid", comment.GID))
	}
	return nil
}

func (r *mirrorRepository) UpsertSection(ctx context.Context, section *model.Section) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sections (gid, project_gid, name, position) VALUES (?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			project_gid = excluded.project_gid, name = excluded.name, position = excluded.position`,
		section.GID.String(), section.ProjectGID.String(), section.Name, section.Position)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert section", goerr.V("gid", section.GID))
	}
	return nil
}

func (r *mirrorRepository) UpsertTeam(ctx context.Context, team *model.Team) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO teams (gid, name, workspace_gid, description) VALUES (?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			name = excluded.name, workspace_gid = excluded.workspace_gid,
			description = excluded.description`,
		team.GID.String(), team.Name, team.WorkspaceGID.String(), team.Description)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert team", goerr.V("gid", team.GID))
	}
	return nil
}

func (r *mirrorRepository) UpsertTeamMember(ctx context.Context, teamGID, userGID types.GID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO team_members (team_gid, user_gid) VALUES (?, ?)
		ON CONFLICT(team_gid, user_gid) DO NOTHING`,
		teamGID.String(), userGID.String())
	if err != nil {
		return goerr.Wrap(err, "failed to upsert team member",
			goerr.V("team", teamGID), goerr.V("user", userGID))
	}
	return nil
}

func (r *mirrorRepository) UpsertPortfolio(ctx context.Context, portfolio *model.Portfolio) error {
	var ownerGID string
	if portfolio.Owner != nil {
		ownerGID = portfolio.Owner.GID.String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO portfolios (gid, name, owner_gid, color, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			name = excluded.name, owner_gid = excluded.owner_gid,
			color = excluded.color, created_at = excluded.created_at`,
		portfolio.GID.String(), portfolio.Name, ownerGID, portfolio.Color,
		formatTime(portfolio.CreatedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to upsert portfolio", goerr.V("gid", portfolio.GID))
	}
	return nil
}

func (r *mirrorRepository) UpsertPortfolioProject(ctx context.Context, portfolioGID, projectGID types.GID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO portfolio_projects (portfolio_gid, project_gid) VALUES (?, ?)
		ON CONFLICT(portfolio_gid, project_gid) DO NOTHING`,
		portfolioGID.String(), projectGID.String())
	if err != nil {
		return goerr.Wrap(err, "failed to upsert portfolio project",
			goerr.V("portfolio", portfolioGID), goerr.V("project", projectGID))
	}
	return nil
}

func (r *mirrorRepository) UpsertStatusUpdate(ctx context.Context, update *model.StatusUpdate) error {
	var authorGID, authorName string
	if update.Author != nil {
		authorGID = update.Author.GID.String()
		authorName = update.Author.Name
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO status_updates (gid, parent_gid, title, text, state, author_gid, author_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			parent_gid = excluded.parent_gid, title = excluded.title, text = excluded.text,
			state = excluded.state, author_gid = excluded.author_gid,
			author_name = excluded.author_name, created_at = excluded.created_at`,
		update.GID.String(), update.ParentGID.String(), update.Title, update.Text,
		update.State, authorGID, authorName, formatTime(update.CreatedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to upsert status update", goerr.V("gid", update.GID))
	}
	return nil
}
