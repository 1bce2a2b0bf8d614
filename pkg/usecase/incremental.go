package usecase

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/service/asana"
	"github.com/secmon-lab/taskmirror/pkg/utils/logging"
)

// readEvents fetches the change-event batch for an entity. It returns
// fullSync=true when this attempt cannot go incremental: either no cursor
// was on record (one is established and persisted for the next attempt) or
// the cursor had expired (the server-supplied fresh cursor is persisted).
// On a normal read the new cursor is NOT persisted here; persistence is the
// caller's responsibility, tied to successful application of the changes.
func (uc *UseCases) readEvents(ctx context.Context, ent *model.MonitoredEntity) (batch *model.EventBatch, fullSync bool, err error) {
	cursor, err := uc.repo.SyncState().GetEventCursor(ctx, ent.EntityKey)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to load event cursor", goerr.V("entity", ent.EntityKey))
	}

	if cursor == "" {
		fresh, err := callAPI(ctx, uc, func(ctx context.Context) (string, error) {
			return uc.api.EstablishCursor(ctx, ent.EntityGID)
		})
		if err != nil {
			return nil, false, goerr.Wrap(err, "failed to establish event cursor", goerr.V("entity", ent.EntityKey))
		}
		if err := uc.repo.SyncState().SetEventCursor(ctx, ent.EntityKey, fresh); err != nil {
			return nil, false, goerr.Wrap(err, "failed to persist event cursor", goerr.V("entity", ent.EntityKey))
		}
		logging.From(ctx).Debug("established event cursor, requesting full sync",
			"entity", ent.EntityKey.String())
		return nil, true, nil
	}

	batch, err = callAPI(ctx, uc, func(ctx context.Context) (*model.EventBatch, error) {
		return uc.api.GetEvents(ctx, ent.EntityGID, cursor)
	})
	if err != nil {
		if expired, ok := asana.AsCursorExpired(err); ok {
			// Persist the fresh cursor so the next attempt can go
			// incremental; this attempt falls back to full sync
			if expired.FreshCursor != "" {
				if perr := uc.repo.SyncState().SetEventCursor(ctx, ent.EntityKey, expired.FreshCursor); perr != nil {
					return nil, false, goerr.Wrap(perr, "failed to persist fresh cursor", goerr.V("entity", ent.EntityKey))
				}
			}
			logging.From(ctx).Info("event cursor expired, falling back to full sync",
				"entity", ent.EntityKey.String())
			return nil, true, nil
		}
		return nil, false, err
	}
	return batch, false, nil
}

// syncProjectIncremental applies a bounded set of changed-resource refetches
// driven by the event stream. It returns fallback=true when this attempt
// must be completed by a full sync instead.
func (uc *UseCases) syncProjectIncremental(ctx context.Context, ent *model.MonitoredEntity) (report *model.SyncReport, fallback bool, err error) {
	key := ent.EntityKey
	logger := logging.From(ctx)

	batch, fullSync, err := uc.readEvents(ctx, ent)
	if err != nil {
		return nil, false, err
	}
	if fullSync {
		return nil, true, nil
	}

	cs := classifyEvents(ctx, batch.Events)
	now := uc.now()

	if cs.empty() {
		// Nothing to do: advance the cursor and watermark without any
		// further remote I/O
		if err := uc.repo.SyncState().SetEventCursor(ctx, key, batch.NewCursor); err != nil {
			return nil, false, goerr.Wrap(err, "failed to persist event cursor", goerr.V("entity", key))
		}
		if err := uc.repo.SyncState().SetLastSyncAt(ctx, key, now); err != nil {
			return nil, false, goerr.Wrap(err, "failed to persist sync watermark", goerr.V("entity", key))
		}
		logger.Debug("no changes since last cursor", "entity", key.String())
		return model.NewSyncReport(key, 0, 0, 1, 1), false, nil
	}

	if cs.overLimit() {
		// Per-task fetches would exceed one bulk fetch. Advancing the
		// cursor here is safe: no changes were applied under it, and the
		// fallback full sync reconciles all current state independently.
		if err := uc.repo.SyncState().SetEventCursor(ctx, key, batch.NewCursor); err != nil {
			return nil, false, goerr.Wrap(err, "failed to persist event cursor", goerr.V("entity", key))
		}
		logger.Info("change set too large for incremental sync, falling back to full sync",
			"entity", key.String(), "changed_tasks", len(cs.tasks))
		return nil, true, nil
	}

	gids := make([]types.GID, 0, len(cs.tasks))
	for gid := range cs.tasks {
		gids = append(gids, gid)
	}
	sort.Slice(gids, func(i, j int) bool { return gids[i] < gids[j] })

	var synced, failed int
	for _, gid := range gids {
		task, err := callAPI(ctx, uc, func(ctx context.Context) (*model.Task, error) {
			return uc.api.GetTask(ctx, gid)
		})
		if err != nil {
			if asana.IsNotFound(err) {
				// Already deleted upstream; the next full sync reconciles
				logger.Debug("changed task no longer exists, skipping", "task", gid.String())
				continue
			}
			logger.Warn("failed to fetch changed task", "task", gid.String(), "error", err.Error())
			failed++
			continue
		}

		if err := uc.writeTask(ctx, task); err != nil {
			return nil, false, err
		}

		comments, err := callAPI(ctx, uc, func(ctx context.Context) ([]*model.Comment, error) {
			return uc.api.ListComments(ctx, task.GID)
		})
		if err != nil {
			logger.Warn("failed to fetch comments", "task", task.GID.String(), "error", err.Error())
			failed++
		} else if err := uc.writeComments(ctx, comments); err != nil {
			return nil, false, err
		}

		synced++
		uc.progress.TaskSynced(ctx, key, task.GID)
	}

	if cs.projectChanged || cs.sectionsChanged {
		if err := uc.refreshProjectMetadata(ctx, ent.EntityGID); err != nil {
			return nil, false, err
		}
	}
	if cs.statusChanged {
		if err := uc.refreshStatusUpdates(ctx, ent.EntityGID); err != nil {
			return nil, false, err
		}
	}

	// Cursor and watermark advance strictly after successful application
	if err := uc.repo.SyncState().SetEventCursor(ctx, key, batch.NewCursor); err != nil {
		return nil, false, goerr.Wrap(err, "failed to persist event cursor", goerr.V("entity", key))
	}
	if err := uc.repo.SyncState().SetLastSyncAt(ctx, key, now); err != nil {
		return nil, false, goerr.Wrap(err, "failed to persist sync watermark", goerr.V("entity", key))
	}

	logger.Info("incremental sync applied",
		"entity", key.String(), "synced", synced, "failed", failed)
	return model.NewSyncReport(key, synced, failed, 1, 1), false, nil
}

// writeTask upserts a task along with the users it references
func (uc *UseCases) writeTask(ctx context.Context, task *model.Task) error {
	if task.Assignee != nil {
		if err := uc.repo.Mirror().UpsertUserMinimal(ctx, task.Assignee); err != nil {
			return goerr.Wrap(err, "failed to upsert assignee", goerr.V("task", task.GID))
		}
	}
	if err := uc.repo.Mirror().UpsertTask(ctx, task); err != nil {
		return goerr.Wrap(err, "failed to upsert task", goerr.V("task", task.GID))
	}
	return nil
}

// writeComments upserts comments along with their authors
func (uc *UseCases) writeComments(ctx context.Context, comments []*model.Comment) error {
	for _, comment := range comments {
		if comment.Author != nil {
			if err := uc.repo.Mirror().UpsertUserMinimal(ctx, comment.Author); err != nil {
				return goerr.Wrap(err, "failed to upsert comment author", goerr.V("comment", comment.GID))
			}
		}
		if err := uc.repo.Mirror().UpsertComment(ctx, comment); err != nil {
			return goerr.Wrap(err, "failed to upsert comment", goerr.V("comment", comment.GID))
		}
	}
	return nil
}

// refreshProjectMetadata re-fetches and stores a project's metadata and
// sections
func (uc *UseCases) refreshProjectMetadata(ctx context.Context, projectGID types.GID) error {
	project, err := callAPI(ctx, uc, func(ctx context.Context) (*model.Project, error) {
		return uc.api.GetProject(ctx, projectGID)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to fetch project metadata", goerr.V("project", projectGID))
	}
	sections, err := callAPI(ctx, uc, func(ctx context.Context) ([]*model.Section, error) {
		return uc.api.ListSections(ctx, projectGID)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to fetch sections", goerr.V("project", projectGID))
	}
	return uc.writeProjectMetadata(ctx, project, sections)
}

// writeProjectMetadata upserts a project, its referenced users and team, and
// its sections. Referenced rows go in before the project itself.
func (uc *UseCases) writeProjectMetadata(ctx context.Context, project *model.Project, sections []*model.Section) error {
	if project.Owner != nil {
		if err := uc.repo.Mirror().UpsertUserMinimal(ctx, project.Owner); err != nil {
			return goerr.Wrap(err, "failed to upsert project owner", goerr.V("project", project.GID))
		}
	}
	if project.TeamGID != "" {
		team := &model.Team{
			GID:          project.TeamGID,
			Name:         project.TeamName,
			WorkspaceGID: project.WorkspaceGID,
		}
		if err := uc.repo.Mirror().UpsertTeam(ctx, team); err != nil {
			return goerr.Wrap(err, "failed to upsert team", goerr.V("project", project.GID))
		}
	}
	if err := uc.repo.Mirror().UpsertProject(ctx, project); err != nil {
		return goerr.Wrap(err, "failed to upsert project", goerr.V("project", project.GID))
	}
	for _, section := range sections {
		if err := uc.repo.Mirror().UpsertSection(ctx, section); err != nil {
			return goerr.Wrap(err, "failed to upsert section", goerr.V("section", section.GID))
		}
	}
	return nil
}

// refreshStatusUpdates re-fetches and stores an entity's status updates
func (uc *UseCases) refreshStatusUpdates(ctx context.Context, parentGID types.GID) error {
	updates, err := callAPI(ctx, uc, func(ctx context.Context) ([]*model.StatusUpdate, error) {
		return uc.api.ListStatusUpdates(ctx, parentGID)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to fetch status updates", goerr.V("parent", parentGID))
	}
	for _, update := range updates {
		if update.Author != nil {
			if err := uc.repo.Mirror().UpsertUserMinimal(ctx, update.Author); err != nil {
				return goerr.Wrap(err, "failed to upsert status author", goerr.V("status", update.GID))
			}
		}
		if err := uc.repo.Mirror().UpsertStatusUpdate(ctx, update); err != nil {
			return goerr.Wrap(err, "failed to upsert status update", goerr.V("status", update.GID))
		}
	}
	return nil
}
