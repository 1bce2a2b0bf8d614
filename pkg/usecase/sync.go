package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/utils/logging"
)

// ErrEntityNotMonitored is returned when a sync targets an unknown entity
var ErrEntityNotMonitored = goerr.New("entity is not monitored")

// SyncOne synchronizes a single monitored entity and returns its report
func (uc *UseCases) SyncOne(ctx context.Context, key types.EntityKey, opts model.SyncOptions) (*model.SyncReport, error) {
	ent, err := uc.repo.Entity().Get(ctx, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load entity", goerr.V("entity", key))
	}
	if ent == nil {
		return nil, goerr.Wrap(ErrEntityNotMonitored, "unknown entity", goerr.V("entity", key))
	}
	return uc.syncEntity(ctx, ent, opts)
}

// SyncAll synchronizes every monitored entity strictly sequentially in the
// order they were added. One entity's failure is converted into a Failed
// report for that entity alone; the remaining entities still sync.
func (uc *UseCases) SyncAll(ctx context.Context, opts model.SyncOptions) ([]*model.SyncReport, error) {
	entities, err := uc.repo.Entity().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list monitored entities")
	}

	reports := make([]*model.SyncReport, 0, len(entities))
	for _, ent := range entities {
		report, err := uc.syncEntity(ctx, ent, opts)
		if err != nil {
			logging.From(ctx).Error("entity sync failed",
				"entity", ent.EntityKey.String(), "error", err.Error())
			report = model.NewFailedReport(ent.EntityKey, err)
			uc.progress.SyncFinished(ctx, report)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (uc *UseCases) syncEntity(ctx context.Context, ent *model.MonitoredEntity, opts model.SyncOptions) (*model.SyncReport, error) {
	uc.progress.SyncStarted(ctx, ent.EntityKey)

	var report *model.SyncReport
	var err error
	switch ent.EntityType {
	case types.EntityTypeProject:
		report, err = uc.syncProject(ctx, ent, opts)
	case types.EntityTypeUser:
		report, err = uc.syncUserFull(ctx, ent, opts)
	case types.EntityTypeTeam:
		report, err = uc.syncTeam(ctx, ent, opts)
	case types.EntityTypePortfolio:
		report, err = uc.syncPortfolio(ctx, ent, opts)
	default:
		err = goerr.New("unsupported entity type", goerr.V("type", ent.EntityType))
	}

	if report != nil {
		uc.progress.SyncFinished(ctx, report)
	}
	return report, err
}

// syncProject attempts incremental sync first, falling back to a full sync
// on an absent or expired cursor, an oversized change set, or any
// incremental error
func (uc *UseCases) syncProject(ctx context.Context, ent *model.MonitoredEntity, opts model.SyncOptions) (*model.SyncReport, error) {
	if !opts.ForceFull {
		report, fallback, err := uc.syncProjectIncremental(ctx, ent)
		if err != nil {
			logging.From(ctx).Warn("incremental sync failed, falling back to full sync",
				"entity", ent.EntityKey.String(), "error", err.Error())
		} else if !fallback {
			return report, nil
		}
	}
	return uc.syncProjectFull(ctx, ent, opts)
}

// syncTeam syncs the team's own metadata and members, then cascades to each
// of its projects. Child reports aggregate with projects as batch units.
func (uc *UseCases) syncTeam(ctx context.Context, ent *model.MonitoredEntity, opts model.SyncOptions) (*model.SyncReport, error) {
	key := ent.EntityKey
	logger := logging.From(ctx)

	team, err := callAPI(ctx, uc, func(ctx context.Context) (*model.Team, error) {
		return uc.api.GetTeam(ctx, ent.EntityGID)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch team", goerr.V("entity", key))
	}
	if err := uc.repo.Mirror().UpsertTeam(ctx, team); err != nil {
		return nil, goerr.Wrap(err, "failed to upsert team", goerr.V("entity", key))
	}

	members, err := callAPI(ctx, uc, func(ctx context.Context) ([]*model.UserRef, error) {
		return uc.api.ListTeamMembers(ctx, ent.EntityGID)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch team members", goerr.V("entity", key))
	}
	for _, member := range members {
		if err := uc.repo.Mirror().UpsertUserMinimal(ctx, member); err != nil {
			return nil, goerr.Wrap(err, "failed to upsert team member", goerr.V("entity", key))
		}
		if err := uc.repo.Mirror().UpsertTeamMember(ctx, ent.EntityGID, member.GID); err != nil {
			return nil, goerr.Wrap(err, "failed to link team member", goerr.V("entity", key))
		}
	}

	projects, err := callAPI(ctx, uc, func(ctx context.Context) ([]model.ProjectRef, error) {
		return uc.api.ListTeamProjects(ctx, ent.EntityGID)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch team projects", goerr.V("entity", key))
	}

	var synced, failed, completed, total int
	for _, ref := range projects {
		if ref.Archived {
			continue
		}
		total++
		childReport, err := uc.syncChildProject(ctx, ref.GID, ref.Name, opts)
		if err != nil {
			logger.Error("failed to sync team project",
				"team", key.String(), "project", ref.GID.String(), "error", err.Error())
			failed++
			continue
		}
		synced += childReport.ItemsSynced
		failed += childReport.ItemsFailed
		completed++
		uc.progress.BatchCompleted(ctx, key, completed, total)
	}

	return model.NewSyncReport(key, synced, failed, completed, total), nil
}

// syncPortfolio syncs the portfolio's metadata, then each contained project.
// The portfolio-project link is written only after the child project exists.
func (uc *UseCases) syncPortfolio(ctx context.Context, ent *model.MonitoredEntity, opts model.SyncOptions) (*model.SyncReport, error) {
	key := ent.EntityKey
	logger := logging.From(ctx)

	portfolio, err := callAPI(ctx, uc, func(ctx context.Context) (*model.Portfolio, error) {
		return uc.api.GetPortfolio(ctx, ent.EntityGID)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch portfolio", goerr.V("entity", key))
	}
	if portfolio.Owner != nil {
		if err := uc.repo.Mirror().UpsertUserMinimal(ctx, portfolio.Owner); err != nil {
			return nil, goerr.Wrap(err, "failed to upsert portfolio owner", goerr.V("entity", key))
		}
	}
	if err := uc.repo.Mirror().UpsertPortfolio(ctx, portfolio); err != nil {
		return nil, goerr.Wrap(err, "failed to upsert portfolio", goerr.V("entity", key))
	}

	items, err := callAPI(ctx, uc, func(ctx context.Context) ([]model.PortfolioItem, error) {
		return uc.api.ListPortfolioItems(ctx, ent.EntityGID)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch portfolio items", goerr.V("entity", key))
	}

	var synced, failed, completed, total int
	for _, item := range items {
		if item.ResourceType != "project" {
			continue
		}
		total++
		childReport, err := uc.syncChildProject(ctx, item.GID, item.Name, opts)
		if err != nil {
			logger.Error("failed to sync portfolio project",
				"portfolio", key.String(), "project", item.GID.String(), "error", err.Error())
			failed++
			continue
		}
		if err := uc.repo.Mirror().UpsertPortfolioProject(ctx, ent.EntityGID, item.GID); err != nil {
			return nil, goerr.Wrap(err, "failed to link portfolio project", goerr.V("entity", key))
		}
		synced += childReport.ItemsSynced
		failed += childReport.ItemsFailed
		completed++
		uc.progress.BatchCompleted(ctx, key, completed, total)
	}

	return model.NewSyncReport(key, synced, failed, completed, total), nil
}

// syncChildProject syncs a project discovered through a container. The
// project gets an anchor row (SyncEnabled=false) so it can hold a cursor
// without becoming a first-class monitored target.
func (uc *UseCases) syncChildProject(ctx context.Context, gid types.GID, name string, opts model.SyncOptions) (*model.SyncReport, error) {
	if err := uc.repo.Entity().EnsureForSync(ctx, types.EntityTypeProject, gid, name); err != nil {
		return nil, goerr.Wrap(err, "failed to anchor child project", goerr.V("project", gid))
	}

	key := types.NewEntityKey(types.EntityTypeProject, gid)
	ent, err := uc.repo.Entity().Get(ctx, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load child project", goerr.V("project", gid))
	}
	if ent == nil {
		return nil, goerr.New("child project anchor row missing", goerr.V("project", gid))
	}
	return uc.syncProject(ctx, ent, opts)
}
