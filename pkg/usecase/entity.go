package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/service/asana"
	"github.com/secmon-lab/taskmirror/pkg/utils/logging"
)

const (
	configKeyWorkspaceGID = "workspace_gid"
	configKeyUserGID      = "user_gid"
	configKeyUserName     = "user_name"
)

// AddEntity registers a new sync target, resolving its display name from the
// remote API so that `list` output is human readable from the start.
func (uc *UseCases) AddEntity(ctx context.Context, t types.EntityType, gid types.GID) (*model.MonitoredEntity, error) {
	if !t.IsValid() {
		return nil, goerr.New("invalid entity type", goerr.V("type", t))
	}
	if err := gid.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid entity gid")
	}

	name, err := uc.resolveDisplayName(ctx, t, gid)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve entity",
			goerr.V("type", t), goerr.V("gid", gid))
	}

	ent := model.NewMonitoredEntity(t, gid, name, uc.now())
	if err := uc.repo.Entity().Put(ctx, ent); err != nil {
		return nil, goerr.Wrap(err, "failed to store entity", goerr.V("entity", ent.EntityKey))
	}

	logging.From(ctx).Info("entity added",
		"entity", ent.EntityKey.String(), "name", ent.DisplayName)
	return ent, nil
}

func (uc *UseCases) resolveDisplayName(ctx context.Context, t types.EntityType, gid types.GID) (string, error) {
	switch t {
	case types.EntityTypeProject:
		project, err := callAPI(ctx, uc, func(ctx context.Context) (*model.Project, error) {
			return uc.api.GetProject(ctx, gid)
		})
		if err != nil {
			return "", err
		}
		return project.Name, nil

	case types.EntityTypeUser:
		user, err := callAPI(ctx, uc, func(ctx context.Context) (*model.User, error) {
			return uc.api.GetUser(ctx, gid)
		})
		if err != nil {
			return "", err
		}
		return user.Name, nil

	case types.EntityTypeTeam:
		team, err := callAPI(ctx, uc, func(ctx context.Context) (*model.Team, error) {
			return uc.api.GetTeam(ctx, gid)
		})
		if err != nil {
			return "", err
		}
		return team.Name, nil

	case types.EntityTypePortfolio:
		portfolio, err := callAPI(ctx, uc, func(ctx context.Context) (*model.Portfolio, error) {
			return uc.api.GetPortfolio(ctx, gid)
		})
		if err != nil {
			return "", err
		}
		return portfolio.Name, nil

	default:
		return "", goerr.New("unsupported entity type", goerr.V("type", t))
	}
}

// RemoveEntity stops syncing an entity. Mirrored data already stored for it
// is kept; only the monitoring registration goes away.
func (uc *UseCases) RemoveEntity(ctx context.Context, key types.EntityKey) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, goerr.Wrap(err, "invalid entity key")
	}
	removed, err := uc.repo.Entity().Remove(ctx, key)
	if err != nil {
		return false, goerr.Wrap(err, "failed to remove entity", goerr.V("entity", key))
	}
	if removed {
		logging.From(ctx).Info("entity removed", "entity", key.String())
	}
	return removed, nil
}

// ListEntities returns all sync-enabled entities in the order they were added
func (uc *UseCases) ListEntities(ctx context.Context) ([]*model.MonitoredEntity, error) {
	entities, err := uc.repo.Entity().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list entities")
	}
	return entities, nil
}

// WorkspaceGID returns the workspace used for task searches. The first call
// resolves it from the authenticated user's workspace list and caches it in
// the app config; later calls hit the cache only.
func (uc *UseCases) WorkspaceGID(ctx context.Context) (types.GID, error) {
	cached, err := uc.repo.Config().Get(ctx, configKeyWorkspaceGID)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read workspace config")
	}
	if cached != "" {
		return types.GID(cached), nil
	}

	type identity struct {
		user       *model.User
		workspaces []asana.Workspace
	}
	resolved, err := callAPI(ctx, uc, func(ctx context.Context) (*identity, error) {
		user, workspaces, err := uc.api.GetCurrentUser(ctx)
		if err != nil {
			return nil, err
		}
		return &identity{user: user, workspaces: workspaces}, nil
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve current user")
	}
	if len(resolved.workspaces) == 0 {
		return "", goerr.New("authenticated user has no workspace")
	}

	workspace := resolved.workspaces[0]
	if err := uc.repo.Config().Set(ctx, configKeyWorkspaceGID, workspace.GID.String()); err != nil {
		return "", goerr.Wrap(err, "failed to cache workspace gid")
	}
	if err := uc.repo.Config().Set(ctx, configKeyUserGID, resolved.user.GID.String()); err != nil {
		return "", goerr.Wrap(err, "failed to cache user gid")
	}
	if err := uc.repo.Config().Set(ctx, configKeyUserName, resolved.user.Name); err != nil {
		return "", goerr.Wrap(err, "failed to cache user name")
	}
	if err := uc.repo.Mirror().UpsertUser(ctx, resolved.user); err != nil {
		return "", goerr.Wrap(err, "failed to upsert current user")
	}

	logging.From(ctx).Info("workspace resolved",
		"workspace", workspace.GID.String(), "name", workspace.Name,
		"user", resolved.user.Name)
	return workspace.GID, nil
}

// GetConfig returns all stored app config entries
func (uc *UseCases) GetConfig(ctx context.Context) (map[string]string, error) {
	entries, err := uc.repo.Config().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list config")
	}
	return entries, nil
}

// SetConfig stores an app config entry
func (uc *UseCases) SetConfig(ctx context.Context, key, value string) error {
	if key == "" {
		return goerr.New("config key must not be empty")
	}
	if err := uc.repo.Config().Set(ctx, key, value); err != nil {
		return goerr.Wrap(err, "failed to set config", goerr.V("key", key))
	}
	return nil
}
