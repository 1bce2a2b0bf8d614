package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/cli/config"
	"github.com/secmon-lab/taskmirror/pkg/domain/interfaces"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/usecase"
	"github.com/secmon-lab/taskmirror/pkg/utils/logging"
	"github.com/secmon-lab/taskmirror/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdSync() *cli.Command {
	var repoCfg config.Repository
	var asanaCfg config.Asana
	var syncCfg config.Sync
	var seedPath string

	var flags []cli.Flag
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, asanaCfg.Flags()...)
	flags = append(flags, syncCfg.Flags()...)
	flags = append(flags, &cli.StringFlag{
		Name:        "config",
		Usage:       "TOML seed file of entities to monitor before syncing",
		Category:    "Sync",
		Sources:     cli.EnvVars("TASKMIRROR_CONFIG"),
		Destination: &seedPath,
	})

	return &cli.Command{
		Name:      "sync",
		Usage:     "Synchronize monitored entities (all of them when no key is given)",
		ArgsUsage: "[type:gid ...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			opts, err := syncCfg.Options()
			if err != nil {
				return err
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			api, err := asanaCfg.Configure()
			if err != nil {
				return err
			}

			uc := usecase.New(repo, api, usecase.WithProgress(&consoleProgress{}))

			if seedPath != "" {
				if err := applySeed(ctx, uc, repo, seedPath); err != nil {
					return err
				}
			}

			var reports []*model.SyncReport
			if c.Args().Len() == 0 {
				reports, err = uc.SyncAll(ctx, opts)
				if err != nil {
					return err
				}
			} else {
				for _, arg := range c.Args().Slice() {
					key := types.EntityKey(arg)
					if err := key.Validate(); err != nil {
						return err
					}
					report, err := uc.SyncOne(ctx, key, opts)
					if err != nil {
						return err
					}
					reports = append(reports, report)
				}
			}

			for _, report := range reports {
				if report.Status == types.SyncStatusFailed {
					return goerr.New("sync failed", goerr.V("entity", report.EntityKey))
				}
			}
			return nil
		},
	}
}

// applySeed registers seed-file entities that are not yet monitored
func applySeed(ctx context.Context, uc *usecase.UseCases, repo interfaces.Repository, path string) error {
	seed, err := config.LoadSeed(path)
	if err != nil {
		return err
	}

	for _, entry := range seed.Entities {
		key := entry.Key()
		existing, err := repo.Entity().Get(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil && existing.SyncEnabled {
			continue
		}

		entityType, _ := types.ParseEntityType(entry.Type)
		if _, err := uc.AddEntity(ctx, entityType, types.GID(entry.GID)); err != nil {
			return goerr.Wrap(err, "failed to add seed entity", goerr.V("entity", key))
		}
		logging.From(ctx).Info("seed entity registered", "entity", key.String())
	}
	return nil
}
