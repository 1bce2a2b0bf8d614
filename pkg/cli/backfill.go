package cli

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/cli/config"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/usecase"
	"github.com/secmon-lab/taskmirror/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdBackfill() *cli.Command {
	var repoCfg config.Repository
	var asanaCfg config.Asana
	var from, to string

	var flags []cli.Flag
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, asanaCfg.Flags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "from",
			Usage:       "Start of the historical range (YYYY-MM-DD, required)",
			Category:    "Backfill",
			Required:    true,
			Destination: &from,
		},
		&cli.StringFlag{
			Name:        "to",
			Usage:       "End of the historical range (YYYY-MM-DD, defaults to today)",
			Category:    "Backfill",
			Destination: &to,
		},
	)

	return &cli.Command{
		Name:      "backfill",
		Usage:     "Fill historical task coverage for a project or user",
		ArgsUsage: "<type:gid>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return goerr.New("expected argument: <type:gid>")
			}
			key := types.EntityKey(c.Args().Get(0))
			if err := key.Validate(); err != nil {
				return err
			}

			start, err := time.Parse("2006-01-02", from)
			if err != nil {
				return goerr.Wrap(err, "invalid --from date", goerr.V("value", from))
			}
			end := time.Now().UTC()
			if to != "" {
				if end, err = time.Parse("2006-01-02", to); err != nil {
					return goerr.Wrap(err, "invalid --to date", goerr.V("value", to))
				}
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
			report, err := uc.Backfill(ctx, key, model.NewDateRange(start, end))
			if err != nil {
				return err
			}
			if report.Status == types.SyncStatusFailed {
				return goerr.New("backfill failed", goerr.V("entity", key))
			}
			return nil
		},
	}
}
