package cli

import (
	"context"

	"github.com/secmon-lab/taskmirror/pkg/cli/config"
	"github.com/secmon-lab/taskmirror/pkg/utils/errutil"
	"github.com/secmon-lab/taskmirror/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger
	var closer func()

	app := &cli.Command{
		Name:    "taskmirror",
		Usage:   "Local queryable mirror of Asana projects, tasks and comments",
		Version: version,
		Flags:   loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closer = f

			logging.Default().Debug("Starting taskmirror", "logger", loggerCfg)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if closer != nil {
				closer()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdAdd(),
			cmdRemove(),
			cmdList(),
			cmdSync(),
			cmdBackfill(),
			cmdConfig(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		return errutil.Handle(ctx, err, "failed to run app")
	}

	return nil
}
