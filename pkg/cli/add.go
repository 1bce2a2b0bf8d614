package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/cli/config"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/usecase"
	"github.com/secmon-lab/taskmirror/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdAdd() *cli.Command {
	var repoCfg config.Repository
	var asanaCfg config.Asana

	var flags []cli.Flag
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, asanaCfg.Flags()...)

	return &cli.Command{
		Name:      "add",
		Usage:     "Start monitoring an entity",
		ArgsUsage: "<project|user|team|portfolio> <gid>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 2 {
				return goerr.New("expected arguments: <type> <gid>")
			}
			entityType, err := types.ParseEntityType(c.Args().Get(0))
			if err != nil {
				return err
			}
			gid := types.GID(c.Args().Get(1))

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			api, err := asanaCfg.Configure()
			if err != nil {
				return err
			}

			uc := usecase.New(repo, api)
			ent, err := uc.AddEntity(ctx, entityType, gid)
			if err != nil {
				return err
			}

			color.New(color.FgGreen).Printf("Added %s: %s\n", ent.EntityKey, ent.DisplayName)
			return nil
		},
	}
}
