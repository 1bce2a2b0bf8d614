package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/cli/config"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
	"github.com/secmon-lab/taskmirror/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdRemove() *cli.Command {
	var repoCfg config.Repository

	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Stop monitoring an entity (mirrored data is kept)",
		ArgsUsage: "<type:gid>",
		Flags:     repoCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return goerr.New("expected argument: <type:gid>")
			}
			key := types.EntityKey(c.Args().Get(0))
			if err := key.Validate(); err != nil {
				return err
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			removed, err := repo.Entity().Remove(ctx, key)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Printf("Not monitored: %s\n", key)
				return nil
			}

			color.New(color.FgYellow).Printf("Removed %s\n", key)
			return nil
		},
	}
}
