package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/cli/config"
	"github.com/secmon-lab/taskmirror/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdConfig() *cli.Command {
	var repoCfg config.Repository

	return &cli.Command{
		Name:  "config",
		Usage: "Inspect or change stored app configuration",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show all stored config entries",
				Flags: repoCfg.Flags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					repo, err := repoCfg.Configure(ctx)
					if err != nil {
						return err
					}
					defer safe.Close(ctx, repo)

					entries, err := repo.Config().List(ctx)
					if err != nil {
						return err
					}

					keys := make([]string, 0, len(entries))
					for k := range entries {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					for _, k := range keys {
						fmt.Printf("%s = %s\n", k, entries[k])
					}
					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "Store a config entry",
				ArgsUsage: "<key> <value>",
				Flags:     repoCfg.Flags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 2 {
						return goerr.New("expected arguments: <key> <value>")
					}

					repo, err := repoCfg.Configure(ctx)
					if err != nil {
						return err
					}
					defer safe.Close(ctx, repo)

					return repo.Config().Set(ctx, c.Args().Get(0), c.Args().Get(1))
				},
			},
		},
	}
}
