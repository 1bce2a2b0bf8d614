package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/secmon-lab/taskmirror/pkg/cli/config"
	"github.com/secmon-lab/taskmirror/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdList() *cli.Command {
	var repoCfg config.Repository

	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List monitored entities",
		Flags:   repoCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			entities, err := repo.Entity().List(ctx)
			if err != nil {
				return err
			}
			if len(entities) == 0 {
				fmt.Println("No monitored entities. Use 'taskmirror add' to start.")
				return nil
			}

			bold := color.New(color.Bold)
			for _, ent := range entities {
				bold.Printf("%-40s", ent.EntityKey)
				fmt.Printf(" %s", ent.DisplayName)
				if ent.LastSyncAt != nil {
					fmt.Printf("  (last sync %s)", ent.LastSyncAt.Format("2006-01-02 15:04"))
				} else {
					fmt.Printf("  (never synced)")
				}
				fmt.Println()
			}
			return nil
		},
	}
}
