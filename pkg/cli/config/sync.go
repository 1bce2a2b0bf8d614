package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Sync holds CLI flags controlling a sync run
type Sync struct {
	since     string
	days      int
	forceFull bool
}

// Flags returns CLI flags for sync configuration
func (s *Sync) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "since",
			Usage:       "Lookback boundary for completed tasks (YYYY-MM-DD)",
			Category:    "Sync",
			Sources:     cli.EnvVars("TASKMIRROR_SYNC_SINCE"),
			Destination: &s.since,
		},
		&cli.IntFlag{
			Name:        "days",
			Usage:       "Lookback window in days when --since is not given",
			Category:    "Sync",
			Sources:     cli.EnvVars("TASKMIRROR_SYNC_DAYS"),
			Destination: &s.days,
		},
		&cli.BoolFlag{
			Name:        "full",
			Usage:       "Skip incremental sync and force a full sync",
			Category:    "Sync",
			Destination: &s.forceFull,
		},
	}
}

// Options converts the flags into engine sync options
func (s *Sync) Options() (model.SyncOptions, error) {
	opts := model.SyncOptions{
		Days:      s.days,
		ForceFull: s.forceFull,
	}
	if s.since != "" {
		t, err := time.Parse("2006-01-02", s.since)
		if err != nil {
			return opts, goerr.Wrap(err, "invalid --since date", goerr.V("value", s.since))
		}
		opts.Since = &t
	}
	return opts, nil
}
