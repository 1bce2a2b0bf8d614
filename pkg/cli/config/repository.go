package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/interfaces"
	"github.com/secmon-lab/taskmirror/pkg/repository/memory"
	"github.com/secmon-lab/taskmirror/pkg/repository/sqlite"
	"github.com/secmon-lab/taskmirror/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend string
	dbPath  string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (sqlite or memory)",
			Category:    "Repository",
			Value:       "sqlite",
			Sources:     cli.EnvVars("TASKMIRROR_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "db-path",
			Usage:       "SQLite database path",
			Category:    "Repository",
			Value:       "taskmirror.db",
			Sources:     cli.EnvVars("TASKMIRROR_DB_PATH"),
			Destination: &r.dbPath,
		},
	}
}

// Configure initializes and returns a repository based on the configured
// backend. The caller is responsible for calling Close() on the returned
// repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case "sqlite":
		repo, err := sqlite.New(r.dbPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize sqlite repository")
		}
		logging.Default().Info("Using SQLite repository", "path", r.dbPath)
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.New("unknown repository backend", goerr.V("backend", r.backend))
	}
}
