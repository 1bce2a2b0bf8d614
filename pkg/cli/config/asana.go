package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/service/asana"
	"github.com/urfave/cli/v3"
)

// Asana holds CLI flags for the remote API client
type Asana struct {
	token   string
	baseURL string
}

// Flags returns CLI flags for API configuration
func (x *Asana) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "asana-token",
			Usage:       "Asana personal access token (required)",
			Category:    "Asana",
			Sources:     cli.EnvVars("TASKMIRROR_ASANA_TOKEN", "ASANA_TOKEN"),
			Destination: &x.token,
		},
		&cli.StringFlag{
			Name:        "asana-base-url",
			Usage:       "Override the Asana API base URL",
			Category:    "Asana",
			Sources:     cli.EnvVars("TASKMIRROR_ASANA_BASE_URL"),
			Destination: &x.baseURL,
		},
	}
}

func (x Asana) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("token.len", len(x.token)),
		slog.String("base-url", x.baseURL),
	)
}

// Configure builds the API client
func (x *Asana) Configure() (asana.Service, error) {
	if x.token == "" {
		return nil, goerr.New("asana-token is required")
	}

	var opts []asana.Option
	if x.baseURL != "" {
		opts = append(opts, asana.WithBaseURL(x.baseURL))
	}
	svc, err := asana.New(x.token, opts...)
	if err != nil {
		return nil, err
	}
	return svc, nil
}
