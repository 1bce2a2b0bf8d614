package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

// Seed is a declarative list of entities to monitor, loaded from a TOML
// file so a mirror can be reproduced without replaying add commands
type Seed struct {
	Entities []SeedEntity `toml:"entity"`
}

// SeedEntity names one entity to monitor
type SeedEntity struct {
	Type string `toml:"type"`
	GID  string `toml:"gid"`
}

// Validate checks if the seed entity is valid
func (e *SeedEntity) Validate() error {
	if _, err := types.ParseEntityType(e.Type); err != nil {
		return goerr.Wrap(err, "invalid entity type", goerr.V("type", e.Type))
	}
	if err := types.GID(e.GID).Validate(); err != nil {
		return goerr.Wrap(err, "invalid entity gid", goerr.V("gid", e.GID))
	}
	return nil
}

// Key returns the entity key for the seed entry
func (e *SeedEntity) Key() types.EntityKey {
	t, _ := types.ParseEntityType(e.Type)
	return types.NewEntityKey(t, types.GID(e.GID))
}

// LoadSeed reads and validates a seed file
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read seed file", goerr.V("path", path))
	}

	var seed Seed
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, goerr.Wrap(err, "failed to parse seed file", goerr.V("path", path))
	}

	seen := make(map[types.EntityKey]bool)
	for i := range seed.Entities {
		if err := seed.Entities[i].Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid seed entry", goerr.V("index", i))
		}
		key := seed.Entities[i].Key()
		if seen[key] {
			return nil, goerr.New("duplicate seed entry", goerr.V("entity", key))
		}
		seen[key] = true
	}
	return &seed, nil
}
