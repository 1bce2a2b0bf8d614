package types

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// GID is an opaque remote resource identifier
type GID string

// String returns the string representation of the GID
func (g GID) String() string {
	return string(g)
}

// Validate checks if the GID is non-empty
func (g GID) Validate() error {
	if g == "" {
		return goerr.New("gid must not be empty")
	}
	return nil
}

// EntityKey uniquely identifies a monitored entity as "type:gid"
type EntityKey string

// NewEntityKey builds an EntityKey from an entity type and gid
func NewEntityKey(t EntityType, gid GID) EntityKey {
	return EntityKey(fmt.Sprintf("%s:%s", t, gid))
}

// String returns the string representation of the entity key
func (k EntityKey) String() string {
	return string(k)
}

// Split breaks the key into its entity type and gid
func (k EntityKey) Split() (EntityType, GID, error) {
	parts := strings.SplitN(string(k), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", goerr.New("invalid entity key", goerr.V("key", string(k)))
	}
	t, err := ParseEntityType(parts[0])
	if err != nil {
		return "", "", goerr.Wrap(err, "invalid entity key", goerr.V("key", string(k)))
	}
	return t, GID(parts[1]), nil
}

// Validate checks if the entity key is well-formed
func (k EntityKey) Validate() error {
	_, _, err := k.Split()
	return err
}
