package types

import "fmt"

// EntityType represents the kind of a monitored synchronizable unit
type EntityType string

const (
	EntityTypeProject   EntityType = "project"
	EntityTypeUser      EntityType = "user"
	EntityTypeTeam      EntityType = "team"
	EntityTypePortfolio EntityType = "portfolio"
)

// AllEntityTypes returns all valid entity types
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityTypeProject,
		EntityTypeUser,
		EntityTypeTeam,
		EntityTypePortfolio,
	}
}

// IsValid checks if the entity type is valid
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeProject,
		EntityTypeUser,
		EntityTypeTeam,
		EntityTypePortfolio:
		return true
	default:
		return false
	}
}

// String returns the string representation of the entity type
func (t EntityType) String() string {
	return string(t)
}

// ParseEntityType parses a string into an EntityType
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid entity type: %s", s)
	}
	return t, nil
}
