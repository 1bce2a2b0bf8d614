package model

import (
	"time"

	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

// UserRef is a minimal reference to a user embedded in another resource
type UserRef struct {
	GID   types.GID
	Name  string
	Email string
}

// User is a workspace user stored in the mirror
type User struct {
	GID       types.GID
	Name      string
	Email     string
	PhotoURL  string
	UpdatedAt time.Time
}

// Project is a remote project's current metadata
type Project struct {
	GID          types.GID
	Name         string
	Notes        string
	Color        string
	Archived     bool
	Owner        *UserRef
	TeamGID      types.GID
	TeamName     string
	WorkspaceGID types.GID
	DueOn        *time.Time
	StartOn      *time.Time
	CreatedAt    time.Time
	ModifiedAt   time.Time
	PermalinkURL string
}

// ProjectRef is a lightweight reference to a project inside a container
type ProjectRef struct {
	GID      types.GID
	Name     string
	Archived bool
}

// Membership places a task into a project and optionally a section
type Membership struct {
	ProjectGID  types.GID
	ProjectName string
	SectionGID  types.GID
	SectionName string
}

// Task is a remote task's current state
type Task struct {
	GID          types.GID
	Name         string
	Notes        string
	Completed    bool
	CompletedAt  *time.Time
	Assignee     *UserRef
	DueOn        *time.Time
	StartOn      *time.Time
	CreatedAt    time.Time
	ModifiedAt   time.Time
	ParentGID    types.GID
	NumSubtasks  int
	Memberships  []Membership
	Tags         []string
	PermalinkURL string
}

// Comment is a user-authored story attached to a task
type Comment struct {
	GID       types.GID
	TaskGID   types.GID
	Author    *UserRef
	Text      string
	CreatedAt time.Time
}

// Section is a named ordered division of a project
type Section struct {
	GID        types.GID
	ProjectGID types.GID
	Name       string
	Position   int
}

// Team is a remote team's metadata
type Team struct {
	GID          types.GID
	Name         string
	WorkspaceGID types.GID
	Description  string
}

// Portfolio is a remote portfolio's metadata
type Portfolio struct {
	GID       types.GID
	Name      string
	Owner     *UserRef
	Color     string
	CreatedAt time.Time
}

// PortfolioItem is an entry in a portfolio's item list
type PortfolioItem struct {
	GID          types.GID
	Name         string
	ResourceType string
}

// StatusUpdate is a project status post
type StatusUpdate struct {
	GID       types.GID
	ParentGID types.GID
	Title     string
	Text      string
	State     string
	Author    *UserRef
	CreatedAt time.Time
}
