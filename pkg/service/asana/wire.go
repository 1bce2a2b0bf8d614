package asana

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

// Wire representations of API resources. Only the fields the mirror stores
// are requested via opt_fields and decoded here.

type userData struct {
	GID        string `json:"gid"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Photo      *struct {
		Image128 string `json:"image_128x128"`
	} `json:"photo"`
	Workspaces []refData `json:"workspaces"`
}

type refData struct {
	GID          string `json:"gid"`
	Name         string `json:"name"`
	ResourceType string `json:"resource_type"`
}

type projectData struct {
	GID          string   `json:"gid"`
	Name         string   `json:"name"`
	Notes        string   `json:"notes"`
	Color        string   `json:"color"`
	Archived     bool     `json:"archived"`
	Owner        *memberData `json:"owner"`
	Team         *refData `json:"team"`
	Workspace    *refData `json:"workspace"`
	DueOn        string   `json:"due_on"`
	StartOn      string   `json:"start_on"`
	CreatedAt    string   `json:"created_at"`
	ModifiedAt   string   `json:"modified_at"`
	PermalinkURL string   `json:"permalink_url"`
}

type projectRefData struct {
	GID      string `json:"gid"`
	Name     string `json:"name"`
	Archived bool   `json:"archived"`
}

type memberData struct {
	GID   string `json:"gid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type membershipData struct {
	Project *refData `json:"project"`
	Section *refData `json:"section"`
}

type taskData struct {
	GID          string           `json:"gid"`
	Name         string           `json:"name"`
	Notes        string           `json:"notes"`
	Completed    bool             `json:"completed"`
	CompletedAt  string           `json:"completed_at"`
	Assignee     *memberData      `json:"assignee"`
	DueOn        string           `json:"due_on"`
	StartOn      string           `json:"start_on"`
	CreatedAt    string           `json:"created_at"`
	ModifiedAt   string           `json:"modified_at"`
	Parent       *refData         `json:"parent"`
	NumSubtasks  int              `json:"num_subtasks"`
	Memberships  []membershipData `json:"memberships"`
	Tags         []refData        `json:"tags"`
	PermalinkURL string           `json:"permalink_url"`
}

type storyData struct {
	GID             string      `json:"gid"`
	ResourceSubtype string      `json:"resource_subtype"`
	Text            string      `json:"text"`
	CreatedAt       string      `json:"created_at"`
	CreatedBy       *memberData `json:"created_by"`
}

type sectionData struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

type teamData struct {
	GID          string   `json:"gid"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Organization *refData `json:"organization"`
}

type portfolioData struct {
	GID       string      `json:"gid"`
	Name      string      `json:"name"`
	Color     string      `json:"color"`
	Owner     *memberData `json:"owner"`
	CreatedAt string      `json:"created_at"`
}

type statusUpdateData struct {
	GID        string      `json:"gid"`
	Title      string      `json:"title"`
	Text       string      `json:"text"`
	StatusType string      `json:"status_type"`
	Parent     *refData    `json:"parent"`
	CreatedBy  *memberData `json:"created_by"`
	CreatedAt  string      `json:"created_at"`
}

type eventData struct {
	Action   string   `json:"action"`
	Resource *refData `json:"resource"`
	Parent   *refData `json:"parent"`
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "invalid timestamp", goerr.V("value", s))
	}
	return t, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid date", goerr.V("value", s))
	}
	return &t, nil
}

func (d *memberData) toRef() *model.UserRef {
	if d == nil {
		return nil
	}
	return &model.UserRef{GID: types.GID(d.GID), Name: d.Name, Email: d.Email}
}

func (d *userData) toModel(now time.Time) *model.User {
	u := &model.User{
		GID:       types.GID(d.GID),
		Name:      d.Name,
		Email:     d.Email,
		UpdatedAt: now,
	}
	if d.Photo != nil {
		u.PhotoURL = d.Photo.Image128
	}
	return u
}

func (d *projectData) toModel() (*model.Project, error) {
	createdAt, err := parseTimestamp(d.CreatedAt)
	if err != nil {
		return nil, err
	}
	modifiedAt, err := parseTimestamp(d.ModifiedAt)
	if err != nil {
		return nil, err
	}
	dueOn, err := parseDate(d.DueOn)
	if err != nil {
		return nil, err
	}
	startOn, err := parseDate(d.StartOn)
	if err != nil {
		return nil, err
	}

	p := &model.Project{
		GID:          types.GID(d.GID),
		Name:         d.Name,
		Notes:        d.Notes,
		Color:        d.Color,
		Archived:     d.Archived,
		Owner:        d.Owner.toRef(),
		DueOn:        dueOn,
		StartOn:      startOn,
		CreatedAt:    createdAt,
		ModifiedAt:   modifiedAt,
		PermalinkURL: d.PermalinkURL,
	}
	if d.Team != nil {
		p.TeamGID = types.GID(d.Team.GID)
		p.TeamName = d.Team.Name
	}
	if d.Workspace != nil {
		p.WorkspaceGID = types.GID(d.Workspace.GID)
	}
	return p, nil
}

func (d *taskData) toModel() (*model.Task, error) {
	createdAt, err := parseTimestamp(d.CreatedAt)
	if err != nil {
		return nil, err
	}
	modifiedAt, err := parseTimestamp(d.ModifiedAt)
	if err != nil {
		return nil, err
	}
	dueOn, err := parseDate(d.DueOn)
	if err != nil {
		return nil, err
	}
	startOn, err := parseDate(d.StartOn)
	if err != nil {
		return nil, err
	}

	t := &model.Task{
		GID:          types.GID(d.GID),
		Name:         d.Name,
		Notes:        d.Notes,
		Completed:    d.Completed,
		Assignee:     d.Assignee.toRef(),
		DueOn:        dueOn,
		StartOn:      startOn,
		CreatedAt:    createdAt,
		ModifiedAt:   modifiedAt,
		NumSubtasks:  d.NumSubtasks,
		PermalinkURL: d.PermalinkURL,
	}
	if d.CompletedAt != "" {
		completedAt, err := parseTimestamp(d.CompletedAt)
		if err != nil {
			return nil, err
		}
		t.CompletedAt = &completedAt
	}
	if d.Parent != nil {
		t.ParentGID = types.GID(d.Parent.GID)
	}
	for _, m := range d.Memberships {
		ms := model.Membership{}
		if m.Project != nil {
			ms.ProjectGID = types.GID(m.Project.GID)
			ms.ProjectName = m.Project.Name
		}
		if m.Section != nil {
			ms.SectionGID = types.GID(m.Section.GID)
			ms.SectionName = m.Section.Name
		}
		t.Memberships = append(t.Memberships, ms)
	}
	for _, tag := range d.Tags {
		t.Tags = append(t.Tags, tag.Name)
	}
	return t, nil
}

func (d *storyData) toComment(taskGID types.GID) (*model.Comment, error) {
	createdAt, err := parseTimestamp(d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &model.Comment{
		GID:       types.GID(d.GID),
		TaskGID:   taskGID,
		Author:    d.CreatedBy.toRef(),
		Text:      d.Text,
		CreatedAt: createdAt,
	}, nil
}

func (d *teamData) toModel() *model.Team {
	t := &model.Team{
		GID:         types.GID(d.GID),
		Name:        d.Name,
		Description: d.Description,
	}
	if d.Organization != nil {
		t.WorkspaceGID = types.GID(d.Organization.GID)
	}
	return t
}

func (d *portfolioData) toModel() (*model.Portfolio, error) {
	createdAt, err := parseTimestamp(d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &model.Portfolio{
		GID:       types.GID(d.GID),
		Name:      d.Name,
		Color:     d.Color,
		Owner:     d.Owner.toRef(),
		CreatedAt: createdAt,
	}, nil
}

func (d *statusUpdateData) toModel(parentGID types.GID) (*model.StatusUpdate, error) {
	createdAt, err := parseTimestamp(d.CreatedAt)
	if err != nil {
		return nil, err
	}
	u := &model.StatusUpdate{
		GID:       types.GID(d.GID),
		ParentGID: parentGID,
		Title:     d.Title,
		Text:      d.Text,
		State:     d.StatusType,
		Author:    d.CreatedBy.toRef(),
		CreatedAt: createdAt,
	}
	if d.Parent != nil {
		u.ParentGID = types.GID(d.Parent.GID)
	}
	return u, nil
}

func (d *eventData) toModel() model.ChangeEvent {
	ev := model.ChangeEvent{
		Action: types.EventAction(d.Action),
	}
	if d.Resource != nil {
		ev.ResourceKind = types.ResourceKind(d.Resource.ResourceType)
		ev.ResourceGID = types.GID(d.Resource.GID)
	}
	if d.Parent != nil {
		ev.ParentKind = types.ResourceKind(d.Parent.ResourceType)
		ev.ParentGID = types.GID(d.Parent.GID)
	}
	return ev
}
