package asana

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

const (
	defaultBaseURL  = "https://app.asana.com/api/1.0"
	defaultPageSize = 100
)

const (
	taskOptFields = "gid,name,notes,completed,completed_at,assignee,assignee.name,assignee.email," +
		"due_on,start_on,created_at,modified_at,parent,num_subtasks," +
		"memberships,memberships.project,memberships.project.name," +
		"memberships.section,memberships.section.name,tags,tags.name,permalink_url"
	projectOptFields = "gid,name,notes,color,archived,owner,owner.name,team,team.name," +
		"workspace,due_on,start_on,created_at,modified_at,permalink_url"
)

// client implements the Service interface over the REST API
type client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	pageSize   int
}

var _ Service = &client{}

// Option configures the client
type Option func(*client)

// WithBaseURL overrides the API base URL (used in tests)
func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithPageSize overrides the page size requested from collection endpoints
func WithPageSize(n int) Option {
	return func(c *client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// New creates a new API service with the provided access token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("API access token is required")
	}

	c := &client{
		baseURL:    defaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		pageSize:   defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope is the standard response wrapper: a data payload, optional
// pagination, and for the events endpoint a sync token
type envelope struct {
	Data     json.RawMessage `json:"data"`
	NextPage *struct {
		Offset string `json:"offset"`
	} `json:"next_page"`
	Sync   string `json:"sync"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (e *envelope) errorMessage() string {
	if len(e.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(e.Errors))
	for i, apiErr := range e.Errors {
		msgs[i] = apiErr.Message
	}
	return strings.Join(msgs, "; ")
}

// get performs one GET request and maps error statuses to tagged errors.
// A 412 response is returned as *CursorExpiredError carrying the fresh sync
// token the server issues alongside it.
func (c *client) get(ctx context.Context, path string, query url.Values) (*envelope, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request", goerr.V("path", path))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "request failed", goerr.V("path", path))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response body", goerr.V("path", path))
	}

	var env envelope
	if len(body) > 0 {
		// Error bodies may not be JSON; tolerate decode failures for
		// non-200 statuses
		if err := json.Unmarshal(body, &env); err != nil && resp.StatusCode == http.StatusOK {
			return nil, goerr.Wrap(err, "failed to decode response", goerr.V("path", path))
		}
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return &env, nil

	case http.StatusPreconditionFailed:
		return nil, &CursorExpiredError{FreshCursor: env.Sync}

	case http.StatusTooManyRequests:
		return nil, goerr.New("rate limited (429)", goerr.T(TagRateLimit),
			goerr.V("path", path))

	case http.StatusNotFound:
		return nil, goerr.New("resource not found", goerr.T(TagNotFound),
			goerr.V("path", path), goerr.V("message", env.errorMessage()))

	default:
		return nil, goerr.New("API request failed",
			goerr.V("path", path),
			goerr.V("status", resp.StatusCode),
			goerr.V("message", env.errorMessage()))
	}
}

// getObject fetches a single resource into out
func (c *client) getObject(ctx context.Context, path string, query url.Values, out any) error {
	env, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return goerr.Wrap(err, "failed to decode resource", goerr.V("path", path))
	}
	return nil
}

// getAll walks a paginated collection, decoding every page into []T
func getAll[T any](ctx context.Context, c *client, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("limit", strconv.Itoa(c.pageSize))

	var items []T
	for {
		env, err := c.get(ctx, path, query)
		if err != nil {
			return nil, err
		}

		var page []T
		if err := json.Unmarshal(env.Data, &page); err != nil {
			return nil, goerr.Wrap(err, "failed to decode collection page", goerr.V("path", path))
		}
		items = append(items, page...)

		if env.NextPage == nil || env.NextPage.Offset == "" {
			return items, nil
		}
		query.Set("offset", env.NextPage.Offset)
	}
}

func (c *client) GetCurrentUser(ctx context.Context) (*model.User, []Workspace, error) {
	var data userData
	query := url.Values{"opt_fields": {"gid,name,email,photo.image_128x128,workspaces,workspaces.name"}}
	if err := c.getObject(ctx, "/users/me", query, &data); err != nil {
		return nil, nil, err
	}

	workspaces := make([]Workspace, len(data.Workspaces))
	for i, ws := range data.Workspaces {
		workspaces[i] = Workspace{GID: types.GID(ws.GID), Name: ws.Name}
	}
	return data.toModel(time.Now()), workspaces, nil
}

func (c *client) GetProject(ctx context.Context, gid types.GID) (*model.Project, error) {
	var data projectData
	query := url.Values{"opt_fields": {projectOptFields}}
	if err := c.getObject(ctx, "/projects/"+gid.String(), query, &data); err != nil {
		return nil, err
	}
	return data.toModel()
}

func (c *client) GetPortfolio(ctx context.Context, gid types.GID) (*model.Portfolio, error) {
	var data portfolioData
	query := url.Values{"opt_fields": {"gid,name,color,owner,owner.name,created_at"}}
	if err := c.getObject(ctx, "/portfolios/"+gid.String(), query, &data); err != nil {
		return nil, err
	}
	return data.toModel()
}

func (c *client) GetTeam(ctx context.Context, gid types.GID) (*model.Team, error) {
	var data teamData
	query := url.Values{"opt_fields": {"gid,name,description,organization"}}
	if err := c.getObject(ctx, "/teams/"+gid.String(), query, &data); err != nil {
		return nil, err
	}
	return data.toModel(), nil
}

func (c *client) GetUser(ctx context.Context, gid types.GID) (*model.User, error) {
	var data userData
	query := url.Values{"opt_fields": {"gid,name,email,photo.image_128x128"}}
	if err := c.getObject(ctx, "/users/"+gid.String(), query, &data); err != nil {
		return nil, err
	}
	return data.toModel(time.Now()), nil
}

func (c *client) GetTask(ctx context.Context, gid types.GID) (*model.Task, error) {
	var data taskData
	query := url.Values{"opt_fields": {taskOptFields}}
	if err := c.getObject(ctx, "/tasks/"+gid.String(), query, &data); err != nil {
		return nil, err
	}
	return data.toModel()
}

func (c *client) ListProjectTasks(ctx context.Context, projectGID types.GID, completedSince time.Time) ([]*model.Task, error) {
	query := url.Values{
		"opt_fields":      {taskOptFields},
		"completed_since": {completedSince.UTC().Format("2006-01-02T15:04:05.000Z")},
	}
	pages, err := getAll[taskData](ctx, c, "/projects/"+projectGID.String()+"/tasks", query)
	if err != nil {
		return nil, err
	}
	return tasksToModel(pages)
}

func (c *client) SearchTasks(ctx context.Context, workspaceGID types.GID, q TaskSearchQuery) ([]*model.Task, error) {
	query := url.Values{"opt_fields": {taskOptFields}}
	if q.ModifiedSince != nil {
		query.Set("modified_at.after", q.ModifiedSince.UTC().Format(time.RFC3339))
	}
	if q.AssigneeGID != "" {
		query.Set("assignee.any", q.AssigneeGID.String())
	}
	if q.ProjectGID != "" {
		query.Set("projects.any", q.ProjectGID.String())
	}
	if q.CompletedOn != nil {
		query.Set("completed_on.after", q.CompletedOn.Start.Format("2006-01-02"))
		query.Set("completed_on.before", q.CompletedOn.End.Format("2006-01-02"))
	}

	pages, err := getAll[taskData](ctx, c, "/workspaces/"+workspaceGID.String()+"/tasks/search", query)
	if err != nil {
		return nil, err
	}
	return tasksToModel(pages)
}

func tasksToModel(pages []taskData) ([]*model.Task, error) {
	tasks := make([]*model.Task, 0, len(pages))
	for i := range pages {
		task, err := pages[i].toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (c *client) ListComments(ctx context.Context, taskGID types.GID) ([]*model.Comment, error) {
	query := url.Values{"opt_fields": {"gid,resource_subtype,text,created_at,created_by,created_by.name"}}
	stories, err := getAll[storyData](ctx, c, "/tasks/"+taskGID.String()+"/stories", query)
	if err != nil {
		return nil, err
	}

	var comments []*model.Comment
	for i := range stories {
		if stories[i].ResourceSubtype != "comment_added" {
			continue
		}
		comment, err := stories[i].toComment(taskGID)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

func (c *client) ListSections(ctx context.Context, projectGID types.GID) ([]*model.Section, error) {
	query := url.Values{"opt_fields": {"gid,name"}}
	data, err := getAll[sectionData](ctx, c, "/projects/"+projectGID.String()+"/sections", query)
	if err != nil {
		return nil, err
	}

	sections := make([]*model.Section, len(data))
	for i, s := range data {
		sections[i] = &model.Section{
			GID:        types.GID(s.GID),
			ProjectGID: projectGID,
			Name:       s.Name,
			Position:   i,
		}
	}
	return sections, nil
}

func (c *client) ListTeamMembers(ctx context.Context, teamGID types.GID) ([]*model.UserRef, error) {
	query := url.Values{"opt_fields": {"gid,name,email"}}
	data, err := getAll[memberData](ctx, c, "/teams/"+teamGID.String()+"/users", query)
	if err != nil {
		return nil, err
	}

	members := make([]*model.UserRef, len(data))
	for i := range data {
		members[i] = data[i].toRef()
	}
	return members, nil
}

func (c *client) ListTeamProjects(ctx context.Context, teamGID types.GID) ([]model.ProjectRef, error) {
	query := url.Values{"opt_fields": {"gid,name,archived"}}
	data, err := getAll[projectRefData](ctx, c, "/teams/"+teamGID.String()+"/projects", query)
	if err != nil {
		return nil, err
	}

	refs := make([]model.ProjectRef, len(data))
	for i, p := range data {
		refs[i] = model.ProjectRef{GID: types.GID(p.GID), Name: p.Name, Archived: p.Archived}
	}
	return refs, nil
}

func (c *client) ListPortfolioItems(ctx context.Context, portfolioGID types.GID) ([]model.PortfolioItem, error) {
	query := url.Values{"opt_fields": {"gid,name,resource_type"}}
	data, err := getAll[refData](ctx, c, "/portfolios/"+portfolioGID.String()+"/items", query)
	if err != nil {
		return nil, err
	}

	items := make([]model.PortfolioItem, len(data))
	for i, item := range data {
		items[i] = model.PortfolioItem{
			GID:          types.GID(item.GID),
			Name:         item.Name,
			ResourceType: item.ResourceType,
		}
	}
	return items, nil
}

func (c *client) ListStatusUpdates(ctx context.Context, parentGID types.GID) ([]*model.StatusUpdate, error) {
	query := url.Values{
		"parent":     {parentGID.String()},
		"opt_fields": {"gid,title,text,status_type,parent,created_by,created_by.name,created_at"},
	}
	data, err := getAll[statusUpdateData](ctx, c, "/status_updates", query)
	if err != nil {
		return nil, err
	}

	updates := make([]*model.StatusUpdate, 0, len(data))
	for i := range data {
		update, err := data[i].toModel(parentGID)
		if err != nil {
			return nil, err
		}
		updates = append(updates, update)
	}
	return updates, nil
}

// EstablishCursor mints a cursor by calling the events endpoint without a
// sync token: the server responds 412 with a fresh token for subsequent reads
func (c *client) EstablishCursor(ctx context.Context, resourceGID types.GID) (string, error) {
	query := url.Values{"resource": {resourceGID.String()}}
	env, err := c.get(ctx, "/events", query)
	if err != nil {
		if expired, ok := AsCursorExpired(err); ok {
			if expired.FreshCursor == "" {
				return "", goerr.New("server did not issue a fresh cursor",
					goerr.V("resource", resourceGID))
			}
			return expired.FreshCursor, nil
		}
		return "", err
	}
	// Some deployments answer the first read with 200 and a sync token
	if env.Sync == "" {
		return "", goerr.New("events endpoint returned no sync token",
			goerr.V("resource", resourceGID))
	}
	return env.Sync, nil
}

func (c *client) GetEvents(ctx context.Context, resourceGID types.GID, cursor string) (*model.EventBatch, error) {
	query := url.Values{
		"resource": {resourceGID.String()},
		"sync":     {cursor},
	}
	env, err := c.get(ctx, "/events", query)
	if err != nil {
		return nil, err
	}

	var data []eventData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, goerr.Wrap(err, "failed to decode events", goerr.V("resource", resourceGID))
		}
	}

	batch := &model.EventBatch{NewCursor: env.Sync}
	for i := range data {
		batch.Events = append(batch.Events, data[i].toModel())
	}
	return batch, nil
}
