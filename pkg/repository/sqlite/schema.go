package sqlite

import (
	"database/sql"

	"github.com/m-mizutani/goerr/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS monitored_entities (
	entity_key   TEXT PRIMARY KEY,
	entity_type  TEXT NOT NULL,
	entity_gid   TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	added_at     TEXT,
	sync_enabled INTEGER NOT NULL DEFAULT 1,
	seq          INTEGER
);

CREATE TABLE IF NOT EXISTS sync_state (
	entity_key   TEXT PRIMARY KEY,
	event_cursor TEXT NOT NULL DEFAULT '',
	last_sync_at TEXT
);

CREATE TABLE IF NOT EXISTS sync_jobs (
	id           TEXT PRIMARY KEY,
	entity_key   TEXT NOT NULL,
	status       TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	completed_at TEXT,
	synced_count INTEGER NOT NULL DEFAULT 0,
	failed_count INTEGER NOT NULL DEFAULT 0,
	range_start  TEXT,
	range_end    TEXT,
	error        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sync_jobs_entity ON sync_jobs(entity_key, started_at);

CREATE TABLE IF NOT EXISTS synced_ranges (
	entity_key TEXT NOT NULL,
	start_day  TEXT NOT NULL,
	end_day    TEXT NOT NULL,
	synced_at  TEXT NOT NULL,
	PRIMARY KEY (entity_key, start_day, end_day)
);

CREATE TABLE IF NOT EXISTS users (
	gid        TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	photo_url  TEXT NOT NULL DEFAULT '',
	updated_at TEXT
);

CREATE TABLE IF NOT EXISTS projects (
	gid           TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	notes         TEXT NOT NULL DEFAULT '',
	color         TEXT NOT NULL DEFAULT '',
	archived      INTEGER NOT NULL DEFAULT 0,
	owner_gid     TEXT REFERENCES users(gid),
	team_gid      TEXT NOT NULL DEFAULT '',
	team_name     TEXT NOT NULL DEFAULT '',
	workspace_gid TEXT NOT NULL DEFAULT '',
	due_on        TEXT,
	start_on      TEXT,
	created_at    TEXT,
	modified_at   TEXT,
	permalink_url TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS tasks (
	gid           TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	notes         TEXT NOT NULL DEFAULT '',
	completed     INTEGER NOT NULL DEFAULT 0,
	completed_at  TEXT,
	assignee_gid  TEXT REFERENCES users(gid),
	due_on        TEXT,
	start_on      TEXT,
	created_at    TEXT,
	modified_at   TEXT,
	parent_gid    TEXT NOT NULL DEFAULT '',
	num_subtasks  INTEGER NOT NULL DEFAULT 0,
	tags          TEXT NOT NULL DEFAULT '[]',
	permalink_url TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_gid);
CREATE INDEX IF NOT EXISTS idx_tasks_modified ON tasks(modified_at);

CREATE TABLE IF NOT EXISTS task_memberships (
	task_gid     TEXT NOT NULL REFERENCES tasks(gid) ON DELETE CASCADE,
	project_gid  TEXT NOT NULL,
	project_name TEXT NOT NULL DEFAULT '',
	section_gid  TEXT NOT NULL DEFAULT '',
	section_name TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (task_gid, project_gid)
);
CREATE INDEX IF NOT EXISTS idx_memberships_project ON task_memberships(project_gid);

CREATE TABLE IF NOT EXISTS comments (
	gid         TEXT PRIMARY KEY,
	task_gid    TEXT NOT NULL REFERENCES tasks(gid) ON DELETE CASCADE,
	author_gid  TEXT NOT NULL DEFAULT '',
	author_name TEXT NOT NULL DEFAULT '',
	text        TEXT NOT NULL DEFAULT '',
	created_at  TEXT
);
CREATE INDEX IF NOT EXISTS idx_comments_task ON comments(task_gid);

CREATE TABLE IF NOT EXISTS sections (
	gid         TEXT PRIMARY KEY,
	project_gid TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS teams (
	gid           TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	workspace_gid TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS team_members (
	team_gid TEXT NOT NULL,
	user_gid TEXT NOT NULL,
	PRIMARY KEY (team_gid, user_gid)
);

CREATE TABLE IF NOT EXISTS portfolios (
	gid        TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	owner_gid  TEXT NOT NULL DEFAULT '',
	color      TEXT NOT NULL DEFAULT '',
	created_at TEXT
);

CREATE TABLE IF NOT EXISTS portfolio_projects (
	portfolio_gid TEXT NOT NULL,
	project_gid   TEXT NOT NULL,
	PRIMARY KEY (portfolio_gid, project_gid)
);

CREATE TABLE IF NOT EXISTS status_updates (
	gid         TEXT PRIMARY KEY,
	parent_gid  TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	text        TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL DEFAULT '',
	author_gid  TEXT NOT NULL DEFAULT '',
	author_name TEXT NOT NULL DEFAULT '',
	created_at  TEXT
);

CREATE TABLE IF NOT EXISTS app_config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
`

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return goerr.Wrap(err, "failed to initialize schema")
	}
	return nil
}
