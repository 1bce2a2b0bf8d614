package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/interfaces"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Client is a SQLite-backed Repository. The database doubles as the local
// query surface: any SQL tool can read the mirror tables directly.
type Client struct {
	db        *sql.DB
	entity    *entityRepository
	mirror    *mirrorRepository
	syncState *syncStateRepository
	config    *configRepository
}

var _ interfaces.Repository = &Client{}

// New opens (or creates) the mirror database at path. WAL mode keeps
// concurrent readers unblocked while a sync is writing.
func New(path string) (*Client, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("dir", dir))
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", path))
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping database", goerr.V("path", path))
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, goerr.Wrap(err, "failed to apply pragma", goerr.V("pragma", pragma))
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Client{
		db:        db,
		entity:    &entityRepository{db: db},
		mirror:    &mirrorRepository{db: db},
		syncState: &syncStateRepository{db: db},
		config:    &configRepository{db: db},
	}, nil
}

// NewMemory opens an in-memory database, used by tests
func NewMemory() (*Client, error) {
	return New(":memory:")
}

func (c *Client) Entity() interfaces.EntityRepository {
	return c.entity
}

func (c *Client) Mirror() interfaces.MirrorRepository {
	return c.mirror
}

func (c *Client) SyncState() interfaces.SyncStateRepository {
	return c.syncState
}

func (c *Client) Config() interfaces.ConfigRepository {
	return c.config
}

// Close checkpoints the WAL and releases the connection
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	_, _ = c.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err := c.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database")
	}
	c.db = nil
	return nil
}

// DB exposes the underlying connection for ad-hoc queries
func (c *Client) DB() *sql.DB {
	return c.db
}

// nullTime converts an optional timestamp for storage
func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// parseNullTime converts a stored timestamp back, returning nil for NULL
func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse stored timestamp", goerr.V("value", s.String))
	}
	return &t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "failed to parse stored timestamp", goerr.V("value", s))
	}
	return t, nil
}
