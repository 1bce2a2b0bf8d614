package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

type configRepository struct {
	db *sql.DB
}

func (r *configRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM app_config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", goerr.Wrap(err, "failed to load config", goerr.V("key", key))
	}
	return value, nil
}

func (r *configRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return goerr.Wrap(err, "failed to store config", goerr.V("key", key))
	}
	return nil
}

func (r *configRepository) List(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM app_config ORDER BY key")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list config")
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, goerr.Wrap(err, "failed to scan config row")
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate config rows")
	}
	return values, nil
}
