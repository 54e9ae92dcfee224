package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/repository"
)

var _ repository.KVRepository = (*KVDB)(nil)

// KVDB is the kv table. It also satisfies flux.Persister, which is how the
// client state snapshot survives restarts.
type KVDB struct {
	conn *sql.DB
}

func (k *KVDB) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := k.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("key", key)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading %s: %w", key, err)
	}
	return value, nil
}

// Save inserts or replaces the value stored under key.
func (k *KVDB) Save(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := k.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (k *KVDB) Delete(ctx context.Context, key string) error {
	if _, err := k.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: deleting %s: %w", key, err)
	}
	return nil
}
