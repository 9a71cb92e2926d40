package metadata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/erpadmin/internal/dbx"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository binds the repository to db, which may be a *sql.DB or
// a *sql.Tx obtained from dbx.WithTx. Batch writes are only atomic on a Tx.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	query := `SELECT key, value FROM metadata WHERE key IN (` + placeholders(len(keys)) + `)`
	rows, err := r.db.QueryContext(ctx, query, anySlice(keys)...)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		result[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metadata rows: %w", err)
	}
	return result, nil
}

// SetMany upserts every pair and stamps them with the same update time.
func (r *SQLiteRepository) SetMany(ctx context.Context, values map[string]string) error {
	stamp := r.now().UnixMilli()
	for k, v := range values {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, k, v, stamp)
		if err != nil {
			return fmt.Errorf("failed to set metadata[%s]: %w", k, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query := `DELETE FROM metadata WHERE key IN (` + placeholders(len(keys)) + `)`
	if _, err := r.db.ExecContext(ctx, query, anySlice(keys)...); err != nil {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func anySlice(keys []string) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}
