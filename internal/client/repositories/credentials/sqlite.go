package credentials

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/erpadmin/internal/client/migrations"
	"github.com/dmitrijs2005/erpadmin/internal/client/models"
	"github.com/dmitrijs2005/erpadmin/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/erpadmin/internal/dbx"
	"github.com/dmitrijs2005/erpadmin/internal/filex"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the credential in the local metadata table.
type SQLiteStore struct {
	db *sql.DB
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// OpenSQLite opens (creating if needed) the database file at path, migrates
// it and returns a store backed by it. The store owns the connection.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		abs, err := filex.EnsureParentDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare store directory: %w", err)
		}
		dsn = abs
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	// one writer; also keeps ":memory:" on a single database
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Load(ctx context.Context) (*models.Credential, error) {
	values, err := metadata.NewSQLiteRepository(s.db).GetMany(ctx, storeKeys...)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}

	c, ok := decode(values)
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *SQLiteStore) Save(ctx context.Context, c models.Credential) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).SetMany(ctx, encode(c))
	})
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).DeleteMany(ctx, storeKeys...)
	})
	if err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
