package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/erpadmin/internal/common"
	"github.com/dmitrijs2005/erpadmin/internal/dbx"
	"github.com/dmitrijs2005/erpadmin/internal/server/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts user, assigning a fresh ID and creation time when unset.
func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query :=
		`INSERT INTO users (id, username, full_name, email, password_hash, roles, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
		 `

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.UserName, user.FullName, user.Email, user.PasswordHash,
		joinRoles(user.Roles), user.CreatedAt.UnixMilli())

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *SQLiteRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	query :=
		`SELECT id, username, full_name, email, password_hash, roles, created_at FROM users
		 WHERE username = ?
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, userName))
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, username, full_name, email, password_hash, roles, created_at FROM users
		 WHERE id = ?
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = ?
		 WHERE id = ?
		 `

	res, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) scanOne(row *sql.Row) (*models.User, error) {
	var (
		user      models.User
		roles     string
		createdAt int64
	)

	err := row.Scan(&user.ID, &user.UserName, &user.FullName, &user.Email, &user.PasswordHash, &roles, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Roles = splitRoles(roles)
	user.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &user, nil
}

func joinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

func splitRoles(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
