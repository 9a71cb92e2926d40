package refreshtokens_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/erpadmin/internal/common"
	"github.com/dmitrijs2005/erpadmin/internal/server/models"
	"github.com/dmitrijs2005/erpadmin/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/erpadmin/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/erpadmin/internal/server/repositories/users"
)

// newRepo returns a repository over a migrated database holding one user.
func newRepo(t *testing.T) (*refreshtokens.SQLiteRepository, *sql.DB, string) {
	t.Helper()
	ctx := context.Background()
	db, err := repomanager.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repomanager.NewSQLiteRepositoryManager().RunMigrations(ctx, db))

	u, err := users.NewSQLiteRepository(db).Create(ctx, &models.User{UserName: "alice", PasswordHash: "h"})
	require.NoError(t, err)

	return refreshtokens.NewSQLiteRepository(db), db, u.ID
}

func TestCreateFind(t *testing.T) {
	repo, _, uid := newRepo(t)
	ctx := context.Background()

	before := time.Now()
	require.NoError(t, repo.Create(ctx, uid, "tok123", 30*time.Minute))

	got, err := repo.Find(ctx, "tok123")
	require.NoError(t, err)
	assert.Equal(t, uid, got.UserID)
	assert.Equal(t, "tok123", got.Token)
	assert.WithinDuration(t, before.Add(30*time.Minute), got.ExpiresAt, time.Second)
	assert.WithinDuration(t, before, got.CreatedAt, time.Second)
}

func TestCreate_UnknownUserRejected(t *testing.T) {
	repo, _, _ := newRepo(t)

	err := repo.Create(context.Background(), "ghost", "tok", time.Minute)
	require.Error(t, err)
}

func TestFind_NotFound(t *testing.T) {
	repo, _, _ := newRepo(t)

	_, err := repo.Find(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete(t *testing.T) {
	repo, _, uid := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, uid, "tok", time.Minute))
	require.NoError(t, repo.Delete(ctx, "tok"))
	require.ErrorIs(t, repo.Delete(ctx, "tok"), common.ErrorNotFound, "a token is deleted once")

	_, err := repo.Find(ctx, "tok")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestClosedDB(t *testing.T) {
	repo, db, uid := newRepo(t)
	require.NoError(t, db.Close())
	ctx := context.Background()

	require.Error(t, repo.Create(ctx, uid, "x", time.Minute))
	_, err := repo.Find(ctx, "x")
	require.Error(t, err)
	require.Error(t, repo.Delete(ctx, "x"))
}
