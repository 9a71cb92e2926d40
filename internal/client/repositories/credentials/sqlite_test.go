package credentials

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/erpadmin/internal/client/models"
	"github.com/dmitrijs2005/erpadmin/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/erpadmin/internal/common"
)

func openMem(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleCredential() models.Credential {
	return models.Credential{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.UnixMilli(1_900_000_000_123),
	}
}

func TestSQLiteStore_EmptyLoadsNil(t *testing.T) {
	s := openMem(t)

	c, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestSQLiteStore_SaveLoadClear(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	want := sampleCredential()

	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, want.AccessToken, got.AccessToken)
	require.Equal(t, want.RefreshToken, got.RefreshToken)
	require.True(t, want.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSQLiteStore_SaveOverwrites(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleCredential()))
	next := models.Credential{AccessToken: "a2", RefreshToken: "r2", ExpiresAt: time.UnixMilli(42)}
	require.NoError(t, s.Save(ctx, next))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "a2", got.AccessToken)
	require.Equal(t, "r2", got.RefreshToken)
	require.Equal(t, int64(42), got.ExpiresAt.UnixMilli())
}

func TestSQLiteStore_StoresEpochMillisString(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleCredential()))

	v, err := metadata.NewSQLiteRepository(s.db).GetMany(ctx, common.TokenExpiresAtKey)
	require.NoError(t, err)
	require.Equal(t, "1900000000123", v[common.TokenExpiresAtKey])
}

func TestSQLiteStore_PartialWriteLoadsNil(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	repo := metadata.NewSQLiteRepository(s.db)

	require.NoError(t, repo.SetMany(ctx, map[string]string{
		common.AccessTokenKey:  "a",
		common.RefreshTokenKey: "r",
	}))

	c, err := s.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestSQLiteStore_BadExpiryLoadsNil(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleCredential()))

	repo := metadata.NewSQLiteRepository(s.db)
	require.NoError(t, repo.SetMany(ctx, map[string]string{common.TokenExpiresAtKey: "tomorrow"}))

	c, err := s.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestSQLiteStore_ClearKeepsOtherKeys(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	repo := metadata.NewSQLiteRepository(s.db)

	require.NoError(t, repo.SetMany(ctx, map[string]string{"theme": "dark"}))
	require.NoError(t, s.Save(ctx, sampleCredential()))
	require.NoError(t, s.Clear(ctx))

	v, err := repo.GetMany(ctx, "theme", common.AccessTokenKey)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"theme": "dark"}, v)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleCredential()))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "access", got.AccessToken)
}

func TestSQLiteStore_ErrorsWrapped(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	require.NoError(t, s.Close())

	_, err := s.Load(ctx)
	require.ErrorContains(t, err, "load credential")

	err = s.Save(ctx, sampleCredential())
	require.ErrorContains(t, err, "save credential")

	err = s.Clear(ctx)
	require.ErrorContains(t, err, "clear credential")
}
