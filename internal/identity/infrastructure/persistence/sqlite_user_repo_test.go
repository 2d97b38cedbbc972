package persistence

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/tempo/internal/identity/domain"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/crypto"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/tempo/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/migrations"
)

func setupTestDB(t *testing.T) database.Connection {
	t.Helper()
	ctx := context.Background()
	conn, err := database.Open(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "tempo.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = migrations.Run(ctx, conn)
	require.NoError(t, err)
	return conn
}

func testSealer(t *testing.T) crypto.Sealer {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	s, err := crypto.NewAESGCMFromBase64Key(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	return s
}

func newTestUser(t *testing.T, address string) *domain.User {
	t.Helper()
	email, err := domain.NewEmail(address)
	require.NoError(t, err)
	return domain.NewUser(email, "$2a$10$hash")
}

func TestSQLiteUserRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteUserRepository(setupTestDB(t), nil)

	user := newTestUser(t, "ada@example.com")
	require.NoError(t, repo.Save(ctx, user))

	byID, err := repo.FindByID(ctx, user.ID())
	require.NoError(t, err)
	assert.Equal(t, user.ID(), byID.ID())
	assert.Equal(t, "ada@example.com", byID.Email().String())
	assert.Equal(t, "$2a$10$hash", byID.PasswordHash())
	assert.False(t, byID.HasAccessToken())
	assert.WithinDuration(t, user.CreatedAt(), byID.CreatedAt(), 0)

	byEmail, err := repo.FindByEmail(ctx, user.Email())
	require.NoError(t, err)
	assert.Equal(t, user.ID(), byEmail.ID())

	exists, err := repo.ExistsByEmail(ctx, user.Email())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSQLiteUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteUserRepository(setupTestDB(t), nil)

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	email, _ := domain.NewEmail("nobody@example.com")
	_, err = repo.FindByEmail(ctx, email)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	exists, err := repo.ExistsByEmail(ctx, email)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSQLiteUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteUserRepository(setupTestDB(t), nil)

	require.NoError(t, repo.Save(ctx, newTestUser(t, "ada@example.com")))
	err := repo.Save(ctx, newTestUser(t, "ADA@example.com"))
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestSQLiteUserRepository_TokensEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	conn := setupTestDB(t)
	repo := NewSQLiteUserRepository(conn, testSealer(t))

	user := newTestUser(t, "ada@example.com")
	user.StoreCalendarTokens("ya29.access", "1//refresh")
	require.NoError(t, repo.Save(ctx, user))

	var rawAccess, rawRefresh string
	require.NoError(t, conn.QueryRow(ctx,
		`SELECT access_token, refresh_token FROM users WHERE id = ?`, user.ID().String(),
	).Scan(&rawAccess, &rawRefresh))
	assert.NotContains(t, rawAccess, "ya29")
	assert.NotContains(t, rawRefresh, "refresh")

	found, err := repo.FindByID(ctx, user.ID())
	require.NoError(t, err)
	assert.Equal(t, "ya29.access", found.AccessToken())
	assert.Equal(t, "1//refresh", found.RefreshToken())
}

func TestSQLiteUserRepository_UpdateTokens(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteUserRepository(setupTestDB(t), nil)

	user := newTestUser(t, "ada@example.com")
	require.NoError(t, repo.Save(ctx, user))

	user.StoreCalendarTokens("a1", "r1")
	require.NoError(t, repo.Save(ctx, user))
	user.RotateAccessToken("a2")
	require.NoError(t, repo.Save(ctx, user))

	found, err := repo.FindByID(ctx, user.ID())
	require.NoError(t, err)
	assert.Equal(t, "a2", found.AccessToken())
	assert.Equal(t, "r1", found.RefreshToken())
	assert.True(t, found.CalendarConnected())
}
