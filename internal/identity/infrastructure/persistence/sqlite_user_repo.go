package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/tempo/internal/identity/domain"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/crypto"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/database"
)

const sqliteUserColumns = `id, email, password_hash, access_token, refresh_token, created_at, updated_at`

// SQLiteUserRepository stores users in SQLite. Timestamps are RFC 3339 text.
type SQLiteUserRepository struct {
	conn   database.Connection
	tokens tokenCodec
}

// NewSQLiteUserRepository creates a repository. sealer may be nil to store
// tokens unencrypted.
func NewSQLiteUserRepository(conn database.Connection, sealer crypto.Sealer) *SQLiteUserRepository {
	return &SQLiteUserRepository{conn: conn, tokens: newTokenCodec(sealer)}
}

func (r *SQLiteUserRepository) Save(ctx context.Context, user *domain.User) error {
	access, refresh, err := r.tokens.seal(user.AccessToken(), user.RefreshToken())
	if err != nil {
		return err
	}

	_, err = database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO users (`+sqliteUserColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			password_hash = excluded.password_hash,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at`,
		user.ID().String(), user.Email().String(), user.PasswordHash(), access, refresh,
		formatTime(user.CreatedAt()), formatTime(user.UpdatedAt()),
	)
	if database.IsUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *SQLiteUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id.String())
	return r.scan(row)
}

func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT `+sqliteUserColumns+` FROM users WHERE email = ?`, email.String())
	return r.scan(row)
}

func (r *SQLiteUserRepository) ExistsByEmail(ctx context.Context, email domain.Email) (bool, error) {
	var n int
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT COUNT(1) FROM users WHERE email = ?`, email.String()).Scan(&n)
	return n > 0, err
}

func (r *SQLiteUserRepository) scan(row database.Row) (*domain.User, error) {
	var id, email, hash, access, refresh, createdAt, updatedAt string
	if err := row.Scan(&id, &email, &hash, &access, &refresh, &createdAt, &updatedAt); err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("user id %q: %w", id, err)
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return rehydrateUser(r.tokens, uid, email, hash, access, refresh, created, updated)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
