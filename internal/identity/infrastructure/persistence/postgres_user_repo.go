package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/tempo/internal/identity/domain"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/crypto"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/database"
)

const postgresUserColumns = `id, email, password_hash, access_token, refresh_token, created_at, updated_at`

// PostgresUserRepository stores users in PostgreSQL.
type PostgresUserRepository struct {
	conn   database.Connection
	tokens tokenCodec
}

// NewPostgresUserRepository creates a repository. sealer may be nil to
// store tokens unencrypted.
func NewPostgresUserRepository(conn database.Connection, sealer crypto.Sealer) *PostgresUserRepository {
	return &PostgresUserRepository{conn: conn, tokens: newTokenCodec(sealer)}
}

func (r *PostgresUserRepository) Save(ctx context.Context, user *domain.User) error {
	access, refresh, err := r.tokens.seal(user.AccessToken(), user.RefreshToken())
	if err != nil {
		return err
	}

	_, err = database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO users (`+postgresUserColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			updated_at = EXCLUDED.updated_at`,
		user.ID(), user.Email().String(), user.PasswordHash(), access, refresh,
		user.CreatedAt(), user.UpdatedAt(),
	)
	if database.IsUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT `+postgresUserColumns+` FROM users WHERE id = $1`, id)
	return r.scan(row)
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT `+postgresUserColumns+` FROM users WHERE email = $1`, email.String())
	return r.scan(row)
}

func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email domain.Email) (bool, error) {
	var exists bool
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email.String()).Scan(&exists)
	return exists, err
}

func (r *PostgresUserRepository) scan(row database.Row) (*domain.User, error) {
	var (
		id                   uuid.UUID
		email, hash          string
		access, refresh      string
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &email, &hash, &access, &refresh, &createdAt, &updatedAt); err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return rehydrateUser(r.tokens, id, email, hash, access, refresh, createdAt, updatedAt)
}

func rehydrateUser(tokens tokenCodec, id uuid.UUID, rawEmail, hash, access, refresh string, createdAt, updatedAt time.Time) (*domain.User, error) {
	email, err := domain.NewEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	access, refresh, err = tokens.open(access, refresh)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateUser(id, email, hash, access, refresh, createdAt, updatedAt), nil
}
