package app

import (
	"fmt"

	identityDomain "github.com/felixgeelhaar/tempo/internal/identity/domain"
	identityPersistence "github.com/felixgeelhaar/tempo/internal/identity/infrastructure/persistence"
	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
	productivityPersistence "github.com/felixgeelhaar/tempo/internal/productivity/infrastructure/persistence"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/crypto"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/database"
)

// RepositoryFactory creates repositories based on the database driver.
type RepositoryFactory struct {
	conn   database.Connection
	driver database.Driver
	sealer crypto.Sealer
}

// NewRepositoryFactory creates a new repository factory. A nil sealer stores
// calendar tokens in plaintext.
func NewRepositoryFactory(conn database.Connection, sealer crypto.Sealer) *RepositoryFactory {
	if sealer == nil {
		sealer = crypto.Plaintext{}
	}
	return &RepositoryFactory{
		conn:   conn,
		driver: conn.Driver(),
		sealer: sealer,
	}
}

// TaskRepository creates a task repository for the configured driver.
func (f *RepositoryFactory) TaskRepository() (task.Repository, error) {
	switch f.driver {
	case database.DriverPostgres:
		return productivityPersistence.NewPostgresTaskRepository(f.conn), nil
	case database.DriverSQLite:
		return productivityPersistence.NewSQLiteTaskRepository(f.conn), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// UserRepository creates a user repository for the configured driver.
func (f *RepositoryFactory) UserRepository() (identityDomain.UserRepository, error) {
	switch f.driver {
	case database.DriverPostgres:
		return identityPersistence.NewPostgresUserRepository(f.conn, f.sealer), nil
	case database.DriverSQLite:
		return identityPersistence.NewSQLiteUserRepository(f.conn, f.sealer), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}
