// Package postgreswrapper abstracts over the supported database adapters so
// the Postgres integration tests can run against pgxpool, sql.DB and sqlx.DB
// from the same test code. The adapter is chosen with the ADAPTER_TYPE
// environment variable.
package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/pustaka/circulation/circulation/postgresengine"
	"github.com/pustaka/circulation/testutil/config"
)

// Engine type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// Wrapper interface to abstract over different adapter types
type Wrapper interface {
	GetStore() postgresengine.CirculationStore
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool  *pgxpool.Pool
	store postgresengine.CirculationStore
}

func (w *PGXPoolWrapper) GetStore() postgresengine.CirculationStore {
	return w.store
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db    *sql.DB
	store postgresengine.CirculationStore
}

func (w *SQLDBWrapper) GetStore() postgresengine.CirculationStore {
	return w.store
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db    *sqlx.DB
	store postgresengine.CirculationStore
}

func (w *SQLXWrapper) GetStore() postgresengine.CirculationStore {
	return w.store
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the appropriate wrapper based on the
// ADAPTER_TYPE environment variable, with the schema migrated.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	engineTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	var wrapper Wrapper

	switch engineTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolConfig())
		assert.NoError(t, err, "error connecting to DB pool in test setup")

		store, err := postgresengine.NewCirculationStoreFromPGXPool(connPool, options...)
		assert.NoError(t, err, "error creating circulation store")

		wrapper = &PGXPoolWrapper{pool: connPool, store: store}

	case typeSQLDB:
		db := config.PostgresSQLDBConfig()

		store, err := postgresengine.NewCirculationStoreFromSQLDB(db, options...)
		assert.NoError(t, err, "error creating circulation store")

		wrapper = &SQLDBWrapper{db: db, store: store}

	case typeSQLXDB:
		db := config.PostgresSQLXConfig()

		store, err := postgresengine.NewCirculationStoreFromSQLX(db, options...)
		assert.NoError(t, err, "error creating circulation store")

		wrapper = &SQLXWrapper{db: db, store: store}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", engineTypeFromEnv))
	}

	err := wrapper.GetStore().Migrate(context.Background())
	assert.NoError(t, err, "error migrating schema in test setup")

	return wrapper
}

// CleanUp truncates all circulation tables for the given wrapper.
func CleanUp(t testing.TB, wrapper Wrapper) {
	const truncate = "TRUNCATE TABLE books, members, loan_transactions, stock_movements"

	var err error

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		_, err = w.pool.Exec(context.Background(), truncate)

	case *SQLDBWrapper:
		_, err = w.db.Exec(truncate)

	case *SQLXWrapper:
		_, err = w.db.Exec(truncate)

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}

	assert.NoError(t, err, "error cleaning up the circulation tables")
}
