package dialect

import "context"

// Supported dialects. Each constant doubles as the database/sql driver
// name the backend is registered under.
const (
	// MySQL is the MySQL/MariaDB dialect.
	MySQL = "mysql"
	// Postgres is the PostgreSQL dialect.
	Postgres = "postgres"
	// SQLite is the SQLite dialect.
	SQLite = "sqlite"
)

// ExecQuerier wraps the Exec and Query operations shared by drivers and
// transactions.
type ExecQuerier interface {
	// Exec executes a statement that does not return rows. The v argument
	// is either nil or a *sql.Result to populate.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows. The v argument must be a
	// *sql.Rows to populate.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all database operations.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The transaction must be committed or rolled back exactly once.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx is the interface for a database transaction.
// A Tx is terminal after Commit or Rollback and must not be reused.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}
