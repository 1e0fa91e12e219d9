// Package dialect provides database dialect abstraction for the Stratum ORM.
//
// This package defines the interfaces and types used for database-specific
// operations, allowing Stratum to support multiple database backends
// including PostgreSQL, MySQL, and SQLite, together with the validation
// gate every caller-supplied identifier, operator, and sort direction must
// pass before it is placed into SQL text.
//
// # Supported Dialects
//
// The following dialects are supported:
//
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL/MariaDB database
//   - SQLite: SQLite database
//
// # Dialect Constants
//
// Each dialect is identified by a constant string that doubles as the
// database/sql driver name:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Driver Interface
//
// The package defines the Driver interface for database operations:
//
//	type Driver interface {
//	    ExecQuerier
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction Interface
//
// The Tx interface scopes statements to one transaction:
//
//	type Tx interface {
//	    ExecQuerier
//	    Commit() error
//	    Rollback() error
//	}
//
// # ExecQuerier Interface
//
// The ExecQuerier interface is implemented by both Driver and Tx:
//
//	type ExecQuerier interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	}
//
// # Sanitization
//
// Identifiers and operators that originate from callers are validated
// before query construction:
//
//	if err := dialect.ValidateIdentifier(col); err != nil {
//	    return err // column name rejected, no SQL was built
//	}
//	op, err := dialect.NormalizeOperator("not   like") // "NOT LIKE", nil
//
// # Usage
//
// Opening a database connection:
//
//	import (
//	    "github.com/syssam/stratum/dialect"
//	    "github.com/syssam/stratum/dialect/sql"
//	)
//
//	db, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
// Using with a Stratum client:
//
//	client := stratum.NewClient(db)
//
// # Sub-packages
//
// The dialect package contains one sub-package:
//
//   - dialect/sql: SQL statement builders and the database/sql driver
package dialect
