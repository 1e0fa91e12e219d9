// Package sql provides SQL statement building primitives and a driver over
// database/sql.
//
// This package is the foundation for generating and executing SQL across
// different database systems (PostgreSQL, MySQL, SQLite). It provides a
// fluent API for constructing parameterized statements whose identifiers
// and operators are validated before any text is emitted.
//
// # Builder Types
//
// The package provides specialized builders for different SQL operations:
//
//   - Builder: Low-level SQL string builder with identifier validation
//   - Selector: SELECT statement builder with predicates, ordering, and LIMIT
//   - InsertBuilder: INSERT statement builder with multi-row VALUES
//   - UpdateBuilder: UPDATE statement builder with SET and WHERE clauses
//   - DeleteBuilder: DELETE statement builder with WHERE predicates
//   - CreateTableBuilder: CREATE TABLE builder with per-dialect column types
//
// # Dialect Support
//
// SQL generation adapts to different database dialects. Placeholders render
// as $1, $2, ... on PostgreSQL and ? elsewhere:
//
//	import "github.com/syssam/stratum/dialect"
//
//	// PostgreSQL
//	b := sql.Dialect(dialect.Postgres)
//	b.Select("id", "name").From("users").Where("status", "=", "active")
//
//	// MySQL
//	b := sql.Dialect(dialect.MySQL)
//
// # Predicates
//
// Predicates take a column, an operator from the allow-list, and a bound
// value:
//
//	sel.Where("name", "=", "john")
//	sel.And("age", ">", 18)
//	sel.Or("status", "IN", []any{"active", "pending"})
//	sel.Where("deleted_at", "IS", nil) // deleted_at IS NULL
//
// A column or operator that fails validation poisons the builder; Query
// returns the error and no SQL.
//
// # Results
//
// Every builder terminates in Query, which returns the statement text and
// its argument list:
//
//	query, args, err := sel.Query()
//
// # Driver
//
// Open wraps a database/sql pool as a dialect.Driver:
//
//	drv, err := sql.Open(dialect.SQLite, "file.db")
//
// StatsDriver layers query and transaction counters on any driver, and
// DebugDriver logs each statement through slog.
package sql
