package sql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/stratum/dialect"
)

func TestOpenDB(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
	}{
		{"Postgres", dialect.Postgres},
		{"MySQL", dialect.MySQL},
		{"SQLite", dialect.SQLite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.dialect, db)
			assert.NotNil(t, drv)
			assert.Equal(t, tt.dialect, drv.Dialect())
		})
	}
}

// An instrumented driver registers under a prefixed name; Dialect must
// still report the base dialect.
func TestDialectPrefix(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB("postgres-traced", db)
	assert.Equal(t, dialect.Postgres, drv.Dialect())
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("Rows", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name FROM players").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(1, "alice").
				AddRow(2, "bob"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT id, name FROM players", []any{}, rows)
		require.NoError(t, err)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Args", func(t *testing.T) {
		mock.ExpectQuery(`SELECT name FROM players WHERE id = \$1`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("alice"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT name FROM players WHERE id = $1", []any{1}, rows)
		require.NoError(t, err)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT", []any{}, rows)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BadDest", func(t *testing.T) {
		err := drv.Query(context.Background(), "SELECT 1", []any{}, &struct{}{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid type")
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("NilDest", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO players").
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := drv.Exec(context.Background(), "INSERT INTO players (name) VALUES ('x')", []any{}, nil)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Result", func(t *testing.T) {
		mock.ExpectExec(`UPDATE players SET name = \$1 WHERE id = \$2`).
			WithArgs("alice", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		var res Result
		err := drv.Exec(context.Background(), "UPDATE players SET name = $1 WHERE id = $2", []any{"alice", 1}, &res)
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectExec("DELETE").WillReturnError(errors.New("constraint violation"))

		err := drv.Exec(context.Background(), "DELETE FROM players", []any{}, nil)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDriverTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("Commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO players").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Exec(context.Background(), "INSERT INTO players (name) VALUES ('x')", []any{}, nil))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO players").WillReturnError(errors.New("duplicate key"))
		mock.ExpectRollback()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.Error(t, tx.Exec(context.Background(), "INSERT INTO players (name) VALUES ('x')", []any{}, nil))
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("QueryInTransaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		rows := &Rows{}
		require.NoError(t, tx.Query(context.Background(), "SELECT id FROM players", []any{}, rows))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContextCancellation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock.ExpectQuery("SELECT").WillReturnError(context.Canceled)
	rows := &Rows{}
	err = drv.Query(ctx, "SELECT 1", []any{}, rows)
	assert.Error(t, err)
}

func TestEscapeStringValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no_escaping_needed", "hello", "hello"},
		{"single_quote", "it's", "it''s"},
		{"multiple_quotes", "he said 'hello'", "he said ''hello''"},
		{"backslash", `path\to\file`, `path\\to\\file`},
		{"both_quote_and_backslash", `it's a \test`, `it''s a \\test`},
		{"empty_string", "", ""},
		{"injection_attempt", "'; DROP TABLE players; --", "''; DROP TABLE players; --"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeStringValue(tt.input))
		})
	}
}
