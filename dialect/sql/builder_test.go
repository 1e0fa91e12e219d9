package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/stratum/dialect"
)

func TestSelector(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		input     *Selector
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "All",
			input:     Dialect(dialect.MySQL).Select().From("players"),
			wantQuery: "SELECT * FROM players",
		},
		{
			name:      "Columns",
			input:     Dialect(dialect.MySQL).Select("id", "name").From("players"),
			wantQuery: "SELECT id, name FROM players",
		},
		{
			name: "Where",
			input: Dialect(dialect.MySQL).Select("id").From("players").
				Where("level", ">", 10),
			wantQuery: "SELECT id FROM players WHERE level > ?",
			wantArgs:  []any{10},
		},
		{
			name: "WherePostgres",
			input: Dialect(dialect.Postgres).Select("id").From("players").
				Where("level", ">", 10).
				And("name", "=", "alice"),
			wantQuery: "SELECT id FROM players WHERE level > $1 AND name = $2",
			wantArgs:  []any{10, "alice"},
		},
		{
			name: "Or",
			input: Dialect(dialect.SQLite).Select("id").From("players").
				Where("level", "<", 5).
				Or("level", ">", 50),
			wantQuery: "SELECT id FROM players WHERE level < ? OR level > ?",
			wantArgs:  []any{5, 50},
		},
		{
			name: "In",
			input: Dialect(dialect.MySQL).Select("id").From("players").
				Where("name", "IN", []any{"alice", "bob"}),
			wantQuery: "SELECT id FROM players WHERE name IN (?, ?)",
			wantArgs:  []any{"alice", "bob"},
		},
		{
			name: "InTypedSlice",
			input: Dialect(dialect.Postgres).Select("id").From("players").
				Where("level", "IN", []int{1, 2, 3}),
			wantQuery: "SELECT id FROM players WHERE level IN ($1, $2, $3)",
			wantArgs:  []any{1, 2, 3},
		},
		{
			name: "IsNull",
			input: Dialect(dialect.MySQL).Select("id").From("players").
				Where("deleted_at", "IS", nil),
			wantQuery: "SELECT id FROM players WHERE deleted_at IS NULL",
		},
		{
			name: "OperatorNormalized",
			input: Dialect(dialect.MySQL).Select("id").From("players").
				Where("name", "not   like", "a%"),
			wantQuery: "SELECT id FROM players WHERE name NOT LIKE ?",
			wantArgs:  []any{"a%"},
		},
		{
			name: "OrderLimit",
			input: Dialect(dialect.MySQL).Select("id").From("players").
				OrderBy("level", "desc").
				OrderBy("name", "ASC").
				Limit(10),
			wantQuery: "SELECT id FROM players ORDER BY level DESC, name ASC LIMIT 10",
		},
		{
			name:      "Count",
			input:     Dialect(dialect.Postgres).Select().Count().From("players"),
			wantQuery: "SELECT COUNT(*) FROM players",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			query, args, err := tt.input.Query()
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSelectorErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input *Selector
		check func(t *testing.T, err error)
	}{
		{
			name:  "InjectedTable",
			input: Dialect(dialect.MySQL).Select("id").From("players; DROP TABLE players"),
			check: func(t *testing.T, err error) {
				assert.True(t, dialect.IsInvalidIdentifier(err))
			},
		},
		{
			name: "InjectedColumn",
			input: Dialect(dialect.MySQL).Select("id").From("players").
				Where("name--comment", "=", "x"),
			check: func(t *testing.T, err error) {
				assert.True(t, dialect.IsInvalidIdentifier(err))
			},
		},
		{
			name: "QuotedColumn",
			input: Dialect(dialect.MySQL).Select(`name" OR "1"="1`).From("players"),
			check: func(t *testing.T, err error) {
				assert.True(t, dialect.IsInvalidIdentifier(err))
			},
		},
		{
			name: "UnknownOperator",
			input: Dialect(dialect.MySQL).Select("id").From("players").
				Where("level", "BETWEEN", 1),
			check: func(t *testing.T, err error) {
				assert.True(t, dialect.IsUnsupportedOperator(err))
			},
		},
		{
			name: "EmptyIn",
			input: Dialect(dialect.MySQL).Select("id").From("players").
				Where("level", "IN", []any{}),
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "empty value list")
			},
		},
		{
			name: "IsWithValue",
			input: Dialect(dialect.MySQL).Select("id").From("players").
				Where("level", "IS", 3),
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "only NULL")
			},
		},
		{
			name: "BadDirection",
			input: Dialect(dialect.MySQL).Select("id").From("players").
				OrderBy("level", "DESC; DROP TABLE players"),
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			query, args, err := tt.input.Query()
			require.Error(t, err)
			tt.check(t, err)
			// A rejected builder must never leak partial SQL.
			assert.Empty(t, query)
			assert.Empty(t, args)
		})
	}
}

func TestInsertBuilder(t *testing.T) {
	t.Parallel()
	t.Run("SingleRow", func(t *testing.T) {
		t.Parallel()
		query, args, err := Dialect(dialect.MySQL).Insert("players").
			Columns("id", "name", "level").
			Values("u1", "alice", 3).
			Query()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO players (id, name, level) VALUES (?, ?, ?)", query)
		assert.Equal(t, []any{"u1", "alice", 3}, args)
	})

	t.Run("MultiRowPostgres", func(t *testing.T) {
		t.Parallel()
		query, args, err := Dialect(dialect.Postgres).Insert("players").
			Columns("name", "level").
			Values("alice", 3).
			Values("bob", 7).
			Query()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO players (name, level) VALUES ($1, $2), ($3, $4)", query)
		assert.Equal(t, []any{"alice", 3, "bob", 7}, args)
	})

	t.Run("ArityMismatch", func(t *testing.T) {
		t.Parallel()
		_, _, err := Dialect(dialect.MySQL).Insert("players").
			Columns("name", "level").
			Values("alice").
			Query()
		require.Error(t, err)
		assert.ErrorContains(t, err, "1 values for 2 columns")
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		_, _, err := Dialect(dialect.MySQL).Insert("players").Query()
		require.Error(t, err)
	})
}

func TestUpdateBuilder(t *testing.T) {
	t.Parallel()
	t.Run("SetWhere", func(t *testing.T) {
		t.Parallel()
		query, args, err := Dialect(dialect.Postgres).Update("players").
			Set("name", "carol").
			Set("level", 9).
			Where("id", "=", "u1").
			Query()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE players SET name = $1, level = $2 WHERE id = $3", query)
		assert.Equal(t, []any{"carol", 9, "u1"}, args)
	})

	t.Run("NoColumns", func(t *testing.T) {
		t.Parallel()
		_, _, err := Dialect(dialect.MySQL).Update("players").Where("id", "=", 1).Query()
		require.Error(t, err)
		assert.ErrorContains(t, err, "no columns to set")
	})
}

func TestDeleteBuilder(t *testing.T) {
	t.Parallel()
	t.Run("ByKey", func(t *testing.T) {
		t.Parallel()
		query, args, err := Dialect(dialect.MySQL).Delete("players").
			Where("id", "=", "u1").
			Query()
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM players WHERE id = ?", query)
		assert.Equal(t, []any{"u1"}, args)
	})

	t.Run("InList", func(t *testing.T) {
		t.Parallel()
		query, args, err := Dialect(dialect.Postgres).Delete("players").
			Where("id", "IN", []any{"u1", "u2", "u3"}).
			Query()
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM players WHERE id IN ($1, $2, $3)", query)
		assert.Equal(t, []any{"u1", "u2", "u3"}, args)
	})
}
