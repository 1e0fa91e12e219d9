package stratum_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/stratum"
	"github.com/syssam/stratum/dialect"
)

// openSQLite opens a file-backed database under the test's temporary
// directory so every connection in the pool sees the same data.
func openSQLite(t *testing.T, opts ...stratum.Option) *stratum.Client {
	t.Helper()
	client, err := stratum.Open(&stratum.Config{
		Driver: dialect.SQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
		Params: map[string]string{"_pragma": "foreign_keys(1)"},
	}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := openSQLite(t)
	require.NoError(t, stratum.CreateTable[Player](ctx, client))

	p := &Player{Name: "alice", Level: 3}
	require.NoError(t, stratum.Insert(ctx, client, p))
	require.NotEqual(t, uuid.Nil, p.ID)

	got, err := stratum.Find[Player](ctx, client, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "alice", got.Name)
	assert.Equal(t, 3, got.Level)

	got.Level = 4
	require.NoError(t, stratum.Update(ctx, client, got))
	got, err = stratum.Find[Player](ctx, client, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Level)

	removed, err := stratum.Delete(ctx, client, got)
	require.NoError(t, err)
	assert.True(t, removed)

	got, err = stratum.Find[Player](ctx, client, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteAutoIncrementKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := openSQLite(t)
	require.NoError(t, stratum.CreateTable[Item](ctx, client))

	first := &Item{Name: "sword"}
	second := &Item{Name: "shield"}
	require.NoError(t, stratum.Insert(ctx, client, first))
	require.NoError(t, stratum.Insert(ctx, client, second))
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	got, err := stratum.Find[Item](ctx, client, second.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "shield", got.Name)
}

func TestSQLiteSaveFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := openSQLite(t)
	require.NoError(t, stratum.CreateTable[Item](ctx, client))

	// A zero key inserts.
	it := &Item{Name: "potion"}
	require.NoError(t, stratum.Save(ctx, client, it))
	require.NotZero(t, it.ID)

	// A present key updates in place.
	it.Name = "elixir"
	require.NoError(t, stratum.Save(ctx, client, it))

	all, err := stratum.FindAll[Item](ctx, client)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "elixir", all[0].Name)
}

func TestSQLiteQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := openSQLite(t)
	require.NoError(t, stratum.CreateTable[Player](ctx, client))

	for _, p := range []*Player{
		{Name: "alice", Level: 30},
		{Name: "bob", Level: 10},
		{Name: "carol", Level: 20},
	} {
		require.NoError(t, stratum.Insert(ctx, client, p))
	}

	players, err := stratum.Select[Player](client).
		Where("level", ">=", 20).
		OrderBy("level", "DESC").
		All(ctx)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "alice", players[0].Name)
	assert.Equal(t, "carol", players[1].Name)

	n, err := stratum.Select[Player](client).Where("level", "<", 15).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLiteTxAtomicity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := openSQLite(t)
	require.NoError(t, stratum.CreateTable[Player](ctx, client))

	p := &Player{Name: "alice", Level: 1}
	require.NoError(t, stratum.Insert(ctx, client, p))

	cause := errors.New("quota exceeded")
	err := stratum.WithTx(ctx, client, func(tx *stratum.Tx) error {
		p.Level = 99
		if err := stratum.Update(ctx, tx, p); err != nil {
			return err
		}
		return cause
	})
	require.ErrorIs(t, err, cause)

	// The rolled back update must not be visible.
	got, err := stratum.Find[Player](ctx, client, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Level)
}

func TestSQLiteBatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := openSQLite(t)
	require.NoError(t, stratum.CreateTable[Player](ctx, client))

	stale := &Player{Name: "stale", Level: 1}
	require.NoError(t, stratum.Insert(ctx, client, stale))

	res, err := client.Batch().
		InsertAll(
			&Player{Name: "a", Level: 1},
			&Player{Name: "b", Level: 2},
			&Player{Name: "c", Level: 3},
		).
		DeleteAll(stale).
		Execute(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Inserted)
	assert.Equal(t, int64(1), res.Deleted)

	n, err := stratum.Select[Player](client).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
