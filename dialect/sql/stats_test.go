package sql

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/stratum/dialect"
)

func TestStatsDriverCounters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.SQLite, db))

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT id FROM players", []any{}, rows))
	require.NoError(t, rows.Close())

	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, drv.Exec(context.Background(), "INSERT INTO players (name) VALUES ('x')", []any{}, nil))

	mock.ExpectExec("DELETE").WillReturnError(errors.New("boom"))
	require.Error(t, drv.Exec(context.Background(), "DELETE FROM players", []any{}, nil))

	s := drv.Stats()
	assert.Equal(t, int64(3), s.Total)
	assert.Equal(t, int64(2), s.Succeeded)
	assert.Equal(t, int64(1), s.Failed)
	assert.GreaterOrEqual(t, s.MaxDuration, s.MinDuration)
	assert.Greater(t, s.TotalDuration, time.Duration(0))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsDriverTransactions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.SQLite, db))

	mock.ExpectBegin()
	mock.ExpectCommit()
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	mock.ExpectBegin()
	mock.ExpectRollback()
	tx, err = drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	s := drv.Stats()
	assert.Equal(t, int64(2), s.TxBegun)
	assert.Equal(t, int64(1), s.TxCommitted)
	assert.Equal(t, int64(1), s.TxRolledBack)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsDriverSlowQueryHook(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var (
		mu   sync.Mutex
		slow []string
	)
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db),
		WithSlowThreshold(time.Nanosecond),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			mu.Lock()
			slow = append(slow, query)
			mu.Unlock()
		}),
	)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT id FROM players", []any{}, rows))
	require.NoError(t, rows.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, slow, 1)
	assert.Equal(t, "SELECT id FROM players", slow[0])
	assert.Equal(t, int64(1), drv.Stats().SlowQueries)
}

func TestStatsDriverThreshold(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.SQLite, db))
	assert.Equal(t, 100*time.Millisecond, drv.SlowThreshold())

	drv.SetSlowThreshold(time.Second)
	assert.Equal(t, time.Second, drv.SlowThreshold())
}

func TestStatsDriverConcurrent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	const n = 20
	for i := 0; i < n; i++ {
		mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(0, 1))
	}

	drv := NewStatsDriver(OpenDB(dialect.SQLite, db))
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = drv.Exec(context.Background(), "INSERT INTO players (name) VALUES ('x')", []any{}, nil)
		}()
	}
	wg.Wait()

	s := drv.Stats()
	assert.Equal(t, int64(n), s.Total)
	assert.Equal(t, int64(n), s.Succeeded)
}

func TestSnapshotAvgAndString(t *testing.T) {
	s := Snapshot{
		Total:         4,
		Succeeded:     3,
		Failed:        1,
		TotalDuration: 400 * time.Millisecond,
	}
	assert.Equal(t, 100*time.Millisecond, s.AvgDuration())
	assert.Contains(t, s.String(), "statements=4")

	assert.Equal(t, time.Duration(0), Snapshot{}.AvgDuration())
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var logged []string
	drv := NewDebugDriver(OpenDB(dialect.SQLite, db), DebugWithLog(func(_ context.Context, v ...any) {
		for _, e := range v {
			logged = append(logged, e.(string))
		}
	}))

	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, drv.Exec(context.Background(), "INSERT INTO players (name) VALUES ('x')", []any{}, nil))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	rows := &Rows{}
	require.NoError(t, tx.Query(context.Background(), "SELECT id FROM players", []any{}, rows))
	require.NoError(t, tx.Commit())

	require.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, logged[0], "exec: INSERT")
	assert.Contains(t, logged, "begin transaction")
	assert.Contains(t, logged, "commit transaction")
}
