package prometheus

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/stratum"
	"github.com/syssam/stratum/dialect"
	sqld "github.com/syssam/stratum/dialect/sql"
)

func newCollector(t *testing.T) (*Collector, *stratum.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	client := stratum.NewClient(sqld.OpenDB(dialect.SQLite, db))
	t.Cleanup(func() { _ = client.Close() })
	return NewCollector(client, "test"), client, mock
}

func TestCollectorDescribe(t *testing.T) {
	t.Parallel()
	c, _, _ := newCollector(t)

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)
	var n int
	for range ch {
		n++
	}
	assert.Equal(t, 11, n)
}

func TestCollectorRegisters(t *testing.T) {
	t.Parallel()
	c, _, _ := newCollector(t)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	_, err := reg.Gather()
	require.NoError(t, err)
}

func TestCollectorSeries(t *testing.T) {
	t.Parallel()
	c, client, mock := newCollector(t)

	mock.ExpectExec("UPDATE players").WillReturnResult(sqlmock.NewResult(0, 1))
	_, err := client.ExecRaw(context.Background(), "UPDATE players SET level = 1")
	require.NoError(t, err)

	// The statements family carries one series per outcome, the
	// transactions family one per lifecycle event.
	assert.Equal(t, 2, testutil.CollectAndCount(c, "test_stratum_statements_total"))
	assert.Equal(t, 3, testutil.CollectAndCount(c, "test_stratum_transactions_total"))
	assert.Equal(t, 14, testutil.CollectAndCount(c))
}

func TestCollectorValues(t *testing.T) {
	t.Parallel()
	c, client, mock := newCollector(t)

	mock.ExpectExec("UPDATE players").WillReturnResult(sqlmock.NewResult(0, 1))
	_, err := client.ExecRaw(context.Background(), "UPDATE players SET level = 1")
	require.NoError(t, err)
	mock.ExpectBegin()
	mock.ExpectCommit()
	tx, err := client.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	expected := `
# HELP test_stratum_transactions_total Transactions, by lifecycle event.
# TYPE test_stratum_transactions_total counter
test_stratum_transactions_total{event="begun"} 1
test_stratum_transactions_total{event="committed"} 1
test_stratum_transactions_total{event="rolled_back"} 0
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"test_stratum_transactions_total"))
}
