package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/stratum/dialect"
)

// QueryStats holds running statement and transaction counters.
// All counters are updated atomically and read through Snapshot.
type QueryStats struct {
	// Total is the total number of statements executed.
	Total atomic.Int64
	// Succeeded is the number of statements that completed without error.
	Succeeded atomic.Int64
	// Failed is the number of statements that returned an error.
	Failed atomic.Int64
	// TotalDuration is the cumulative statement latency in nanoseconds.
	TotalDuration atomic.Int64
	// MinDuration is the smallest observed statement latency in
	// nanoseconds, or 0 before the first statement.
	MinDuration atomic.Int64
	// MaxDuration is the largest observed statement latency in nanoseconds.
	MaxDuration atomic.Int64
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// TxBegun, TxCommitted and TxRolledBack count transaction lifecycles.
	TxBegun      atomic.Int64
	TxCommitted  atomic.Int64
	TxRolledBack atomic.Int64

	start time.Time
}

// Snapshot is a point-in-time, read-only view of the statistics, including
// connection-pool gauges. It is a copy; it never updates after creation.
type Snapshot struct {
	Total         int64
	Succeeded     int64
	Failed        int64
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	SlowQueries   int64
	TxBegun       int64
	TxCommitted   int64
	TxRolledBack  int64
	Uptime        time.Duration

	// Pool gauges, taken from the underlying sql.DB at snapshot time.
	PoolOpen  int
	PoolInUse int
	PoolIdle  int
	PoolMax   int
}

// AvgDuration returns the average statement latency.
func (s Snapshot) AvgDuration() time.Duration {
	if s.Total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Total)
}

// String returns a human-readable summary of the snapshot.
func (s Snapshot) String() string {
	return fmt.Sprintf(
		"statements=%d succeeded=%d failed=%d avg=%s min=%s max=%s slow=%d tx=%d/%d/%d pool=%d/%d uptime=%s",
		s.Total, s.Succeeded, s.Failed, s.AvgDuration(), s.MinDuration, s.MaxDuration,
		s.SlowQueries, s.TxBegun, s.TxCommitted, s.TxRolledBack,
		s.PoolInUse, s.PoolOpen, s.Uptime,
	)
}

// record folds one statement execution into the counters.
func (s *QueryStats) record(d time.Duration, err error) {
	s.Total.Add(1)
	if err != nil {
		s.Failed.Add(1)
	} else {
		s.Succeeded.Add(1)
	}
	ns := int64(d)
	s.TotalDuration.Add(ns)
	for {
		min := s.MinDuration.Load()
		if min != 0 && min <= ns {
			break
		}
		if s.MinDuration.CompareAndSwap(min, ns) {
			break
		}
	}
	for {
		max := s.MaxDuration.Load()
		if max >= ns {
			break
		}
		if s.MaxDuration.CompareAndSwap(max, ns) {
			break
		}
	}
}

// SlowQueryHook is a function called when a slow statement is detected.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver wraps a Driver with statement and transaction statistics
// collection.
type StatsDriver struct {
	*Driver
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the threshold for slow statement detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback function for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow statements to the default logger.
// This is a convenience wrapper around WithSlowQueryHook.
func WithSlowQueryLog() StatsOption {
	return WithSlowQueryHook(func(_ context.Context, query string, args []any, duration time.Duration) {
		slog.Warn("slow query detected", "duration", duration, "query", query, "args", args)
	})
}

// NewStatsDriver wraps a Driver with statistics collection.
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:        drv,
		stats:         &QueryStats{start: time.Now()},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns a point-in-time snapshot of the collected statistics.
func (d *StatsDriver) Stats() Snapshot {
	s := Snapshot{
		Total:         d.stats.Total.Load(),
		Succeeded:     d.stats.Succeeded.Load(),
		Failed:        d.stats.Failed.Load(),
		TotalDuration: time.Duration(d.stats.TotalDuration.Load()),
		MinDuration:   time.Duration(d.stats.MinDuration.Load()),
		MaxDuration:   time.Duration(d.stats.MaxDuration.Load()),
		SlowQueries:   d.stats.SlowQueries.Load(),
		TxBegun:       d.stats.TxBegun.Load(),
		TxCommitted:   d.stats.TxCommitted.Load(),
		TxRolledBack:  d.stats.TxRolledBack.Load(),
		Uptime:        time.Since(d.stats.start),
	}
	if db := d.DB(); db != nil {
		ps := db.Stats()
		s.PoolOpen = ps.OpenConnections
		s.PoolInUse = ps.InUse
		s.PoolIdle = ps.Idle
		s.PoolMax = ps.MaxOpenConnections
	}
	return s
}

// SlowThreshold returns the current slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slowThreshold
}

// SetSlowThreshold updates the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

// Query executes a query and records statistics.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, query, args, start, err)
	return err
}

// Exec executes a statement and records statistics.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, query, args, start, err)
	return err
}

func (d *StatsDriver) record(ctx context.Context, query string, args any, start time.Time, err error) {
	duration := time.Since(start)
	d.stats.record(duration, err)

	d.mu.RLock()
	threshold := d.slowThreshold
	hook := d.slowHook
	d.mu.RUnlock()

	if duration > threshold {
		d.stats.SlowQueries.Add(1)
		if hook != nil {
			argsSlice, _ := args.([]any)
			hook(ctx, query, argsSlice, duration)
		}
	}
}

// Tx starts a transaction that also records statistics.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	d.stats.TxBegun.Add(1)
	return &StatsTx{Tx: tx, driver: d}, nil
}

// StatsTx wraps a transaction with statistics collection.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query executes a query within the transaction and records statistics.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, query, args, start, err)
	return err
}

// Exec executes a statement within the transaction and records statistics.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(ctx, query, args, start, err)
	return err
}

// Commit commits the transaction and records it.
func (tx *StatsTx) Commit() error {
	err := tx.Tx.Commit()
	if err == nil {
		tx.driver.stats.TxCommitted.Add(1)
	}
	return err
}

// Rollback rolls back the transaction and records it.
func (tx *StatsTx) Rollback() error {
	err := tx.Tx.Rollback()
	if err == nil {
		tx.driver.stats.TxRolledBack.Add(1)
	}
	return err
}

// DebugDriver wraps a Driver with debug logging.
type DebugDriver struct {
	*Driver
	log func(context.Context, ...any)
}

// DebugOption configures the DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLog sets a custom log function.
func DebugWithLog(logFunc func(context.Context, ...any)) DebugOption {
	return func(d *DebugDriver) {
		d.log = logFunc
	}
}

// NewDebugDriver wraps a Driver with debug logging.
func NewDebugDriver(drv *Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{
		Driver: drv,
		log: func(_ context.Context, v ...any) {
			slog.Info(fmt.Sprint(v...))
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Query executes a query and logs it.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.log(ctx, fmt.Sprintf("query: %s args: %v", query, args))
	return d.Driver.Query(ctx, query, args, v)
}

// Exec executes a statement and logs it.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.log(ctx, fmt.Sprintf("exec: %s args: %v", query, args))
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx starts a transaction with debug logging.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.log(ctx, "begin transaction")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &DebugTx{Tx: tx, log: d.log}, nil
}

// DebugTx wraps a transaction with debug logging.
type DebugTx struct {
	dialect.Tx
	log func(context.Context, ...any)
}

// Query executes a query within the transaction and logs it.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.log(ctx, fmt.Sprintf("tx query: %s args: %v", query, args))
	return tx.Tx.Query(ctx, query, args, v)
}

// Exec executes a statement within the transaction and logs it.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.log(ctx, fmt.Sprintf("tx exec: %s args: %v", query, args))
	return tx.Tx.Exec(ctx, query, args, v)
}

// Commit commits the transaction and logs it.
func (tx *DebugTx) Commit() error {
	tx.log(context.Background(), "commit transaction")
	return tx.Tx.Commit()
}

// Rollback rolls back the transaction and logs it.
func (tx *DebugTx) Rollback() error {
	tx.log(context.Background(), "rollback transaction")
	return tx.Tx.Rollback()
}

// Ensure interfaces are implemented.
var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*DebugTx)(nil)
)
