package stratum

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/syssam/stratum/dialect"
	sqld "github.com/syssam/stratum/dialect/sql"
	"github.com/syssam/stratum/schema"
)

// Tx is a transaction scope: one leased connection with autocommit off.
// Operations within a Tx are strictly ordered. A Tx is terminal after
// Commit or Rollback; further use returns ErrTxDone. The leased connection
// returns to the pool on every exit path, including a failed commit.
//
// Transactional reads bypass the entity cache.
type Tx struct {
	client *Client
	tx     dialect.Tx
	done   atomic.Bool
}

// Tx starts a transaction on one pooled connection.
func (c *Client) Tx(ctx context.Context) (*Tx, error) {
	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return nil, NewDatabaseError("", "begin", err)
	}
	return &Tx{client: c, tx: tx}, nil
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	if !tx.done.CompareAndSwap(false, true) {
		return ErrTxDone
	}
	if err := tx.tx.Commit(); err != nil {
		return NewDatabaseError("", "commit", err)
	}
	return nil
}

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error {
	if !tx.done.CompareAndSwap(false, true) {
		return ErrTxDone
	}
	if err := tx.tx.Rollback(); err != nil {
		return NewDatabaseError("", "rollback", err)
	}
	return nil
}

// ExecRaw executes pre-formed parameterized SQL inside the transaction.
// The sanitizer is not applied here; see Client.ExecRaw.
func (tx *Tx) ExecRaw(ctx context.Context, query string, params ...any) (int64, error) {
	if tx.done.Load() {
		return 0, ErrTxDone
	}
	var res sqld.Result
	if err := tx.tx.Exec(ctx, query, params, &res); err != nil {
		return 0, NewDatabaseError("", "exec", err)
	}
	return res.RowsAffected()
}

// QueryRaw executes pre-formed parameterized SQL inside the transaction.
// The caller must close the returned rows before committing.
func (tx *Tx) QueryRaw(ctx context.Context, query string, params ...any) (*sqld.Rows, error) {
	if tx.done.Load() {
		return nil, ErrTxDone
	}
	rows := &sqld.Rows{}
	if err := tx.tx.Query(ctx, query, params, rows); err != nil {
		return nil, NewDatabaseError("", "query", err)
	}
	return rows, nil
}

func (tx *Tx) dialectName() string { return tx.client.Dialect() }
func (tx *Tx) registry() *schema.Registry { return tx.client.reg }
func (tx *Tx) conn() dialect.ExecQuerier { return tx.tx }
func (tx *Tx) cacheClient() *Client { return nil }

var (
	_ Querier = (*Client)(nil)
	_ Querier = (*Tx)(nil)
)

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back when fn returns an error or panics. A rollback failure is
// joined to the original error instead of being dropped, and the
// connection is released on every path.
//
//	err := stratum.WithTx(ctx, client, func(tx *stratum.Tx) error {
//		if err := stratum.Update(ctx, tx, from); err != nil {
//			return err
//		}
//		return stratum.Update(ctx, tx, to)
//	})
func WithTx(ctx context.Context, c *Client, fn func(tx *Tx) error) error {
	tx, err := c.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Join(err, &RollbackError{Err: rerr})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("stratum: committing transaction: %w", err)
	}
	return nil
}
