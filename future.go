package stratum

import (
	"context"

	sqld "github.com/syssam/stratum/dialect/sql"
)

// Future is a single-assignment result produced by an operation running on
// its own goroutine. A Future is resolved exactly once; Await may be called
// any number of times and from multiple goroutines.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on a new goroutine and returns a Future resolved with its
// result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn()
	}()
	return f
}

// Await blocks until the future resolves or ctx is canceled. On
// cancellation the underlying operation keeps running; only the wait is
// abandoned.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed when the future has resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// FindAsync runs Find on its own goroutine.
func FindAsync[T any](ctx context.Context, q Querier, key any) *Future[*T] {
	return Go(func() (*T, error) {
		return Find[T](ctx, q, key)
	})
}

// FindAllAsync runs FindAll on its own goroutine.
func FindAllAsync[T any](ctx context.Context, q Querier) *Future[[]*T] {
	return Go(func() ([]*T, error) {
		return FindAll[T](ctx, q)
	})
}

// InsertAsync runs Insert on its own goroutine. The entity must not be
// mutated until the future resolves.
func InsertAsync[T any](ctx context.Context, q Querier, entity *T) *Future[*T] {
	return Go(func() (*T, error) {
		return entity, Insert(ctx, q, entity)
	})
}

// UpdateAsync runs Update on its own goroutine. The entity must not be
// mutated until the future resolves.
func UpdateAsync[T any](ctx context.Context, q Querier, entity *T) *Future[*T] {
	return Go(func() (*T, error) {
		return entity, Update(ctx, q, entity)
	})
}

// SaveAsync runs Save on its own goroutine. The entity must not be mutated
// until the future resolves.
func SaveAsync[T any](ctx context.Context, q Querier, entity *T) *Future[*T] {
	return Go(func() (*T, error) {
		return entity, Save(ctx, q, entity)
	})
}

// DeleteAsync runs Delete on its own goroutine.
func DeleteAsync[T any](ctx context.Context, q Querier, entity *T) *Future[bool] {
	return Go(func() (bool, error) {
		return Delete(ctx, q, entity)
	})
}

// DeleteByIDAsync runs DeleteByID on its own goroutine.
func DeleteByIDAsync[T any](ctx context.Context, q Querier, key any) *Future[bool] {
	return Go(func() (bool, error) {
		return DeleteByID[T](ctx, q, key)
	})
}

// CreateTableAsync runs CreateTable on its own goroutine.
func CreateTableAsync[T any](ctx context.Context, q Querier) *Future[struct{}] {
	return Go(func() (struct{}, error) {
		return struct{}{}, CreateTable[T](ctx, q)
	})
}

// ExecuteAsync runs Execute on its own goroutine. Staging calls after
// ExecuteAsync affect the next execution, not the running one.
func (b *Batch) ExecuteAsync(ctx context.Context, batchSize int) *Future[*BatchResult] {
	return Go(func() (*BatchResult, error) {
		return b.Execute(ctx, batchSize)
	})
}

// ExecRawAsync runs ExecRaw on its own goroutine.
func (c *Client) ExecRawAsync(ctx context.Context, query string, params ...any) *Future[int64] {
	return Go(func() (int64, error) {
		return c.ExecRaw(ctx, query, params...)
	})
}

// QueryRawAsync runs QueryRaw on its own goroutine. The caller must close
// the returned rows after the future resolves.
func (c *Client) QueryRawAsync(ctx context.Context, query string, params ...any) *Future[*sqld.Rows] {
	return Go(func() (*sqld.Rows, error) {
		return c.QueryRaw(ctx, query, params...)
	})
}
