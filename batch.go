package stratum

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	sqld "github.com/syssam/stratum/dialect/sql"
	"github.com/syssam/stratum/schema"
)

// DefaultBatchSize bounds a chunk when Execute is called with a
// non-positive size.
const DefaultBatchSize = 500

// BatchResult reports the aggregate outcome of one batch execution.
// It is produced once per Execute call and not retained by the engine.
type BatchResult struct {
	Inserted int64
	Updated  int64
	Deleted  int64
	Duration time.Duration
}

// Batch accumulates entity mutations and executes them in size-bounded
// chunks. Regardless of staging order, execution runs insert → update →
// delete. A failing chunk aborts the whole execution; the counts
// accumulated before the failure stay visible in the returned BatchError.
//
// The batch path bypasses the entity cache; callers mixing batched writes
// with cached reads must invalidate manually.
type Batch struct {
	c  *Client
	mu sync.Mutex

	inserts []any
	updates []any
	deletes []any
}

// Batch returns a new mutation accumulator.
func (c *Client) Batch() *Batch {
	return &Batch{c: c}
}

// InsertAll stages entities for insertion. Entities must be pointers to
// tagged structs; mixed types are allowed and grouped per table.
func (b *Batch) InsertAll(entities ...any) *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inserts = append(b.inserts, entities...)
	return b
}

// UpdateAll stages entities for update by primary key.
func (b *Batch) UpdateAll(entities ...any) *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, entities...)
	return b
}

// DeleteAll stages entities for deletion by primary key.
func (b *Batch) DeleteAll(entities ...any) *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes = append(b.deletes, entities...)
	return b
}

// Execute runs the staged mutations in chunks of at most batchSize
// (DefaultBatchSize when non-positive) and returns the aggregate counts
// and wall-clock time.
func (b *Batch) Execute(ctx context.Context, batchSize int) (*BatchResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	b.mu.Lock()
	inserts := b.inserts
	updates := b.updates
	deletes := b.deletes
	b.inserts, b.updates, b.deletes = nil, nil, nil
	b.mu.Unlock()

	start := time.Now()
	res := &BatchResult{}
	fail := func(err error) (*BatchResult, error) {
		res.Duration = time.Since(start)
		return nil, &BatchError{Result: *res, Err: err}
	}
	insertGroups, err := b.groupsOf(inserts)
	if err != nil {
		return fail(err)
	}
	updateGroups, err := b.groupsOf(updates)
	if err != nil {
		return fail(err)
	}
	deleteGroups, err := b.groupsOf(deletes)
	if err != nil {
		return fail(err)
	}
	for _, g := range insertGroups {
		for _, chunk := range chunks(g.entities, batchSize) {
			n, err := b.insertChunk(ctx, g.desc, chunk)
			res.Inserted += n
			if err != nil {
				return fail(err)
			}
		}
	}
	for _, g := range updateGroups {
		for _, chunk := range chunks(g.entities, batchSize) {
			n, err := b.updateChunk(ctx, g.desc, chunk)
			res.Updated += n
			if err != nil {
				return fail(err)
			}
		}
	}
	for _, g := range deleteGroups {
		for _, chunk := range chunks(g.entities, batchSize) {
			n, err := b.deleteChunk(ctx, g.desc, chunk)
			res.Deleted += n
			if err != nil {
				return fail(err)
			}
		}
	}
	res.Duration = time.Since(start)
	return res, nil
}

// insertChunk issues one multi-row INSERT for the chunk.
func (b *Batch) insertChunk(ctx context.Context, d *schema.Descriptor, chunk []any) (int64, error) {
	cols := d.InsertColumns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	ins := sqld.Dialect(b.c.Dialect()).Insert(d.Table).Columns(names...)
	for _, e := range chunk {
		if d.ID.AutoKey && d.ID.Kind == schema.KindUUID {
			kv, err := d.ID.Value(e)
			if err != nil {
				return 0, err
			}
			if kv == uuid.Nil.String() {
				if err := d.ID.SetValue(e, uuid.New()); err != nil {
					return 0, err
				}
			}
		}
		vals, err := schema.Values(cols, e)
		if err != nil {
			return 0, err
		}
		ins.Values(vals...)
	}
	query, args, err := ins.Query()
	if err != nil {
		return 0, err
	}
	var r sqld.Result
	if err := b.c.drv.Exec(ctx, query, args, &r); err != nil {
		return 0, NewDatabaseError(d.Table, "batch insert", err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		// Driver cannot report a count; the statement succeeded for the
		// whole tuple list.
		return int64(len(chunk)), nil
	}
	return n, nil
}

// updateChunk replays one parameterized UPDATE per entity inside a single
// transaction, so a chunk is applied atomically.
func (b *Batch) updateChunk(ctx context.Context, d *schema.Descriptor, chunk []any) (int64, error) {
	tx, err := b.c.drv.Tx(ctx)
	if err != nil {
		return 0, NewDatabaseError(d.Table, "batch update", err)
	}
	var total int64
	cols := d.UpdateColumns()
	for _, e := range chunk {
		key, err := schema.KeyValue(d, e)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		vals, err := schema.Values(cols, e)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		upd := sqld.Dialect(b.c.Dialect()).Update(d.Table)
		for i, c := range cols {
			upd.Set(c.Name, vals[i])
		}
		query, args, err := upd.Where(d.ID.Name, "=", key).Query()
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		var r sqld.Result
		if err := tx.Exec(ctx, query, args, &r); err != nil {
			_ = tx.Rollback()
			return 0, NewDatabaseError(d.Table, "batch update", err)
		}
		if n, err := r.RowsAffected(); err == nil {
			total += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, NewDatabaseError(d.Table, "batch update", err)
	}
	return total, nil
}

// deleteChunk issues one DELETE with a primary-key IN list for the chunk.
func (b *Batch) deleteChunk(ctx context.Context, d *schema.Descriptor, chunk []any) (int64, error) {
	keys := make([]any, len(chunk))
	for i, e := range chunk {
		key, err := schema.KeyValue(d, e)
		if err != nil {
			return 0, err
		}
		keys[i] = key
	}
	query, args, err := sqld.Dialect(b.c.Dialect()).
		Delete(d.Table).
		Where(d.ID.Name, "IN", keys).
		Query()
	if err != nil {
		return 0, err
	}
	var r sqld.Result
	if err := b.c.drv.Exec(ctx, query, args, &r); err != nil {
		return 0, NewDatabaseError(d.Table, "batch delete", err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return int64(len(chunk)), nil
	}
	return n, nil
}

// typeGroup is a run of staged entities sharing one descriptor.
type typeGroup struct {
	desc     *schema.Descriptor
	entities []any
}

// groupsOf partitions entities per descriptor, preserving first-seen
// order. An undescribable entity aborts the execution before any SQL runs.
func (b *Batch) groupsOf(entities []any) ([]typeGroup, error) {
	var groups []typeGroup
	index := make(map[reflect.Type]int)
	for _, e := range entities {
		t := reflect.TypeOf(e)
		i, ok := index[t]
		if !ok {
			d, err := b.c.reg.Describe(t)
			if err != nil {
				return nil, err
			}
			index[t] = len(groups)
			groups = append(groups, typeGroup{desc: d})
			i = index[t]
		}
		groups[i].entities = append(groups[i].entities, e)
	}
	return groups, nil
}

// chunks partitions entities into runs of at most size.
func chunks(entities []any, size int) [][]any {
	if len(entities) == 0 {
		return nil
	}
	out := make([][]any, 0, (len(entities)+size-1)/size)
	for len(entities) > size {
		out = append(out, entities[:size])
		entities = entities[size:]
	}
	return append(out, entities)
}
