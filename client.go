package stratum

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/stratum/dialect"
	sqld "github.com/syssam/stratum/dialect/sql"
	"github.com/syssam/stratum/schema"
)

// Client is the engine facade. It owns the pooled driver, the metadata
// registry and the optional entity cache; multiple independent clients can
// coexist in one process.
type Client struct {
	drv      *sqld.StatsDriver
	base     *sqld.Driver
	reg      *schema.Registry
	cache    Cache
	cacheTTL time.Duration
	statsOps []sqld.StatsOption
}

// Option configures the client.
type Option func(*Client)

// WithCache installs a read-through entity cache in front of Find.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithCacheTTL sets the default TTL used for cached entities whose type
// declares no hint of its own. Default is 5 minutes.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cacheTTL = ttl }
}

// WithStatsOptions forwards options to the statistics driver.
func WithStatsOptions(opts ...sqld.StatsOption) Option {
	return func(c *Client) { c.statsOps = opts }
}

// NewClient creates a Client on top of an open driver.
func NewClient(drv *sqld.Driver, opts ...Option) *Client {
	c := &Client{
		base:     drv,
		reg:      schema.NewRegistry(),
		cacheTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.drv = sqld.NewStatsDriver(drv, c.statsOps...)
	return c
}

// Dialect returns the dialect name of the underlying driver.
func (c *Client) Dialect() string { return c.base.Dialect() }

// Driver returns the instrumented driver the client executes through.
func (c *Client) Driver() dialect.Driver { return c.drv }

// Registry returns the metadata registry.
func (c *Client) Registry() *schema.Registry { return c.reg }

// Stats returns a point-in-time snapshot of query, transaction and pool
// statistics.
func (c *Client) Stats() sqld.Snapshot { return c.drv.Stats() }

// Ping verifies connectivity to the backend.
func (c *Client) Ping(ctx context.Context) error {
	return c.base.DB().PingContext(ctx)
}

// Close closes the underlying connection pool.
func (c *Client) Close() error { return c.base.Close() }

// ExecRaw executes pre-formed parameterized SQL and returns the number of
// affected rows. The sanitizer is not applied here: the SQL text is the
// caller's responsibility. Values must still be bound through params.
func (c *Client) ExecRaw(ctx context.Context, query string, params ...any) (int64, error) {
	var res sqld.Result
	if err := c.drv.Exec(ctx, query, params, &res); err != nil {
		return 0, NewDatabaseError("", "exec", err)
	}
	return res.RowsAffected()
}

// QueryRaw executes pre-formed parameterized SQL and returns the rows.
// The sanitizer is not applied here; see ExecRaw. The caller must close
// the returned rows.
func (c *Client) QueryRaw(ctx context.Context, query string, params ...any) (*sqld.Rows, error) {
	rows := &sqld.Rows{}
	if err := c.drv.Query(ctx, query, params, rows); err != nil {
		return nil, NewDatabaseError("", "query", err)
	}
	return rows, nil
}

// Querier is the execution scope generic operations run against. It is
// implemented by *Client (pooled, cache-aware) and *Tx (single
// connection, cache bypassed).
type Querier interface {
	dialectName() string
	registry() *schema.Registry
	conn() dialect.ExecQuerier
	// cacheClient returns the client whose entity cache applies to this
	// scope, or nil when the path bypasses the cache.
	cacheClient() *Client
}

func (c *Client) dialectName() string        { return c.Dialect() }
func (c *Client) registry() *schema.Registry { return c.reg }
func (c *Client) conn() dialect.ExecQuerier  { return c.drv }
func (c *Client) cacheClient() *Client       { return c }

// typeFor returns the entity struct type of T.
func typeFor[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// describe resolves the descriptor of T through the scope's registry.
func describe[T any](q Querier) (*schema.Descriptor, error) {
	return q.registry().Describe(typeFor[T]())
}

// Find returns the entity of type T with the given primary key, or
// (nil, nil) when no row matches. The entity cache, when configured, is
// consulted first and populated after a miss.
func Find[T any](ctx context.Context, q Querier, key any) (*T, error) {
	d, err := describe[T](q)
	if err != nil {
		return nil, err
	}
	if c := q.cacheClient(); c != nil {
		e := new(T)
		if c.cacheGet(ctx, d, key, e) {
			return e, nil
		}
	}
	query, args, err := sqld.Dialect(q.dialectName()).
		Select(d.ColumnNames()...).
		From(d.Table).
		Where(d.ID.Name, "=", schema.BindKey(d, key)).
		Limit(1).
		Query()
	if err != nil {
		return nil, err
	}
	rows := &sqld.Rows{}
	if err := q.conn().Query(ctx, query, args, rows); err != nil {
		return nil, NewDatabaseError(d.Table, "find", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, NewDatabaseError(d.Table, "find", err)
		}
		return nil, nil
	}
	e := new(T)
	if err := schema.ScanRow(d, rows, e); err != nil {
		return nil, err
	}
	if c := q.cacheClient(); c != nil {
		c.cachePut(ctx, d, key, e)
	}
	return e, nil
}

// FindAll returns every entity of type T.
func FindAll[T any](ctx context.Context, q Querier) ([]*T, error) {
	return Select[T](q).All(ctx)
}

// Insert persists a new entity. Columns flagged as generated keys are
// skipped so the backend assigns them; generated UUID keys are assigned by
// the engine before the statement runs. Backend-assigned integer keys are
// written back into the entity when the driver reports them.
func Insert[T any](ctx context.Context, q Querier, e *T) error {
	d, err := describe[T](q)
	if err != nil {
		return err
	}
	if d.ID.AutoKey && d.ID.Kind == schema.KindUUID {
		kv, err := d.ID.Value(e)
		if err != nil {
			return err
		}
		if kv == uuid.Nil.String() {
			if err := d.ID.SetValue(e, uuid.New()); err != nil {
				return err
			}
		}
	}
	cols := d.InsertColumns()
	vals, err := schema.Values(cols, e)
	if err != nil {
		return err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	query, args, err := sqld.Dialect(q.dialectName()).
		Insert(d.Table).
		Columns(names...).
		Values(vals...).
		Query()
	if err != nil {
		return err
	}
	var res sqld.Result
	if err := q.conn().Exec(ctx, query, args, &res); err != nil {
		return NewDatabaseError(d.Table, "insert", err)
	}
	if d.ID.AutoKey && (d.ID.Kind == schema.KindInt || d.ID.Kind == schema.KindInt64) {
		// Not every backend reports generated keys through the driver;
		// postgres callers read the key back themselves.
		if id, err := res.LastInsertId(); err == nil && id != 0 {
			if err := d.ID.SetValue(e, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Update writes every non-primary-key column of the entity, filtered by
// primary-key equality. At most one row is affected by contract; the
// schema's primary-key uniqueness guarantees it, not the engine. A
// configured entity cache entry for the key is invalidated.
func Update[T any](ctx context.Context, q Querier, e *T) error {
	d, err := describe[T](q)
	if err != nil {
		return err
	}
	key, err := schema.KeyValue(d, e)
	if err != nil {
		return err
	}
	cols := d.UpdateColumns()
	vals, err := schema.Values(cols, e)
	if err != nil {
		return err
	}
	upd := sqld.Dialect(q.dialectName()).Update(d.Table)
	for i, c := range cols {
		upd.Set(c.Name, vals[i])
	}
	query, args, err := upd.Where(d.ID.Name, "=", key).Query()
	if err != nil {
		return err
	}
	if err := q.conn().Exec(ctx, query, args, nil); err != nil {
		return NewDatabaseError(d.Table, "update", err)
	}
	if c := q.cacheClient(); c != nil {
		c.cacheInvalidate(ctx, d, key)
	}
	return nil
}

// Save looks the entity up by primary key and updates it when present,
// inserting it otherwise. The lookup and the write are two round-trips,
// so two concurrent saves of the same new entity can race into two
// inserts; callers needing atomicity must serialize externally.
func Save[T any](ctx context.Context, q Querier, e *T) error {
	d, err := describe[T](q)
	if err != nil {
		return err
	}
	key, err := schema.KeyValue(d, e)
	if err != nil {
		return err
	}
	if d.ID.AutoKey && zeroKey(d, key) {
		return Insert(ctx, q, e)
	}
	query, args, err := sqld.Dialect(q.dialectName()).
		Select().
		Count().
		From(d.Table).
		Where(d.ID.Name, "=", key).
		Query()
	if err != nil {
		return err
	}
	n, err := scanCount(ctx, q, d, query, args)
	if err != nil {
		return err
	}
	if n > 0 {
		return Update(ctx, q, e)
	}
	return Insert(ctx, q, e)
}

// Delete removes the entity's row and reports whether a row was actually
// removed.
func Delete[T any](ctx context.Context, q Querier, e *T) (bool, error) {
	d, err := describe[T](q)
	if err != nil {
		return false, err
	}
	key, err := schema.KeyValue(d, e)
	if err != nil {
		return false, err
	}
	return deleteByKey[T](ctx, q, d, key)
}

// DeleteByID removes the row with the given primary key and reports
// whether a row was actually removed.
func DeleteByID[T any](ctx context.Context, q Querier, key any) (bool, error) {
	d, err := describe[T](q)
	if err != nil {
		return false, err
	}
	return deleteByKey[T](ctx, q, d, schema.BindKey(d, key))
}

func deleteByKey[T any](ctx context.Context, q Querier, d *schema.Descriptor, key any) (bool, error) {
	query, args, err := sqld.Dialect(q.dialectName()).
		Delete(d.Table).
		Where(d.ID.Name, "=", key).
		Query()
	if err != nil {
		return false, err
	}
	var res sqld.Result
	if err := q.conn().Exec(ctx, query, args, &res); err != nil {
		return false, NewDatabaseError(d.Table, "delete", err)
	}
	if c := q.cacheClient(); c != nil {
		c.cacheInvalidate(ctx, d, key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, NewDatabaseError(d.Table, "delete", err)
	}
	return n > 0, nil
}

// CreateTable creates the entity's table when it does not exist yet,
// deriving column types, constraints and the generated-key strategy from
// the descriptor and the configured dialect.
func CreateTable[T any](ctx context.Context, q Querier) error {
	d, err := describe[T](q)
	if err != nil {
		return err
	}
	defs := make([]sqld.ColumnDef, len(d.Columns))
	for i, c := range d.Columns {
		defs[i] = columnDef(c)
	}
	query, args, err := sqld.Dialect(q.dialectName()).
		CreateTable(d.Table).
		IfNotExists().
		Columns(defs...).
		Query()
	if err != nil {
		return err
	}
	if err := q.conn().Exec(ctx, query, args, nil); err != nil {
		return NewDatabaseError(d.Table, "create table", err)
	}
	return nil
}

// columnDef maps a schema column to its DDL definition.
func columnDef(c *schema.Column) sqld.ColumnDef {
	def := sqld.ColumnDef{
		Name:       c.Name,
		Size:       c.Size,
		Nullable:   c.Nullable,
		Unique:     c.Unique,
		PrimaryKey: c.PrimaryKey,
		Default:    c.Default,
		HasDefault: c.HasDefault,
	}
	switch c.Kind {
	case schema.KindInt:
		def.Type = sqld.TypeInt
	case schema.KindInt64:
		def.Type = sqld.TypeInt64
	case schema.KindFloat64:
		def.Type = sqld.TypeFloat64
	case schema.KindBool:
		def.Type = sqld.TypeBool
	case schema.KindString:
		def.Type = sqld.TypeText
	case schema.KindBytes:
		def.Type = sqld.TypeBlob
	case schema.KindUUID:
		def.Type = sqld.TypeUUID
	case schema.KindTime:
		def.Type = sqld.TypeTime
	}
	// UUID keys are engine-assigned; only integer keys use the backend's
	// generated-key strategy.
	if c.AutoKey && (c.Kind == schema.KindInt || c.Kind == schema.KindInt64) {
		def.AutoIncrement = true
	}
	return def
}

// zeroKey reports whether key is the zero value of the descriptor's
// primary-key kind.
func zeroKey(d *schema.Descriptor, key any) bool {
	switch d.ID.Kind {
	case schema.KindUUID:
		return key == uuid.Nil.String() || key == nil
	case schema.KindString:
		return key == "" || key == nil
	default:
		if key == nil {
			return true
		}
		rv := reflect.ValueOf(key)
		return rv.IsZero()
	}
}

// scanCount runs a COUNT(*) query and returns its value.
func scanCount(ctx context.Context, q Querier, d *schema.Descriptor, query string, args []any) (int64, error) {
	rows := &sqld.Rows{}
	if err := q.conn().Query(ctx, query, args, rows); err != nil {
		return 0, NewDatabaseError(d.Table, "count", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, NewDatabaseError(d.Table, "count", err)
		}
		return 0, nil
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return 0, NewDatabaseError(d.Table, "count", err)
	}
	return n, nil
}
