// Package stratum is a reflection-driven ORM for relational databases.
//
// Entity types are plain structs annotated with `orm` tags. The first use
// of a type builds a cached descriptor of its table, columns, and primary
// key; every later operation reuses it.
//
//	type Player struct {
//	    ID    uuid.UUID `orm:"id,pk"`
//	    Name  string    `orm:"name,size=32"`
//	    Level int       `orm:"level"`
//	}
//
// A Client owns one connection pool, and the generic package functions run
// against either a Client or a Tx:
//
//	client, err := stratum.Open(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	p := &Player{Name: "alice", Level: 3}
//	if err := stratum.Insert(ctx, client, p); err != nil {
//	    log.Fatal(err)
//	}
//	found, err := stratum.Find[Player](ctx, client, p.ID)
//
// Fluent queries accumulate sanitized predicates and bind every value as a
// parameter:
//
//	high, err := stratum.Select[Player](client).
//	    Where("level", ">", 10).
//	    OrderBy("name", "ASC").
//	    Limit(20).
//	    All(ctx)
//
// Transactions scope operations to one connection with autocommit off, and
// the batch engine applies bulk mutations in size-bounded chunks. Reads
// through Find may be served by a pluggable entity cache; transactional and
// batch paths always bypass it.
package stratum
