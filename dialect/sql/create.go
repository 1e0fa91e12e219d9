package sql

import (
	"fmt"
	"strconv"

	"github.com/syssam/stratum/dialect"
)

// ColumnType is the abstract storage type of a column, mapped to a
// concrete SQL type per dialect at build time.
type ColumnType int

// Column types supported by the DDL builder.
const (
	TypeInvalid ColumnType = iota
	TypeInt
	TypeInt64
	TypeFloat64
	TypeBool
	TypeText
	TypeBlob
	TypeUUID
	TypeTime
)

// ColumnDef describes one column of a CREATE TABLE statement.
type ColumnDef struct {
	Name          string
	Type          ColumnType
	Size          int // for text types; 0 means unbounded
	Nullable      bool
	Unique        bool
	PrimaryKey    bool
	AutoIncrement bool   // backend-assigned generated key
	Default       string // literal default value; empty means none
	HasDefault    bool
}

// CreateTableBuilder builds a CREATE TABLE statement from column
// definitions, applying a generated-key strategy appropriate to the
// dialect.
type CreateTableBuilder struct {
	Builder
	table       string
	ifNotExists bool
	columns     []ColumnDef
}

// IfNotExists makes the statement idempotent.
func (b *CreateTableBuilder) IfNotExists() *CreateTableBuilder {
	b.ifNotExists = true
	return b
}

// Columns appends column definitions in declaration order.
func (b *CreateTableBuilder) Columns(columns ...ColumnDef) *CreateTableBuilder {
	b.columns = append(b.columns, columns...)
	return b
}

// Query returns the CREATE TABLE statement. DDL carries no bound
// arguments; default values are validated or escaped before rendering.
func (b *CreateTableBuilder) Query() (string, []any, error) {
	if len(b.columns) == 0 {
		b.setError(fmt.Errorf("dialect/sql: create table %q: no columns", b.table))
		return b.query()
	}
	b.writeString("CREATE TABLE ")
	if b.ifNotExists {
		b.writeString("IF NOT EXISTS ")
	}
	b.writeIdent(b.table)
	b.writeString(" (")
	var pk string
	inlinePK := false
	for i, c := range b.columns {
		if i > 0 {
			b.writeString(", ")
		}
		b.column(c)
		if c.PrimaryKey {
			pk = c.Name
			// SQLite requires the generated-key clause inline on the
			// primary-key column itself.
			if b.dialect == dialect.SQLite && c.AutoIncrement {
				inlinePK = true
			}
		}
	}
	if pk != "" && !inlinePK {
		b.writeString(", PRIMARY KEY (")
		b.writeIdent(pk)
		b.writeString(")")
	}
	b.writeString(")")
	return b.query()
}

// column renders one column definition.
func (b *CreateTableBuilder) column(c ColumnDef) {
	b.writeIdent(c.Name)
	typ, err := columnSQLType(b.dialect, c)
	if err != nil {
		b.setError(err)
		return
	}
	b.writeString(" " + typ)
	if b.dialect == dialect.SQLite && c.PrimaryKey && c.AutoIncrement {
		b.writeString(" PRIMARY KEY AUTOINCREMENT")
		return
	}
	if !c.Nullable {
		b.writeString(" NOT NULL")
	}
	if c.Unique && !c.PrimaryKey {
		b.writeString(" UNIQUE")
	}
	if c.HasDefault {
		lit, err := defaultLiteral(c)
		if err != nil {
			b.setError(err)
			return
		}
		b.writeString(" DEFAULT " + lit)
	}
	if b.dialect == dialect.MySQL && c.AutoIncrement {
		b.writeString(" AUTO_INCREMENT")
	}
}

// columnSQLType maps an abstract column type to the dialect's SQL type.
func columnSQLType(d string, c ColumnDef) (string, error) {
	switch c.Type {
	case TypeInt:
		if d == dialect.Postgres && c.AutoIncrement {
			return "SERIAL", nil
		}
		if d == dialect.SQLite {
			return "INTEGER", nil
		}
		return "INT", nil
	case TypeInt64:
		if d == dialect.Postgres && c.AutoIncrement {
			return "BIGSERIAL", nil
		}
		if d == dialect.SQLite {
			return "INTEGER", nil
		}
		return "BIGINT", nil
	case TypeFloat64:
		switch d {
		case dialect.Postgres:
			return "DOUBLE PRECISION", nil
		case dialect.SQLite:
			return "REAL", nil
		default:
			return "DOUBLE", nil
		}
	case TypeBool:
		return "BOOLEAN", nil
	case TypeText:
		if c.Size > 0 {
			return "VARCHAR(" + strconv.Itoa(c.Size) + ")", nil
		}
		return "TEXT", nil
	case TypeBlob:
		if d == dialect.Postgres {
			return "BYTEA", nil
		}
		return "BLOB", nil
	case TypeUUID:
		// Stored as 36-character text on every backend; the mapper
		// converts it to a structured UUID value.
		return "CHAR(36)", nil
	case TypeTime:
		if d == dialect.Postgres {
			return "TIMESTAMP WITH TIME ZONE", nil
		}
		return "TIMESTAMP", nil
	}
	return "", fmt.Errorf("dialect/sql: unsupported column type %d for column %q", c.Type, c.Name)
}

// defaultLiteral renders a column default. Numeric and boolean defaults
// must parse; text defaults are escaped and quoted.
func defaultLiteral(c ColumnDef) (string, error) {
	switch c.Type {
	case TypeInt, TypeInt64:
		if _, err := strconv.ParseInt(c.Default, 10, 64); err != nil {
			return "", fmt.Errorf("dialect/sql: invalid integer default %q for column %q", c.Default, c.Name)
		}
		return c.Default, nil
	case TypeFloat64:
		if _, err := strconv.ParseFloat(c.Default, 64); err != nil {
			return "", fmt.Errorf("dialect/sql: invalid float default %q for column %q", c.Default, c.Name)
		}
		return c.Default, nil
	case TypeBool:
		v, err := strconv.ParseBool(c.Default)
		if err != nil {
			return "", fmt.Errorf("dialect/sql: invalid boolean default %q for column %q", c.Default, c.Name)
		}
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case TypeText, TypeUUID:
		return "'" + escapeStringValue(c.Default) + "'", nil
	}
	return "", fmt.Errorf("dialect/sql: default value not supported for column %q", c.Name)
}
