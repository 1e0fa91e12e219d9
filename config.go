package stratum

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/syssam/stratum/dialect"
	sqld "github.com/syssam/stratum/dialect/sql"
)

// PoolConfig bounds the connection pool. Zero values keep the
// database/sql defaults.
type PoolConfig struct {
	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int `yaml:"max_open_conns"`
	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int `yaml:"max_idle_conns"`
	// ConnMaxLifetime is the maximum amount of time a connection may be
	// reused.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	// ConnMaxIdleTime is the maximum amount of time a connection may be
	// idle.
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// Config is the connection configuration, consumed once when the client is
// opened. Statements run in autocommit mode unless executed inside a
// transaction.
type Config struct {
	// Driver is the backend kind: dialect.MySQL, dialect.Postgres or
	// dialect.SQLite.
	Driver string `yaml:"driver"`

	// URL, when set, is used verbatim (postgres URLs are translated with
	// pq.ParseURL) and the host/credential fields below are ignored.
	URL string `yaml:"url"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// Path is the database file for SQLite (":memory:" is accepted).
	Path string `yaml:"path"`

	// Params are driver-specific DSN options passed through untouched.
	Params map[string]string `yaml:"params"`

	// ConnTimeout bounds connection establishment.
	ConnTimeout time.Duration `yaml:"conn_timeout"`

	Pool PoolConfig `yaml:"pool"`
}

// LoadConfig reads a YAML connection configuration from path.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stratum: read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("stratum: parse config: %w", err)
	}
	return cfg, nil
}

// pqEscaper escapes conninfo values the way pq.ParseURL does, so a
// password or parameter holding a space, quote or backslash survives the
// key/value form intact.
var pqEscaper = strings.NewReplacer(` `, `\ `, `'`, `\'`, `\`, `\\`)

// DSN assembles the driver-specific data source name.
func (c *Config) DSN() (string, error) {
	switch c.Driver {
	case dialect.MySQL:
		if c.URL != "" {
			return c.URL, nil
		}
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = c.Host
		if c.Port != 0 {
			mc.Addr = c.Host + ":" + strconv.Itoa(c.Port)
		}
		mc.DBName = c.Database
		mc.Timeout = c.ConnTimeout
		mc.ParseTime = true
		if len(c.Params) > 0 {
			mc.Params = make(map[string]string, len(c.Params))
			for k, v := range c.Params {
				mc.Params[k] = v
			}
		}
		return mc.FormatDSN(), nil
	case dialect.Postgres:
		if c.URL != "" {
			return pq.ParseURL(c.URL)
		}
		kv := fmt.Sprintf("host=%s dbname=%s", pqEscaper.Replace(c.Host), pqEscaper.Replace(c.Database))
		if c.Port != 0 {
			kv += fmt.Sprintf(" port=%d", c.Port)
		}
		if c.User != "" {
			kv += " user=" + pqEscaper.Replace(c.User)
		}
		if c.Password != "" {
			kv += " password=" + pqEscaper.Replace(c.Password)
		}
		if c.ConnTimeout > 0 {
			kv += fmt.Sprintf(" connect_timeout=%d", int(c.ConnTimeout.Seconds()))
		}
		for k, v := range c.Params {
			kv += fmt.Sprintf(" %s=%s", k, pqEscaper.Replace(v))
		}
		return kv, nil
	case dialect.SQLite:
		path := c.Path
		if path == "" {
			path = c.Database
		}
		if path == "" {
			return "", fmt.Errorf("stratum: sqlite requires a database path")
		}
		if len(c.Params) > 0 {
			q := url.Values{}
			for k, v := range c.Params {
				q.Set(k, v)
			}
			path += "?" + q.Encode()
		}
		return path, nil
	}
	return "", fmt.Errorf("stratum: unsupported driver %q", c.Driver)
}

// Open connects to the configured backend and returns a Client with pool
// limits applied.
func Open(cfg *Config, opts ...Option) (*Client, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	drv, err := sqld.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}
	db := drv.DB()
	if cfg.Pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	}
	if cfg.Pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.Pool.ConnMaxIdleTime)
	}
	return NewClient(drv, opts...), nil
}
