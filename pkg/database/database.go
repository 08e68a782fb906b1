package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Client holds the database handle and the SQL dialect it speaks
type Client struct {
	DB      *sql.DB
	Dialect string // dialect.Postgres or dialect.SQLite
	dsn     string
}

// PoolConfig holds connection pool configuration
type PoolConfig struct {
	MaxOpenConns    int           // Maximum number of open connections
	MaxIdleConns    int           // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum amount of time a connection may be reused
	ConnMaxIdleTime time.Duration // Maximum amount of time a connection may be idle
}

// SSLConfig holds SSL/TLS configuration for Postgres connections
type SSLConfig struct {
	Mode         string // disable, require, verify-ca, verify-full
	CertPath     string
	KeyPath      string
	RootCertPath string
}

// DefaultPoolConfig returns sensible defaults for connection pooling
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// DetectDialect maps a DATABASE_URL to a driver dialect.
// postgres:// and postgresql:// URLs use lib/pq, everything else is treated as a sqlite3 DSN.
func DetectDialect(databaseURL string) string {
	lower := strings.ToLower(databaseURL)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return dialect.Postgres
	}
	return dialect.SQLite
}

// driverName returns the database/sql driver registered for a dialect
func driverName(d string) string {
	if d == dialect.Postgres {
		return "postgres"
	}
	return "sqlite3"
}

// BuildConnectionString adds SSL parameters to a Postgres connection string.
// SQLite DSNs and a nil config are returned unchanged.
func BuildConnectionString(baseURL string, sslCfg *SSLConfig) (string, error) {
	if sslCfg == nil || DetectDialect(baseURL) != dialect.Postgres {
		return baseURL, nil
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}

	query := parsedURL.Query()

	// Mode overrides any sslmode already in the URL
	if sslCfg.Mode != "" {
		query.Set("sslmode", sslCfg.Mode)
	}
	if sslCfg.CertPath != "" {
		query.Set("sslcert", sslCfg.CertPath)
	}
	if sslCfg.KeyPath != "" {
		query.Set("sslkey", sslCfg.KeyPath)
	}
	if sslCfg.RootCertPath != "" {
		query.Set("sslrootcert", sslCfg.RootCertPath)
	}

	parsedURL.RawQuery = query.Encode()

	return parsedURL.String(), nil
}

// NewClient creates a new database client with connection pooling
func NewClient(databaseURL string) (*Client, error) {
	return NewClientWithPoolAndSSL(databaseURL, DefaultPoolConfig(), nil)
}

// NewClientWithPoolAndSSL creates a new database client with custom pool and SSL configuration.
// Schema changes are not applied here; call Migrate.
func NewClientWithPoolAndSSL(databaseURL string, poolCfg PoolConfig, sslCfg *SSLConfig) (*Client, error) {
	connStr, err := BuildConnectionString(databaseURL, sslCfg)
	if err != nil {
		return nil, fmt.Errorf("failed building connection string: %w", err)
	}

	d := DetectDialect(databaseURL)

	if d == dialect.Postgres && sslCfg != nil && sslCfg.Mode != "" && sslCfg.Mode != "disable" {
		log.Printf("🔒 Database SSL enabled (mode: %s)", sslCfg.Mode)
	}

	db, err := sql.Open(driverName(d), connStr)
	if err != nil {
		return nil, fmt.Errorf("failed opening connection to %s: %w", d, err)
	}

	// SQLite allows a single writer; extra connections only produce "table is locked" errors
	if d == dialect.SQLite {
		poolCfg.MaxOpenConns = 1
		poolCfg.MaxIdleConns = 1
		poolCfg.ConnMaxLifetime = 0
		poolCfg.ConnMaxIdleTime = 0
	}

	db.SetMaxOpenConns(poolCfg.MaxOpenConns)
	db.SetMaxIdleConns(poolCfg.MaxIdleConns)
	db.SetConnMaxLifetime(poolCfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(poolCfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed connecting to %s: %w", d, err)
	}

	log.Printf("✅ Database connected (%s, max_open: %d, max_idle: %d)", d, poolCfg.MaxOpenConns, poolCfg.MaxIdleConns)

	return &Client{DB: db, Dialect: d, dsn: connStr}, nil
}

// SQL returns a statement builder for the client's dialect
func (c *Client) SQL() *entsql.DialectBuilder {
	return entsql.Dialect(c.Dialect)
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.DB.Close()
}

// Ping checks if the database is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Stats returns database connection pool statistics
func (c *Client) Stats() sql.DBStats {
	return c.DB.Stats()
}
