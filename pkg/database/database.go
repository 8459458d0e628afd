package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// DB is the run history store. Runs only append to it.
type DB struct {
	*sql.DB
}

type Config struct {
	Host           string
	Port           int
	Name           string
	User           string
	Password       string
	MaxConnections int
	SSLMode        string
	PingTimeout    time.Duration
}

// DSN renders the config as a postgres URL. Credentials are escaped.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

func Open(ctx context.Context, cfg Config) (*DB, error) {
	connector, err := pq.NewConnector(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	db := sql.OpenDB(connector)

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 2
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingTimeout := cfg.PingTimeout
	if pingTimeout == 0 {
		pingTimeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{DB: db}, nil
}

// Ready reports whether every history table exists.
func (db *DB) Ready(ctx context.Context) (bool, error) {
	var missing int
	err := db.QueryRowContext(ctx, `
		SELECT count(*) FROM unnest($1::text[]) AS t(name)
		WHERE to_regclass(t.name) IS NULL`,
		pq.Array(historyTables),
	).Scan(&missing)
	if err != nil {
		return false, fmt.Errorf("failed to inspect history tables: %w", err)
	}
	return missing == 0, nil
}

var historyTables = []string{"scaling_steps", "runs"}

// inTx runs fn inside a transaction, rolling back when fn fails.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
