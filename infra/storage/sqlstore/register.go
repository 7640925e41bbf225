package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/store"
)

// Config configures a SQL backend.
type Config struct {
	// DSN is the file path for sqlite or the connection URL for postgres.
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// Open opens the database for d, verifies the connection and ensures the schema.
func Open(ctx context.Context, d Dialect, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%s: dsn is required", d.Name)
	}
	db, err := sql.Open(d.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.Name, err)
	}
	switch {
	case d.Name == SQLite.Name:
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	default:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verify %s connection: %w", d.Name, err)
	}
	s, err := New(ctx, db, d)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func backend(d Dialect) factory.Factory[store.Store] {
	return func(conf map[string]any) (store.Store, error) {
		var cfg Config
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return Open(ctx, d, cfg)
	}
}

func init() {
	if err := store.RegisterBackend(SQLite.Name, backend(SQLite)); err != nil {
		panic(err)
	}
	if err := store.RegisterBackend(Postgres.Name, backend(Postgres)); err != nil {
		panic(err)
	}
}
