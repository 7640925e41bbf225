package sqlstore

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	Name     string
	Driver   string
	schema   []string
	txOpts   *sql.TxOptions
	numbered bool
	isUnique func(error) bool
}

// SQLite targets modernc.org/sqlite.
var SQLite = Dialect{
	Name:   "sqlite",
	Driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS drivers (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL,
            shift_hours REAL NOT NULL DEFAULT 0,
            past_week_hours TEXT NOT NULL DEFAULT '[]',
            created_at INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS routes (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            route_id INTEGER NOT NULL UNIQUE,
            distance_km REAL NOT NULL,
            traffic_level TEXT NOT NULL,
            base_time_min REAL NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            order_id TEXT NOT NULL UNIQUE,
            value_rs REAL NOT NULL,
            route_id INTEGER,
            delivery_time INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS simulation_results (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL UNIQUE,
            created_at INTEGER NOT NULL,
            payload TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS managers (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            created_at INTEGER NOT NULL
        )`,
	},
	isUnique: func(err error) bool {
		return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
}

// Postgres targets PostgreSQL through the pgx stdlib driver.
var Postgres = Dialect{
	Name:   "postgres",
	Driver: "pgx",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS drivers (
            seq BIGSERIAL PRIMARY KEY,
            id TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL,
            shift_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
            past_week_hours TEXT NOT NULL DEFAULT '[]',
            created_at BIGINT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS routes (
            seq BIGSERIAL PRIMARY KEY,
            route_id BIGINT NOT NULL UNIQUE,
            distance_km DOUBLE PRECISION NOT NULL,
            traffic_level TEXT NOT NULL,
            base_time_min DOUBLE PRECISION NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            seq BIGSERIAL PRIMARY KEY,
            order_id TEXT NOT NULL UNIQUE,
            value_rs DOUBLE PRECISION NOT NULL,
            route_id BIGINT,
            delivery_time INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS simulation_results (
            seq BIGSERIAL PRIMARY KEY,
            id TEXT NOT NULL UNIQUE,
            created_at BIGINT NOT NULL,
            payload TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS managers (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            created_at BIGINT NOT NULL
        )`,
	},
	txOpts:   &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
	numbered: true,
	isUnique: func(err error) bool {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == "23505"
	},
}

// rebind rewrites ? placeholders for engines using numbered parameters.
func (d Dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
