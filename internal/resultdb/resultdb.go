// Package resultdb stores per-player results and progress for the
// Remote Result Service. SQLite serves development and tests; PostgreSQL
// serves production. The dialect is chosen from the DSN.
package resultdb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
	"github.com/roach88/dailies/internal/stats"
)

//go:embed schema.sql
var schemaSQL string

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// DB is the service's storage.
type DB struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// Open connects to dsn and applies the schema. postgres:// and
// postgresql:// DSNs use PostgreSQL; anything else is a SQLite path,
// optionally prefixed with sqlite://.
func Open(dsn string) (*DB, error) {
	driver, source, d := parseDSN(dsn)
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if d == dialectSQLite {
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}
	for _, stmt := range statements(schemaSQL) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return &DB{db: db, dialect: d, now: time.Now}, nil
}

func parseDSN(dsn string) (driver, source string, d dialect) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", dsn, dialectPostgres
	}
	return "sqlite3", strings.TrimPrefix(dsn, "sqlite://"), dialectSQLite
}

// statements splits a schema file into single statements, dropping
// comment lines.
func statements(schema string) []string {
	var lines []string
	for _, line := range strings.Split(schema, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}
	var out []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (d *DB) rebind(query string) string {
	if d.dialect != dialectPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
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

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// RecordResult applies a terminal result to the player's counters. A
// non-empty eventID is an idempotency key: a key already applied for the
// player is acknowledged without touching the counters, and applied is
// false.
func (d *DB) RecordResult(ctx context.Context, userID, eventID string, r game.Result) (applied bool, err error) {
	if err := progress.ValidateResult(r); err != nil {
		return false, game.InputInvalid(r.Kind, "%v", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if eventID != "" {
		res, err := tx.ExecContext(ctx, d.rebind(`
			INSERT INTO applied_events (user_id, event_id, kind, applied_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, event_id) DO NOTHING
		`), userID, eventID, string(r.Kind), d.now().UnixMilli())
		if err != nil {
			return false, fmt.Errorf("record event %s: %w", eventID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("record event %s: %w", eventID, err)
		}
		if n == 0 {
			return false, tx.Commit()
		}
	}

	var delta stats.Counters
	delta.Record(r)
	fields := delta.Fields()
	names := make([]string, 0, len(fields))
	for name, v := range fields {
		if v != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		_, err := tx.ExecContext(ctx, d.rebind(`
			INSERT INTO counters (user_id, kind, name, value) VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, kind, name) DO UPDATE SET value = counters.value + excluded.value
		`), userID, string(r.Kind), name, fields[name])
		if err != nil {
			return false, fmt.Errorf("increment %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit result: %w", err)
	}
	return true, nil
}

// Counters returns the player's tallies for kind.
func (d *DB) Counters(ctx context.Context, userID string, kind game.Kind) (stats.Counters, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(
		`SELECT name, value FROM counters WHERE user_id = ? AND kind = ?`), userID, string(kind))
	if err != nil {
		return stats.Counters{}, fmt.Errorf("query counters: %w", err)
	}
	defer rows.Close()

	fields := map[string]int{}
	for rows.Next() {
		var (
			name  string
			value int64
		)
		if err := rows.Scan(&name, &value); err != nil {
			return stats.Counters{}, fmt.Errorf("scan counter: %w", err)
		}
		fields[name] = int(value)
	}
	if err := rows.Err(); err != nil {
		return stats.Counters{}, fmt.Errorf("query counters: %w", err)
	}
	return stats.FromFields(fields), nil
}

// SaveProgress stores snap for the player unless a snapshot with a later
// updatedAt is already stored for the same date.
func (d *DB) SaveProgress(ctx context.Context, userID string, snap progress.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return game.InputInvalid(snap.Game(), "%v", err)
	}
	doc, err := progress.Encode(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO progress (user_id, kind, date, doc, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, kind, date) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
		WHERE progress.updated_at <= excluded.updated_at
	`), userID, string(snap.Game()), snap.Day(), string(doc), snap.Stamp())
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// Progress returns the player's snapshot for kind and date.
func (d *DB) Progress(ctx context.Context, userID string, kind game.Kind, date string) (progress.Snapshot, bool, error) {
	var doc string
	err := d.db.QueryRowContext(ctx, d.rebind(
		`SELECT doc FROM progress WHERE user_id = ? AND kind = ? AND date = ?`),
		userID, string(kind), date).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load progress: %w", err)
	}
	snap, err := progress.Decode(kind, []byte(doc))
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}
