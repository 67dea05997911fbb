package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Rebind rewrites ? placeholders into $1..$n for postgres.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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

// OpenDB opens the database for the given driver and applies the schema.
func OpenDB(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	dialect := Dialect(driver)
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	if dialect == DialectSQLite {
		// one connection keeps :memory: databases shared and serialises writers
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, "", fmt.Errorf("enabling foreign keys: %w", err)
		}
		if dsn != ":memory:" {
			if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
				db.Close()
				return nil, "", fmt.Errorf("setting WAL mode: %w", err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("ping database: %w", err)
	}
	if err := Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("running migrations: %w", err)
	}
	return db, dialect, nil
}

// Migrate creates the tables and indexes if they are missing and adds columns
// introduced after the first release to existing tables.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	tables, indexes := sqliteTables, sqliteIndexes
	if dialect == DialectPostgres {
		tables, indexes = postgresTables, postgresIndexes
	}
	for _, stmt := range tables {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	for _, col := range addedColumns {
		if err := addColumn(ctx, db, dialect, col); err != nil {
			return fmt.Errorf("add column %s.%s: %w", col.table, col.name, err)
		}
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

type column struct {
	table, name, def string
}

// addedColumns are created by ALTER TABLE on databases made before they existed.
var addedColumns = []column{
	{"tasks", "estimated_duration", "INTEGER NOT NULL DEFAULT 30"},
	{"tasks", "motivational_context", "TEXT NOT NULL DEFAULT ''"},
	{"reminders", "reminder_type", "TEXT NOT NULL DEFAULT 'STANDARD'"},
	{"reminders", "priority_level", "TEXT NOT NULL DEFAULT 'medium'"},
}

func addColumn(ctx context.Context, db *sql.DB, dialect Dialect, col column) error {
	if dialect == DialectPostgres {
		_, err := db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", col.table, col.name, col.def))
		return err
	}
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, col.table, col.name).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.table, col.name, col.def))
	return err
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var sqliteTables = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL,
		task_description TEXT NOT NULL,
		base_time TIMESTAMP NOT NULL,
		urgency_level TEXT NOT NULL DEFAULT 'MEDIUM',
		task_category TEXT NOT NULL DEFAULT 'GENERAL',
		estimated_duration INTEGER NOT NULL DEFAULT 30,
		motivational_context TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reminders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		job_id TEXT NOT NULL UNIQUE,
		remind_at TIMESTAMP NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		reminder_type TEXT NOT NULL DEFAULT 'STANDARD',
		priority_level TEXT NOT NULL DEFAULT 'medium',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL,
		sent_at TIMESTAMP NULL
	)`,
}

var sqliteIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_tasks_chat_id ON tasks(chat_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_urgency ON tasks(urgency_level)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(task_category)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_status ON reminders(status)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_task_id ON reminders(task_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_type ON reminders(reminder_type)`,
}

var postgresTables = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		chat_id BIGINT NOT NULL,
		task_description TEXT NOT NULL,
		base_time TIMESTAMPTZ NOT NULL,
		urgency_level TEXT NOT NULL DEFAULT 'MEDIUM',
		task_category TEXT NOT NULL DEFAULT 'GENERAL',
		estimated_duration INTEGER NOT NULL DEFAULT 30,
		motivational_context TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reminders (
		id BIGSERIAL PRIMARY KEY,
		task_id BIGINT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		job_id TEXT NOT NULL UNIQUE,
		remind_at TIMESTAMPTZ NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		reminder_type TEXT NOT NULL DEFAULT 'STANDARD',
		priority_level TEXT NOT NULL DEFAULT 'medium',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL,
		sent_at TIMESTAMPTZ NULL
	)`,
}

var postgresIndexes = sqliteIndexes
