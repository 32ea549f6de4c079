package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ParseDriver maps common aliases to a supported driver.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "pg", "pgx", "postgresql":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", s)
	}
}

// Open opens a DB, tunes the pool and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:hackmath.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/hackmath?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	tunePool(driver, db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	if driver == DriverSQLite {
		if err := applySQLitePragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// tunePool keeps SQLite on a single connection (one writer, and an
// in-memory database lives as long as its connection).
func tunePool(driver Driver, db *sql.DB) {
	switch driver {
	case DriverSQLite:
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	default:
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(45 * time.Minute)
		db.SetConnMaxIdleTime(15 * time.Minute)
	}
}

func applySQLitePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("db: sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	// Some drivers reject multi-statement scripts; fall back to one
	// statement at a time (enough for plain DDL).
	if _, err := db.ExecContext(ctx, schema); err == nil {
		return nil
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db: schema failed at %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  is_admin INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_profiles (
  user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  role TEXT NOT NULL DEFAULT 'student'
);

CREATE TABLE IF NOT EXISTS themes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS subthemes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  theme_id INTEGER NOT NULL REFERENCES themes(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS subthemes_theme_idx ON subthemes(theme_id);

CREATE TABLE IF NOT EXISTS articles (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  text TEXT NOT NULL,
  subtheme_id INTEGER NOT NULL REFERENCES subthemes(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS articles_subtheme_idx ON articles(subtheme_id);

CREATE TABLE IF NOT EXISTS tests (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  question TEXT NOT NULL,
  subtheme_id INTEGER NOT NULL REFERENCES subthemes(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS tests_subtheme_idx ON tests(subtheme_id);

CREATE TABLE IF NOT EXISTS test_questions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  text TEXT NOT NULL,
  test_id INTEGER NOT NULL REFERENCES tests(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS test_questions_test_idx ON test_questions(test_id);

CREATE TABLE IF NOT EXISTS test_answer_variants (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  text TEXT NOT NULL,
  question_id INTEGER NOT NULL REFERENCES test_questions(id) ON DELETE CASCADE,
  is_right INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS test_answer_variants_question_idx ON test_answer_variants(question_id);

CREATE TABLE IF NOT EXISTS results (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  test_id INTEGER NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS results_user_idx ON results(user_id);
CREATE INDEX IF NOT EXISTS results_test_idx ON results(test_id);

CREATE TABLE IF NOT EXISTS result_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  result_id INTEGER NOT NULL REFERENCES results(id) ON DELETE CASCADE,
  answer_id INTEGER NOT NULL REFERENCES test_answer_variants(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS result_items_result_idx ON result_items(result_id);
CREATE INDEX IF NOT EXISTS result_items_answer_idx ON result_items(answer_id);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,               -- e.g. ResultSubmitted
  event_key TEXT NOT NULL,         -- natural key: result id
  data TEXT NOT NULL,              -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  is_admin BOOLEAN NOT NULL DEFAULT FALSE,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_profiles (
  user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  role TEXT NOT NULL DEFAULT 'student'
);

CREATE TABLE IF NOT EXISTS themes (
  id BIGSERIAL PRIMARY KEY,
  title VARCHAR(255) NOT NULL
);

CREATE TABLE IF NOT EXISTS subthemes (
  id BIGSERIAL PRIMARY KEY,
  title VARCHAR(255) NOT NULL,
  theme_id BIGINT NOT NULL REFERENCES themes(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS subthemes_theme_idx ON subthemes(theme_id);

CREATE TABLE IF NOT EXISTS articles (
  id BIGSERIAL PRIMARY KEY,
  text TEXT NOT NULL,
  subtheme_id BIGINT NOT NULL REFERENCES subthemes(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS articles_subtheme_idx ON articles(subtheme_id);

CREATE TABLE IF NOT EXISTS tests (
  id BIGSERIAL PRIMARY KEY,
  question VARCHAR(500) NOT NULL,
  subtheme_id BIGINT NOT NULL REFERENCES subthemes(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS tests_subtheme_idx ON tests(subtheme_id);

CREATE TABLE IF NOT EXISTS test_questions (
  id BIGSERIAL PRIMARY KEY,
  text VARCHAR(500) NOT NULL,
  test_id BIGINT NOT NULL REFERENCES tests(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS test_questions_test_idx ON test_questions(test_id);

CREATE TABLE IF NOT EXISTS test_answer_variants (
  id BIGSERIAL PRIMARY KEY,
  text VARCHAR(400) NOT NULL,
  question_id BIGINT NOT NULL REFERENCES test_questions(id) ON DELETE CASCADE,
  is_right BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS test_answer_variants_question_idx ON test_answer_variants(question_id);

CREATE TABLE IF NOT EXISTS results (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  test_id BIGINT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS results_user_idx ON results(user_id);
CREATE INDEX IF NOT EXISTS results_test_idx ON results(test_id);

CREATE TABLE IF NOT EXISTS result_items (
  id BIGSERIAL PRIMARY KEY,
  result_id BIGINT NOT NULL REFERENCES results(id) ON DELETE CASCADE,
  answer_id BIGINT NOT NULL REFERENCES test_answer_variants(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS result_items_result_idx ON result_items(result_id);
CREATE INDEX IF NOT EXISTS result_items_answer_idx ON result_items(answer_id);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  event_key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
