// Package sqlite is an embedded Entity Store. It keeps the postgres schema
// semantics, including the one-accepted-proposal index, on a single
// connection so transactions serialize.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"marketplace/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id           TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    created_at   DATETIME NOT NULL,
    updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
    id             TEXT PRIMARY KEY,
    client_id      TEXT NOT NULL,
    title          TEXT NOT NULL,
    description    TEXT NOT NULL,
    category       TEXT NOT NULL,
    budget         REAL NOT NULL CHECK (budget > 0),
    deadline       DATETIME NOT NULL,
    status         TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'in_progress', 'completed', 'cancelled')),
    proposal_count INTEGER NOT NULL DEFAULT 0 CHECK (proposal_count >= 0),
    created_at     DATETIME NOT NULL,
    updated_at     DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_status_created_idx ON jobs (status, created_at DESC, id);
CREATE INDEX IF NOT EXISTS jobs_client_created_idx ON jobs (client_id, created_at DESC, id);

CREATE TABLE IF NOT EXISTS proposals (
    id            TEXT PRIMARY KEY,
    job_id        TEXT NOT NULL REFERENCES jobs (id) ON DELETE RESTRICT,
    freelancer_id TEXT NOT NULL,
    price         REAL NOT NULL CHECK (price > 0),
    duration_days INTEGER NOT NULL CHECK (duration_days > 0),
    cover_letter  TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected', 'withdrawn')),
    created_at    DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS proposals_job_created_idx ON proposals (job_id, created_at DESC, id);
CREATE INDEX IF NOT EXISTS proposals_freelancer_created_idx ON proposals (freelancer_id, created_at DESC, id);
CREATE UNIQUE INDEX IF NOT EXISTS proposals_one_accepted_per_job ON proposals (job_id) WHERE status = 'accepted';

CREATE TABLE IF NOT EXISTS conversations (
    id              TEXT PRIMARY KEY,
    client_id       TEXT NOT NULL,
    freelancer_id   TEXT NOT NULL,
    client_name     TEXT NOT NULL,
    freelancer_name TEXT NOT NULL,
    created_at      DATETIME NOT NULL,
    UNIQUE (client_id, freelancer_id)
);
`

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// New opens the database at path, creating its directory and the schema if needed.
func New(path string) (*Repository, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite.New: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite.New: could not init schema: %w", errors.Join(err, db.Close()))
	}

	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

//// Users

func (r *Repository) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	now := r.now()
	query := `
	INSERT INTO users (id, display_name, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name, updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, user.Id, user.DisplayName, now, now)
	if err != nil {
		return user, fmt.Errorf("sqlite.Repository.UpsertUser: %w", err)
	}

	stored, _, err := r.UserByUUID(ctx, user.Id)
	if err != nil {
		return user, fmt.Errorf("sqlite.Repository.UpsertUser: %w", err)
	}
	return stored, nil
}

func (r *Repository) UserByUUID(ctx context.Context, id string) (models.User, bool, error) {
	var user models.User
	row := r.db.QueryRowContext(ctx, `SELECT id, display_name, created_at, updated_at FROM users WHERE id = ?`, id)
	err := row.Scan(&user.Id, &user.DisplayName, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user, false, nil
	} else if err != nil {
		return user, false, fmt.Errorf("sqlite.Repository.UserByUUID: %w", err)
	}
	return user, true, nil
}

//// Helpers

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func wrapRollbackErr(tx *sql.Tx, err error) error {
	rollerr := tx.Rollback()
	if rollerr == nil {
		return err
	}
	return fmt.Errorf("failed to rollback transaction after previous error: %w, %w", rollerr, err)
}

// where joins equality conditions into a WHERE clause.
func where(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conditions, " AND ")
}

func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func isUniqueViolation(err error) bool {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	code := sqlErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		(code == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqlErr.Error(), "UNIQUE"))
}

func exists(ctx context.Context, q queryer, query string, args ...any) (bool, error) {
	var ok bool
	err := q.QueryRowContext(ctx, "SELECT EXISTS ("+query+")", args...).Scan(&ok)
	return ok, err
}
