package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/wastelog/internal/waste"
)

//go:embed schema.sql
var entriesTable string

// entryMigrations bring an entry database from user_version i to i+1.
// Append only; a released step is never edited.
var entryMigrations = []string{
	entriesTable,
	`CREATE INDEX IF NOT EXISTS idx_waste_entries_verified ON waste_entries(verified)`,
}

// sqliteParams are applied by the driver on every connection. Transactions
// start IMMEDIATE so Insert's capacity check holds the write lock.
const sqliteParams = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate"

// SQLite stores one row per entry: the canonical encoding in body, plus the
// verified flag so VerifiedValues can use an index.
type SQLite struct {
	db     *sql.DB
	limits Limits
}

// OpenSQLite opens the entry database at path, creating it if needed, and
// migrates it to the latest schema.
func OpenSQLite(path string, limits Limits) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+sqliteParams)
	if err != nil {
		return nil, fmt.Errorf("open entry database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateEntries(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open entry database %s: %w", path, err)
	}
	return &SQLite{db: db, limits: limits}, nil
}

// migrateEntries runs every pending step and records the new version in one
// transaction. A database written by a newer build is refused.
func migrateEntries(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	latest := len(entryMigrations)
	if version > latest {
		return fmt.Errorf("schema version %d is newer than supported version %d", version, latest)
	}
	if version == latest {
		return nil
	}

	for v := version; v < latest; v++ {
		if _, err := tx.ExecContext(ctx, entryMigrations[v]); err != nil {
			return fmt.Errorf("migrate to schema version %d: %w", v+1, err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", latest)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Insert upserts the record at id. The capacity check and the write share
// one transaction.
func (s *SQLite) Insert(ctx context.Context, id string, e waste.Entry) error {
	body, err := s.limits.encode(id, e)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	if s.limits.MaxEntries > 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM waste_entries WHERE id = ?)", id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check existing %s: %w", id, err)
		}
		if !exists {
			var count int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM waste_entries").Scan(&count); err != nil {
				return fmt.Errorf("count entries: %w", err)
			}
			if err := s.limits.admits(count); err != nil {
				return err
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO waste_entries (id, body, verified) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body, verified = excluded.verified
	`, id, string(body), e.Verified)
	if err != nil {
		return fmt.Errorf("insert %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert %s: %w", id, err)
	}
	return nil
}

// Get returns the record at id.
func (s *SQLite) Get(ctx context.Context, id string) (waste.Entry, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM waste_entries WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return waste.Entry{}, false, nil
	}
	if err != nil {
		return waste.Entry{}, false, fmt.Errorf("get %s: %w", id, err)
	}
	e, err := decode([]byte(body))
	if err != nil {
		return waste.Entry{}, false, fmt.Errorf("get %s: %w", id, err)
	}
	return e, true, nil
}

// Remove deletes the record at id and returns the prior value.
func (s *SQLite) Remove(ctx context.Context, id string) (waste.Entry, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return waste.Entry{}, false, fmt.Errorf("begin remove: %w", err)
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx, "SELECT body FROM waste_entries WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return waste.Entry{}, false, nil
	}
	if err != nil {
		return waste.Entry{}, false, fmt.Errorf("remove %s: %w", id, err)
	}
	prior, err := decode([]byte(body))
	if err != nil {
		return waste.Entry{}, false, fmt.Errorf("remove %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM waste_entries WHERE id = ?", id); err != nil {
		return waste.Entry{}, false, fmt.Errorf("remove %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return waste.Entry{}, false, fmt.Errorf("commit remove %s: %w", id, err)
	}
	return prior, true, nil
}

// Values returns every record in insertion order.
func (s *SQLite) Values(ctx context.Context) ([]waste.Entry, error) {
	return s.query(ctx, "SELECT body FROM waste_entries ORDER BY seq ASC")
}

// VerifiedValues returns verified records in insertion order.
func (s *SQLite) VerifiedValues(ctx context.Context) ([]waste.Entry, error) {
	return s.query(ctx, "SELECT body FROM waste_entries WHERE verified = 1 ORDER BY seq ASC")
}

func (s *SQLite) query(ctx context.Context, q string) ([]waste.Entry, error) {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	out := make([]waste.Entry, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e, err := decode([]byte(body))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}
