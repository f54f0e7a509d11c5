package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mixoploidy8031/suprsafe/internal/database/migrations"
	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements suprsafe.Store using SQLite. The lockout
// counter and lock flag live here so a process restart cannot reset a
// directory's failed-attempt count.
type SQLiteStore struct {
	db    *sql.DB
	clock suprsafe.Clock
	idgen suprsafe.IDGenerator
	path  string
}

var _ suprsafe.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and migrates) a SQLite store.
// path can be a file path or ":memory:" for an in-memory store.
// clock and idgen may be nil, in which case real implementations are used.
func NewSQLiteStore(path string, clock suprsafe.Clock, idgen suprsafe.IDGenerator) (*SQLiteStore, error) {
	if clock == nil {
		clock = suprsafe.RealClock{}
	}
	if idgen == nil {
		idgen = suprsafe.UUIDGenerator{}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating store schema: %w", err)
	}
	// MigrateUp reports nothing to do for a dirty schema or one written
	// by a newer binary; verify the version explicitly.
	if err := migrations.CheckStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying store schema: %w", err)
	}

	return &SQLiteStore{
		db:    db,
		clock: clock,
		idgen: idgen,
		path:  path,
	}, nil
}

// OpenConnection opens and configures a SQLite database connection with
// appropriate PRAGMAs. Exported for tests that need a raw connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// RegisterDirectory finds or creates the record for a protected directory.
func (s *SQLiteStore) RegisterDirectory(path string) (*suprsafe.Directory, error) {
	existing, err := s.FindDirectoryByPath(path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	d := &suprsafe.Directory{
		ID:        s.idgen.New(),
		Path:      path,
		CreatedAt: s.clock.Now().UTC(),
	}
	_, err = s.db.Exec(
		"INSERT INTO directories (id, path, created_at) VALUES (?, ?, ?)",
		d.ID, d.Path, d.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating directory record: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO attempts (directory_id, count, locked, updated_at) VALUES (?, 0, 0, ?)",
		d.ID, d.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating attempt record: %w", err)
	}

	return d, nil
}

// FindDirectoryByPath returns the record for a path, or nil if unknown.
func (s *SQLiteStore) FindDirectoryByPath(path string) (*suprsafe.Directory, error) {
	row := s.db.QueryRow("SELECT id, path, created_at FROM directories WHERE path = ?", path)

	var d suprsafe.Directory
	if err := row.Scan(&d.ID, &d.Path, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding directory by path: %w", err)
	}
	return &d, nil
}

// Attempts returns the consecutive failed-attempt count for a directory.
func (s *SQLiteStore) Attempts(directoryID string) (int, error) {
	row := s.db.QueryRow("SELECT count FROM attempts WHERE directory_id = ?", directoryID)

	var count int
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading attempt count: %w", err)
	}
	return count, nil
}

// IncrementAttempts adds one failed attempt and returns the new count.
func (s *SQLiteStore) IncrementAttempts(directoryID string) (int, error) {
	_, err := s.db.Exec(
		"UPDATE attempts SET count = count + 1, updated_at = ? WHERE directory_id = ?",
		s.clock.Now().UTC(), directoryID,
	)
	if err != nil {
		return 0, fmt.Errorf("incrementing attempt count: %w", err)
	}
	return s.Attempts(directoryID)
}

// ResetAttempts zeroes the counter after a successful authentication.
func (s *SQLiteStore) ResetAttempts(directoryID string) error {
	_, err := s.db.Exec(
		"UPDATE attempts SET count = 0, updated_at = ? WHERE directory_id = ?",
		s.clock.Now().UTC(), directoryID,
	)
	if err != nil {
		return fmt.Errorf("resetting attempt count: %w", err)
	}
	return nil
}

// MarkLocked records that the directory's ciphertext has been wiped.
func (s *SQLiteStore) MarkLocked(directoryID string) error {
	_, err := s.db.Exec(
		"UPDATE attempts SET locked = 1, updated_at = ? WHERE directory_id = ?",
		s.clock.Now().UTC(), directoryID,
	)
	if err != nil {
		return fmt.Errorf("marking directory locked: %w", err)
	}
	return nil
}

// IsLocked reports whether the directory has been wiped.
func (s *SQLiteStore) IsLocked(directoryID string) (bool, error) {
	row := s.db.QueryRow("SELECT locked FROM attempts WHERE directory_id = ?", directoryID)

	var locked int
	if err := row.Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("reading lock state: %w", err)
	}
	return locked != 0, nil
}

// CreateOperation records the start of an encrypt/decrypt/wipe run.
func (s *SQLiteStore) CreateOperation(directoryID, operation string) (*suprsafe.Operation, error) {
	startedAt := s.clock.Now().UTC()
	res, err := s.db.Exec(
		"INSERT INTO operations (directory_id, operation, status, started_at) VALUES (?, ?, 'running', ?)",
		directoryID, operation, startedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}

	return &suprsafe.Operation{
		ID:          id,
		DirectoryID: directoryID,
		Operation:   operation,
		Status:      "running",
		StartedAt:   startedAt,
	}, nil
}

// FinishOperation records the outcome of a run.
func (s *SQLiteStore) FinishOperation(id int64, status string) error {
	_, err := s.db.Exec(
		"UPDATE operations SET status = ?, finished_at = ? WHERE id = ?",
		status, s.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation record: %w", err)
	}
	return nil
}

// ListOperations returns the most recent operations, newest first.
func (s *SQLiteStore) ListOperations(limit int) ([]*suprsafe.Operation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		"SELECT id, directory_id, operation, status, started_at, finished_at FROM operations ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*suprsafe.Operation
	for rows.Next() {
		var op suprsafe.Operation
		var finishedAt sql.NullTime
		if err := rows.Scan(&op.ID, &op.DirectoryID, &op.Operation, &op.Status, &op.StartedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning operation row: %w", err)
		}
		if finishedAt.Valid {
			op.FinishedAt = finishedAt.Time
			op.Finished = true
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating operation rows: %w", err)
	}

	return ops, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
