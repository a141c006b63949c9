package audit

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mediapack/internal/failure"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes.
const schemaVersion = 1

// UnknownSubject is stored when a record carries no subject label.
const UnknownSubject = "(unknown)"

// timestampLayout keeps stored timestamps sortable as text.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Record is one issued hash.
type Record struct {
	ID        int64
	HashValue string
	Subject   string
	Timestamp time.Time
}

// Filter narrows List. Zero values match everything; Limit 0 means no limit.
type Filter struct {
	Subject string
	Hash    string
	Limit   int
}

// Store persists audit records in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the audit database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, failure.Wrap(failure.ErrConfiguration, "audit", "open", "database path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, failure.Wrap(failure.ErrIO, "audit", "open", "create database directory", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, failure.Wrap(failure.ErrIO, "audit", "open", "open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, failure.Wrap(failure.ErrIO, "audit", "open", fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (move %s aside to start fresh)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Insert stores rec and returns its row id.
func (s *Store) Insert(ctx context.Context, rec Record) (int64, error) {
	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, insertHashSQL, rowArgs(rec)...)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, failure.Wrap(failure.ErrIO, "audit", "insert", "", err)
	}
	return id, nil
}

// InsertBatch stores recs in one transaction; either every row is written or
// none is.
func (s *Store) InsertBatch(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		stmt, err := tx.PrepareContext(ctx, insertHashSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, rec := range recs {
			if _, err := stmt.ExecContext(ctx, rowArgs(rec)...); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return failure.Wrap(failure.ErrIO, "audit", "insert", fmt.Sprintf("batch of %d", len(recs)), err)
	}
	return nil
}

const insertHashSQL = "INSERT INTO hash_info (hash_value, subject_name, timestamp) VALUES (?, ?, ?)"

func rowArgs(rec Record) []any {
	subject := strings.TrimSpace(rec.Subject)
	if subject == "" {
		subject = UnknownSubject
	}
	at := rec.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	return []any{strings.ToLower(strings.TrimSpace(rec.HashValue)), subject, at.UTC().Format(timestampLayout)}
}

// List returns matching records, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Record, error) {
	query := "SELECT id, hash_value, COALESCE(subject_name, ''), timestamp FROM hash_info"
	var (
		clauses []string
		args    []any
	)
	if subject := strings.TrimSpace(filter.Subject); subject != "" {
		clauses = append(clauses, "subject_name = ?")
		args = append(args, subject)
	}
	if hash := strings.TrimSpace(filter.Hash); hash != "" {
		clauses = append(clauses, "hash_value = ?")
		args = append(args, strings.ToLower(hash))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, failure.Wrap(failure.ErrIO, "audit", "list", "", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec Record
			ts  string
		)
		if err := rows.Scan(&rec.ID, &rec.HashValue, &rec.Subject, &ts); err != nil {
			return nil, failure.Wrap(failure.ErrIO, "audit", "list", "scan row", err)
		}
		rec.Timestamp = parseTimestamp(ts)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, failure.Wrap(failure.ErrIO, "audit", "list", "", err)
	}
	return records, nil
}

// parseTimestamp also accepts the "yyyy-MM-dd HH:mm:ss" local-time rows older
// tooling wrote; anything else yields the zero time.
func parseTimestamp(value string) time.Time {
	if ts, err := time.Parse(timestampLayout, value); err == nil {
		return ts
	}
	if ts, err := time.ParseInLocation(time.DateTime, value, time.Local); err == nil {
		return ts
	}
	return time.Time{}
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
