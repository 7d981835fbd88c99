// Package history persists key-recovery results in SQLite.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("history record not found")

// Record is one key recovery.
type Record struct {
	ID               string        `json:"id"`
	Kind             string        `json:"kind"`
	Subject          string        `json:"subject,omitempty"`
	Key              string        `json:"key"`
	Plaintext        string        `json:"plaintext,omitempty"`
	Score            float64       `json:"score"`
	Candidates       int64         `json:"candidates"`
	MaxKeyLength     int           `json:"max_key_length,omitempty"`
	CiphertextSHA256 string        `json:"ciphertext_sha256"`
	CiphertextLen    int           `json:"ciphertext_len"`
	Duration         time.Duration `json:"duration"`
	CreatedAt        time.Time     `json:"created_at"`
}

// SetCiphertext records the digest and length of ct; the ciphertext itself is
// not stored.
func (r *Record) SetCiphertext(ct []byte) {
	sum := sha256.Sum256(ct)
	r.CiphertextSHA256 = hex.EncodeToString(sum[:])
	r.CiphertextLen = len(ct)
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Kind   string
	Digest string
	Limit  int
}

// Store is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory store.
func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path cannot be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite allows a single writer; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if err := InitializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts rec, assigning an ID and timestamp when they are unset.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("nil record")
	}
	if strings.TrimSpace(rec.Kind) == "" {
		return errors.New("record kind is required")
	}
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO recoveries (
            id, kind, subject, key, plaintext, score, candidates,
            max_key_length, ciphertext_sha256, ciphertext_len,
            duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, rec.ID, rec.Kind, rec.Subject, rec.Key, rec.Plaintext, rec.Score,
		rec.Candidates, rec.MaxKeyLength, rec.CiphertextSHA256,
		rec.CiphertextLen, rec.Duration.Milliseconds(), rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, kind, subject, key, plaintext, score, candidates,
           max_key_length, ciphertext_sha256, ciphertext_len,
           duration_ms, created_at
    FROM recoveries`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var subject, plaintext sql.NullString
	var durationMS, createdAt int64
	if err := row.Scan(&rec.ID, &rec.Kind, &subject, &rec.Key, &plaintext,
		&rec.Score, &rec.Candidates, &rec.MaxKeyLength, &rec.CiphertextSHA256,
		&rec.CiphertextLen, &durationMS, &createdAt); err != nil {
		return nil, err
	}
	rec.Subject = subject.String
	rec.Plaintext = plaintext.String
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return &rec, nil
}

// Get returns the record with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// List returns matching records, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Record, error) {
	query := selectColumns + " WHERE 1=1"
	args := []any{}

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	if filter.Digest != "" {
		query += " AND ciphertext_sha256 = ?"
		args = append(args, strings.ToLower(filter.Digest))
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes the record with the given ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM recoveries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
