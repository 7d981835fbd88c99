package history

import (
	"database/sql"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS recoveries (
    id TEXT PRIMARY KEY,           -- ULID, sorts by creation time
    kind TEXT NOT NULL,            -- vigenere, caesar, xor
    subject TEXT,
    key TEXT NOT NULL,
    plaintext TEXT,
    score REAL NOT NULL DEFAULT 0,
    candidates INTEGER NOT NULL DEFAULT 0,
    max_key_length INTEGER NOT NULL DEFAULT 0,
    ciphertext_sha256 TEXT NOT NULL,
    ciphertext_len INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL    -- unix nanoseconds
);

CREATE INDEX IF NOT EXISTS idx_recoveries_kind ON recoveries(kind);
CREATE INDEX IF NOT EXISTS idx_recoveries_digest ON recoveries(ciphertext_sha256);
CREATE INDEX IF NOT EXISTS idx_recoveries_created_at ON recoveries(created_at);
`

// InitializeSchema creates the tables if they do not exist.
func InitializeSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}
