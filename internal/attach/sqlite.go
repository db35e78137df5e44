package attach

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Schema contains the SQL schema of the attachment store.
const Schema = `
CREATE TABLE IF NOT EXISTS attachments (
    ref TEXT PRIMARY KEY,
    mime_type TEXT NOT NULL,
    encoding TEXT,
    size INTEGER NOT NULL,
    data BLOB NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore is a Store backed by a local SQLite database. References are
// the hex SHA-256 of the content, so duplicate attachments share one row.
type SQLiteStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// OpenSQLite opens (creating if needed) the attachment database.
func OpenSQLite(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create attachment directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.WithField("path", dbPath).Info("Attachment store initialized")
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Create stores a blob, returning its content reference.
func (s *SQLiteStore) Create(data []byte, mimeType, encoding string) (string, error) {
	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])

	_, err := s.db.Exec(
		`INSERT INTO attachments (ref, mime_type, encoding, size, data)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(ref) DO NOTHING`,
		ref, mimeType, encoding, len(data), data)
	if err != nil {
		return "", fmt.Errorf("failed to store attachment: %w", err)
	}
	return ref, nil
}

// Read returns the blob and its MIME type.
func (s *SQLiteStore) Read(ref string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := s.db.QueryRow(`SELECT data, mime_type FROM attachments WHERE ref = ?`, ref).
		Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read attachment: %w", err)
	}
	return data, mime, nil
}

// Size returns the stored size.
func (s *SQLiteStore) Size(ref string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT size FROM attachments WHERE ref = ?`, ref).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read attachment size: %w", err)
	}
	return n, nil
}
