// Package db persists the directory-scan hash cache in SQLite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	_ "modernc.org/sqlite"

	"github.com/ryanm101/datman/internal/hashes"
)

// ErrCacheMiss is returned by Lookup when no fresh entry exists.
var ErrCacheMiss = errors.New("hash cache miss")

// DB wraps a SQLite database connection holding the hash cache.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates a SQLite database at the given path.
func Open(ctx context.Context, path string) (*DB, error) {
	conn, err := otelsql.Open("sqlite", path, otelsql.WithAttributes(semconv.DBSystemSqlite))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; scan workers share this connection.
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// migrate runs database migrations up to the current schema version.
func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err := db.conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	migrations := []func(context.Context) error{db.migrateV1, db.migrateV2}
	for i, m := range migrations {
		if version < i+1 {
			if err := m(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// migrateV1 creates the hash cache.
func (db *DB) migrateV1(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS hash_cache (
			path TEXT PRIMARY KEY,
			size INTEGER NOT NULL,
			mtime INTEGER NOT NULL,
			crc32 TEXT,
			md5 TEXT,
			sha1 TEXT,
			scanned_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		INSERT INTO schema_version (version) VALUES (1);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute v1 migration: %w", err)
	}
	return nil
}

// migrateV2 adds the SHA-2 digests.
func (db *DB) migrateV2(ctx context.Context) error {
	schema := `
		ALTER TABLE hash_cache ADD COLUMN sha256 TEXT;
		ALTER TABLE hash_cache ADD COLUMN sha384 TEXT;
		ALTER TABLE hash_cache ADD COLUMN sha512 TEXT;

		CREATE INDEX IF NOT EXISTS idx_hash_cache_sha1 ON hash_cache(sha1);

		INSERT INTO schema_version (version) VALUES (2);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute v2 migration: %w", err)
	}
	return nil
}

// Lookup returns the cached digests for path when size and mtime still
// match. Anything else is ErrCacheMiss.
func (db *DB) Lookup(ctx context.Context, path string, size int64, mtime time.Time) (hashes.Set, error) {
	var cachedSize, cachedMtime int64
	var crc, md5, sha1, sha256, sha384, sha512 sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT size, mtime, crc32, md5, sha1, sha256, sha384, sha512
		FROM hash_cache WHERE path = ?
	`, path).Scan(&cachedSize, &cachedMtime, &crc, &md5, &sha1, &sha256, &sha384, &sha512)
	if errors.Is(err, sql.ErrNoRows) {
		return hashes.Set{}, ErrCacheMiss
	}
	if err != nil {
		return hashes.Set{}, fmt.Errorf("failed to query hash cache: %w", err)
	}
	if cachedSize != size || cachedMtime != mtime.UnixNano() {
		return hashes.Set{}, ErrCacheMiss
	}

	return hashes.Set{
		CRC:    hashes.Parse(hashes.CRC, crc.String),
		MD5:    hashes.Parse(hashes.MD5, md5.String),
		SHA1:   hashes.Parse(hashes.SHA1, sha1.String),
		SHA256: hashes.Parse(hashes.SHA256, sha256.String),
		SHA384: hashes.Parse(hashes.SHA384, sha384.String),
		SHA512: hashes.Parse(hashes.SHA512, sha512.String),
	}, nil
}

// Store records the digests for path, replacing any previous entry.
func (db *DB) Store(ctx context.Context, path string, size int64, mtime time.Time, h hashes.Set) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO hash_cache (path, size, mtime, crc32, md5, sha1, sha256, sha384, sha512, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			mtime = excluded.mtime,
			crc32 = excluded.crc32,
			md5 = excluded.md5,
			sha1 = excluded.sha1,
			sha256 = excluded.sha256,
			sha384 = excluded.sha384,
			sha512 = excluded.sha512,
			scanned_at = CURRENT_TIMESTAMP
	`, path, size, mtime.UnixNano(),
		nullHex(h.CRC), nullHex(h.MD5), nullHex(h.SHA1),
		nullHex(h.SHA256), nullHex(h.SHA384), nullHex(h.SHA512))
	if err != nil {
		return fmt.Errorf("failed to store hash cache entry: %w", err)
	}
	return nil
}

// Prune deletes entries whose files no longer exist and returns how many
// were removed.
func (db *DB) Prune(ctx context.Context) (int, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT path FROM hash_cache")
	if err != nil {
		return 0, fmt.Errorf("failed to list hash cache: %w", err)
	}

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("failed to scan hash cache row: %w", err)
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, fmt.Errorf("failed to iterate hash cache: %w", err)
	}
	_ = rows.Close()

	for _, path := range stale {
		if _, err := db.conn.ExecContext(ctx, "DELETE FROM hash_cache WHERE path = ?", path); err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", path, err)
		}
	}
	return len(stale), nil
}

// Count returns the number of cached entries.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM hash_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count hash cache: %w", err)
	}
	return n, nil
}

func nullHex(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: hashes.String(b), Valid: true}
}
