// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     store
// Description: Embedded SQLite document store with versioned schema
// Author:      Mike Stoffels
// Created:     2026-10-14
// License:     MIT
// ============================================================================

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// migrations are additive. Index i upgrades user_version i to i+1.
var migrations = []string{
	// v1: transcript history of the first release, superseded by transcripts
	`
	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_text TEXT NOT NULL DEFAULT '',
		source_language TEXT NOT NULL DEFAULT '',
		target_language TEXT NOT NULL DEFAULT '',
		translation TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at DESC);
	`,
	// v2: settings singleton keyed by a fixed id
	`
	CREATE TABLE IF NOT EXISTS settings (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`,
	// v3: saved transcripts with variant lineage
	`
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		audio BLOB,
		audio_codec TEXT NOT NULL DEFAULT 'raw',
		audio_mime TEXT NOT NULL DEFAULT '',
		source_text TEXT NOT NULL DEFAULT '',
		source_language TEXT NOT NULL DEFAULT '',
		target_codes TEXT NOT NULL DEFAULT '[]',
		translations TEXT NOT NULL DEFAULT '{}',
		variant_group_id TEXT NOT NULL,
		variant_of_id INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_transcripts_created ON transcripts(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_transcripts_group ON transcripts(variant_group_id);
	CREATE INDEX IF NOT EXISTS idx_transcripts_variant_of ON transcripts(variant_of_id);
	`,
	// v4: API usage per transcript
	`
	ALTER TABLE transcripts ADD COLUMN usage_json TEXT;
	`,
}

// SchemaVersion is the schema version this build migrates to
var SchemaVersion = len(migrations)

// Config holds configuration for the database
type Config struct {
	Path string
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Path: "./data/dolmetscher.db",
	}
}

// DB is the local document store
type DB struct {
	db     *sql.DB
	mu     sync.RWMutex
	blobs  *blobCodec
	logger *logging.Logger
	now    func() time.Time
}

// Open opens or creates the database and applies pending migrations
func Open(cfg Config) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database with WAL mode
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	blobs, err := newBlobCodec()
	if err != nil {
		db.Close()
		return nil, err
	}

	d := &DB{
		db:     db,
		blobs:  blobs,
		logger: logging.New("store"),
		now:    time.Now,
	}

	if err := d.migrate(context.Background()); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return d, nil
}

// migrate applies every migration above the stored user_version, each in
// its own transaction
func (d *DB) migrate(ctx context.Context) error {
	current, err := d.Version(ctx)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported %d", current, len(migrations))
	}

	for v := current; v < len(migrations); v++ {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record schema version %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", v+1, err)
		}
		d.logger.Info("schema migrated", "version", v+1)
	}
	return nil
}

// Version returns the stored schema version
func (d *DB) Version(ctx context.Context) (int, error) {
	var v int
	if err := d.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	d.blobs.Close()
	return d.db.Close()
}

// Statistics returns store statistics
func (d *DB) Statistics(ctx context.Context) (map[string]interface{}, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := make(map[string]interface{})

	var transcripts int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts`).Scan(&transcripts); err != nil {
		return nil, fmt.Errorf("failed to count transcripts: %w", err)
	}
	stats["total_transcripts"] = transcripts

	var groups int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT variant_group_id) FROM transcripts`).Scan(&groups); err != nil {
		return nil, fmt.Errorf("failed to count variant groups: %w", err)
	}
	stats["variant_groups"] = groups

	var audioBytes sql.NullInt64
	if err := d.db.QueryRowContext(ctx, `SELECT SUM(LENGTH(audio)) FROM transcripts`).Scan(&audioBytes); err != nil {
		return nil, fmt.Errorf("failed to sum audio size: %w", err)
	}
	if audioBytes.Valid {
		stats["stored_audio_bytes"] = audioBytes.Int64
	}

	var legacy int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&legacy); err != nil {
		return nil, fmt.Errorf("failed to count legacy conversations: %w", err)
	}
	stats["legacy_conversations"] = legacy

	return stats, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
