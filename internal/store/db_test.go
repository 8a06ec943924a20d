package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "sub", "test.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// deterministic, strictly increasing clock
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	db.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return db
}

func TestOpen_MigratesToLatest(t *testing.T) {
	db := newTestDB(t)

	v, err := db.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v != SchemaVersion {
		t.Errorf("Version() = %d, want %d", v, SchemaVersion)
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	db, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.SaveSettings(ctx, []byte(`{"a":1}`), time.Now()); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	db.Close()

	db, err = Open(Config{Path: path})
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer db.Close()

	data, found, err := db.LoadSettings(ctx)
	if err != nil || !found {
		t.Fatalf("LoadSettings() = %v, %v", found, err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("data = %s", data)
	}
}

func TestOpen_UpgradesOlderSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	ctx := context.Background()

	db, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	// simulate a first-release database: only v1 applied
	if _, err := db.db.ExecContext(ctx, `DROP TABLE transcripts; DROP TABLE settings; PRAGMA user_version = 1`); err != nil {
		t.Fatalf("downgrade failed: %v", err)
	}
	if _, err := db.db.ExecContext(ctx, `INSERT INTO conversations (source_text, created_at) VALUES ('hallo', 1)`); err != nil {
		t.Fatalf("insert legacy row failed: %v", err)
	}
	db.Close()

	db, err = Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open() after downgrade error = %v", err)
	}
	defer db.Close()

	stats, err := db.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats["legacy_conversations"] != int64(1) {
		t.Errorf("legacy rows lost: %v", stats["legacy_conversations"])
	}
	if stats["total_transcripts"] != int64(0) {
		t.Errorf("total_transcripts = %v", stats["total_transcripts"])
	}
}

func TestStatistics_ReportsQueryErrors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.db.ExecContext(ctx, `DROP TABLE conversations`); err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	if _, err := db.Statistics(ctx); err == nil {
		t.Error("Statistics() expected error for missing table")
	}
}

func TestSettings_NotFound(t *testing.T) {
	db := newTestDB(t)

	data, found, err := db.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if found || data != nil {
		t.Errorf("LoadSettings() = %s, %v; want nothing", data, found)
	}
}

func TestSettings_Overwrite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.SaveSettings(ctx, []byte(`{"v":1}`), time.Now())
	db.SaveSettings(ctx, []byte(`{"v":2}`), time.Now())

	var count int
	db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM settings`).Scan(&count)
	if count != 1 {
		t.Errorf("settings rows = %d, want exactly 1", count)
	}
	data, _, _ := db.LoadSettings(ctx)
	if string(data) != `{"v":2}` {
		t.Errorf("data = %s", data)
	}
}

func TestBlobCodec(t *testing.T) {
	c, err := newBlobCodec()
	if err != nil {
		t.Fatalf("newBlobCodec() error = %v", err)
	}
	defer c.Close()

	compressible := bytes.Repeat([]byte("RIFF----WAVEfmt "), 512)
	stored, codec := c.encode(compressible)
	if codec != codecZstd || len(stored) >= len(compressible) {
		t.Errorf("encode() codec = %s, size %d", codec, len(stored))
	}
	out, err := c.decode(stored, codec)
	if err != nil || !bytes.Equal(out, compressible) {
		t.Errorf("decode() round trip failed: %v", err)
	}

	tiny := []byte{1}
	stored, codec = c.encode(tiny)
	if codec != codecRaw || !bytes.Equal(stored, tiny) {
		t.Errorf("incompressible data should stay raw, got %s", codec)
	}

	if _, err := c.decode([]byte("not valid zstd data"), codecZstd); err == nil {
		t.Error("decode() expected error for invalid data")
	}
	if _, err := c.decode(nil, "lz4"); err == nil {
		t.Error("decode() expected error for unknown codec")
	}
}
