package snapshot

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/unilib/archivestore/pkg/archive"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openTestStore opens a file-backed store; VACUUM INTO needs a real file.
func openTestStore(t *testing.T) (*gorm.DB, *archive.ArchiveStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "archive.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := archive.NewArchiveStore(db, 10)
	require.NoError(t, store.AutoMigrate())
	return db, store, dbPath
}

func insertItem(t *testing.T, store *archive.ArchiveStore, hash string) *archive.ItemRecord {
	t.Helper()
	rec := &archive.ItemRecord{
		OwnerID:      1,
		Category:     "Grammar",
		MediaKind:    "document",
		TransportRef: "ref-" + hash,
		ContentHash:  &hash,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.Insert(rec))
	return rec
}

func TestSnapshotCreatesTimestampedCopy(t *testing.T) {
	db, store, _ := openTestStore(t)
	insertItem(t, store, "h1")

	dir := t.TempDir()
	m := NewManager(db, Config{Dir: dir, MaxKeep: 10}, testLogger())
	created := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	m.now = func() time.Time { return created }

	h, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "archive-20250601T083000Z.db"), h.Path)
	assert.Equal(t, created, h.CreatedAt)

	// The copy is a complete, openable store.
	copyDB, err := gorm.Open(sqlite.Open(h.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	copyStore := archive.NewArchiveStore(copyDB, 10)
	counts, err := copyStore.CountByCategory(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["Grammar"])
}

func TestSnapshotIsPointInTime(t *testing.T) {
	db, store, _ := openTestStore(t)
	insertItem(t, store, "h1")

	dir := t.TempDir()
	m := NewManager(db, Config{Dir: dir, MaxKeep: 10}, testLogger())
	h, err := m.Snapshot(context.Background())
	require.NoError(t, err)

	// Later writes never appear in an existing snapshot.
	insertItem(t, store, "h2")

	copyDB, err := gorm.Open(sqlite.Open(h.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	counts, err := archive.NewArchiveStore(copyDB, 10).CountByCategory(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["Grammar"])
}

func TestEvictionKeepsNewest(t *testing.T) {
	db, store, _ := openTestStore(t)
	insertItem(t, store, "h1")

	dir := t.TempDir()
	m := NewManager(db, Config{Dir: dir, MaxKeep: 2}, testLogger())

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		stamp := base.Add(time.Duration(i) * time.Hour)
		m.now = func() time.Time { return stamp }
		_, err := m.Snapshot(context.Background())
		require.NoError(t, err)
	}

	handles, err := m.List()
	require.NoError(t, err)
	require.Len(t, handles, 2)
	assert.Equal(t, base.Add(2*time.Hour), handles[0].CreatedAt)
	assert.Equal(t, base.Add(3*time.Hour), handles[1].CreatedAt)
}

func TestListIgnoresForeignFiles(t *testing.T) {
	db, _, _ := openTestStore(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "archive-garbage.db"), []byte("x"), 0o644))

	m := NewManager(db, Config{Dir: dir, MaxKeep: 10}, testLogger())
	handles, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, handles)
}

func TestListEmptyDir(t *testing.T) {
	db, _, _ := openTestStore(t)
	m := NewManager(db, Config{Dir: filepath.Join(t.TempDir(), "missing"), MaxKeep: 10}, testLogger())

	handles, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, handles)
}

func TestRestoreFileSubstitutesStore(t *testing.T) {
	db, store, dbPath := openTestStore(t)
	insertItem(t, store, "h1")

	dir := t.TempDir()
	m := NewManager(db, Config{Dir: dir, MaxKeep: 10}, testLogger())
	h, err := m.Snapshot(context.Background())
	require.NoError(t, err)

	// Diverge after the snapshot, then restore over it.
	insertItem(t, store, "h2")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	require.NoError(t, RestoreFile(h.Path, dbPath))

	restoredDB, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	restored := archive.NewArchiveStore(restoredDB, 10)
	require.NoError(t, restored.CheckConsistency())
	counts, err := restored.CountByCategory(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["Grammar"])
}

func TestRestoreFileMissingSnapshot(t *testing.T) {
	err := RestoreFile(filepath.Join(t.TempDir(), "absent.db"), filepath.Join(t.TempDir(), "archive.db"))
	assert.Error(t, err)
}
