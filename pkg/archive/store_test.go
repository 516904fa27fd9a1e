package archive

import (
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestStore(t *testing.T) *ArchiveStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := NewArchiveStore(db, 3)
	require.NoError(t, store.AutoMigrate())
	return store
}

func strPtr(s string) *string { return &s }

func newTestRecord(owner int64, category, hash, identity string) *ItemRecord {
	rec := &ItemRecord{
		OwnerID:      owner,
		Category:     category,
		MediaKind:    string(KindDocument),
		TransportRef: "ref-" + identity + hash,
		DisplayName:  "notes.pdf",
		CreatedAt:    time.Now().UTC(),
	}
	if hash != "" {
		rec.ContentHash = strPtr(hash)
	}
	if identity != "" {
		rec.TransportIdentity = strPtr(identity)
	}
	return rec
}

func TestInsertAssignsIncreasingIDs(t *testing.T) {
	store := setupTestStore(t)

	first := newTestRecord(1, "Grammar", "h1", "t1")
	require.NoError(t, store.Insert(first))
	second := newTestRecord(1, "Grammar", "h2", "t2")
	require.NoError(t, store.Insert(second))

	assert.Greater(t, second.ID, first.ID)
}

func TestInsertRejectsDuplicateContent(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Insert(newTestRecord(1, "Grammar", "h1", "t1")))

	err := store.Insert(newTestRecord(1, "Drama", "h1", "t2"))
	var dup *DuplicateContentError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, int64(1), dup.Existing.OwnerID)
	assert.Equal(t, "h1", *dup.Existing.ContentHash)
}

func TestInsertRejectsDuplicateIdentity(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Insert(newTestRecord(1, "Grammar", "h1", "t1")))

	// Same upload instance, different bytes (no hash yet).
	err := store.Insert(newTestRecord(1, "Grammar", "", "t1"))
	var dup *DuplicateIdentityError
	require.ErrorAs(t, err, &dup)
}

func TestInsertAllowsSameContentForDifferentOwners(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Insert(newTestRecord(1, "Grammar", "h1", "t1")))
	require.NoError(t, store.Insert(newTestRecord(2, "Grammar", "h1", "t2")))
}

func TestInsertAllowsRehashAfterTrashing(t *testing.T) {
	store := setupTestStore(t)

	rec := newTestRecord(1, "Grammar", "h1", "t1")
	require.NoError(t, store.Insert(rec))
	_, err := store.MarkDeleted(1, rec.ID, time.Now())
	require.NoError(t, err)

	// Trashed rows do not occupy the active-content index.
	require.NoError(t, store.Insert(newTestRecord(1, "Grammar", "h1", "t2")))
}

func TestIDsNeverReusedAfterPurge(t *testing.T) {
	store := setupTestStore(t)

	rec := newTestRecord(1, "Grammar", "h1", "t1")
	require.NoError(t, store.Insert(rec))
	firstID := rec.ID

	_, err := store.MarkDeleted(1, rec.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	purged, err := store.DeleteExpired(1, time.Now())
	require.NoError(t, err)
	require.Len(t, purged, 1)

	next := newTestRecord(1, "Grammar", "h2", "t2")
	require.NoError(t, store.Insert(next))
	assert.Greater(t, next.ID, firstID)
}

func TestGetReturnsNilForMissing(t *testing.T) {
	store := setupTestStore(t)

	rec, err := store.Get(1, 42)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGetScopedToOwner(t *testing.T) {
	store := setupTestStore(t)

	rec := newTestRecord(1, "Grammar", "h1", "t1")
	require.NoError(t, store.Insert(rec))

	other, err := store.Get(2, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestListByCategoryPaginates(t *testing.T) {
	store := setupTestStore(t) // page size 3

	for i := 0; i < 5; i++ {
		rec := newTestRecord(1, "Poetry", "", "")
		require.NoError(t, store.Insert(rec))
	}

	page0, hasMore, err := store.ListByCategory(1, "Poetry", 0)
	require.NoError(t, err)
	assert.Len(t, page0, 3)
	assert.True(t, hasMore)
	// Most recent first.
	assert.Greater(t, page0[0].ID, page0[1].ID)

	page1, hasMore, err := store.ListByCategory(1, "Poetry", 3)
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	assert.False(t, hasMore)
}

func TestListingsExcludeTrashed(t *testing.T) {
	store := setupTestStore(t)

	kept := newTestRecord(1, "Poetry", "h1", "t1")
	require.NoError(t, store.Insert(kept))
	trashed := newTestRecord(1, "Poetry", "h2", "t2")
	trashed.IsFavorite = true
	trashed.DisplayName = "hamlet essay"
	require.NoError(t, store.Insert(trashed))
	_, err := store.MarkDeleted(1, trashed.ID, time.Now())
	require.NoError(t, err)

	items, _, err := store.ListByCategory(1, "Poetry", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, kept.ID, items[0].ID)

	counts, err := store.CountByCategory(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["Poetry"])

	found, err := store.Search(1, "hamlet", 10)
	require.NoError(t, err)
	assert.Empty(t, found)

	favs, err := store.ListFavorites(1, 10)
	require.NoError(t, err)
	assert.Empty(t, favs)

	recent, err := store.ListRecent(1, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestCountByCategory(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Insert(newTestRecord(1, "Poetry", "h1", "t1")))
	require.NoError(t, store.Insert(newTestRecord(1, "Poetry", "h2", "t2")))
	require.NoError(t, store.Insert(newTestRecord(1, "Drama", "h3", "t3")))
	require.NoError(t, store.Insert(newTestRecord(2, "Drama", "h4", "t4")))

	counts, err := store.CountByCategory(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["Poetry"])
	assert.Equal(t, int64(1), counts["Drama"])
	assert.NotContains(t, counts, "Grammar")
}

func TestSetFavorite(t *testing.T) {
	store := setupTestStore(t)

	rec := newTestRecord(1, "Poetry", "h1", "t1")
	require.NoError(t, store.Insert(rec))

	require.NoError(t, store.SetFavorite(1, rec.ID, true))
	got, err := store.Get(1, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFavorite)

	require.NoError(t, store.SetFavorite(1, rec.ID, false))
	got, err = store.Get(1, rec.ID)
	require.NoError(t, err)
	assert.False(t, got.IsFavorite)
}

func TestSetFavoriteMissingItem(t *testing.T) {
	store := setupTestStore(t)

	err := store.SetFavorite(1, 99, true)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSearchMatchesNameNoteAndCategory(t *testing.T) {
	store := setupTestStore(t)

	byName := newTestRecord(1, "Poetry", "h1", "t1")
	byName.DisplayName = "Sonnets.pdf"
	require.NoError(t, store.Insert(byName))

	byNote := newTestRecord(1, "Drama", "h2", "t2")
	byNote.Note = "lecture on sonnets"
	require.NoError(t, store.Insert(byNote))

	byCategory := newTestRecord(1, "Linguistics", "h3", "t3")
	require.NoError(t, store.Insert(byCategory))

	found, err := store.Search(1, "SONNET", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = store.Search(1, "linguis", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, byCategory.ID, found[0].ID)
}

func TestSearchBounded(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 4; i++ {
		rec := newTestRecord(1, "Poetry", "", "")
		rec.DisplayName = "ode"
		require.NoError(t, store.Insert(rec))
	}

	found, err := store.Search(1, "ode", 2)
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Greater(t, found[0].ID, found[1].ID)
}

func TestReviveRefreshesTransportFields(t *testing.T) {
	store := setupTestStore(t)

	rec := newTestRecord(1, "Poetry", "h1", "t1")
	require.NoError(t, store.Insert(rec))
	_, err := store.MarkDeleted(1, rec.ID, time.Now())
	require.NoError(t, err)

	revived, err := store.Revive(1, rec.ID, "ref-new", strPtr("t-new"))
	require.NoError(t, err)
	assert.Nil(t, revived.DeletedAt)
	assert.Equal(t, "ref-new", revived.TransportRef)
	assert.Equal(t, "t-new", *revived.TransportIdentity)
}

func TestReviveActiveRecordIsNotFound(t *testing.T) {
	store := setupTestStore(t)

	rec := newTestRecord(1, "Poetry", "h1", "t1")
	require.NoError(t, store.Insert(rec))

	_, err := store.Revive(1, rec.ID, "ref-new", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCheckConsistency(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Insert(newTestRecord(1, "Poetry", "h1", "t1")))
	require.NoError(t, store.Insert(newTestRecord(1, "Drama", "h2", "t2")))
	require.NoError(t, store.CheckConsistency())
}

func TestFindDegradedAndBackfill(t *testing.T) {
	store := setupTestStore(t)

	degraded := newTestRecord(1, "Poetry", "", "t1")
	require.NoError(t, store.Insert(degraded))
	require.NoError(t, store.Insert(newTestRecord(1, "Poetry", "h2", "t2")))

	found, err := store.FindDegraded(10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, degraded.ID, found[0].ID)

	require.NoError(t, store.SetContentHash(1, degraded.ID, "h1", 128))
	found, err = store.FindDegraded(10)
	require.NoError(t, err)
	assert.Empty(t, found)

	got, err := store.Get(1, degraded.ID)
	require.NoError(t, err)
	assert.Equal(t, "h1", *got.ContentHash)
	assert.Equal(t, int64(128), got.ByteSize)
}
