package archive

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ArchiveStore owns the item_records table. All row mutation in the system
// goes through this type; callers never touch the gorm.DB directly.
type ArchiveStore struct {
	db       *gorm.DB
	pageSize int
}

// NewArchiveStore creates a new ArchiveStore. pageSize controls
// ListByCategory pagination; values < 1 fall back to the default.
func NewArchiveStore(db *gorm.DB, pageSize int) *ArchiveStore {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &ArchiveStore{db: db, pageSize: pageSize}
}

// AutoMigrate creates or updates the item_records table. Schema changes are
// additive only; stores written by earlier versions open cleanly.
//
// The active-content uniqueness rule (one active record per owner and
// content hash) needs a partial index, which GORM tags cannot express, so
// it is created here with raw DDL. This index is the atomic arbiter for
// concurrent submissions of identical content.
func (s *ArchiveStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&ItemRecord{}); err != nil {
		return storeError("auto-migrate item_records", err)
	}
	err := s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_owner_hash_active
		ON item_records(owner_id, content_hash)
		WHERE deleted_at IS NULL AND content_hash IS NOT NULL`).Error
	if err != nil {
		return storeError("create active content index", err)
	}
	return nil
}

// Insert persists a new record and assigns its id. A uniqueness-constraint
// rejection is resolved by re-querying and returned as a typed
// DuplicateContentError or DuplicateIdentityError carrying the existing
// record; it is never surfaced as a raw driver error. Callers are expected
// to have run the dedup check first, so a rejection here means a concurrent
// submission won the race.
func (s *ArchiveStore) Insert(rec *ItemRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Create(rec).Error; err != nil {
		if dup := s.resolveConflict(rec); dup != nil {
			return dup
		}
		return storeError("insert item", err)
	}
	return nil
}

// resolveConflict re-queries after a failed insert to translate a
// constraint violation into the duplicate taxonomy. Content identity is
// checked first because it is authoritative. Returns nil when no
// conflicting record can be found (the failure was not a duplicate).
func (s *ArchiveStore) resolveConflict(rec *ItemRecord) error {
	if rec.ContentHash != nil {
		existing, err := s.FindByContentHash(rec.OwnerID, *rec.ContentHash)
		if err == nil && existing != nil && !existing.Trashed() {
			return &DuplicateContentError{Existing: existing}
		}
	}
	if rec.TransportIdentity != nil {
		existing, err := s.FindByTransportIdentity(rec.OwnerID, *rec.TransportIdentity)
		if err == nil && existing != nil {
			return &DuplicateIdentityError{Existing: existing}
		}
	}
	return nil
}

// Get retrieves a record by id regardless of trash state. Returns nil, nil
// if no record exists for the owner.
func (s *ArchiveStore) Get(ownerID, id int64) (*ItemRecord, error) {
	var rec ItemRecord
	err := s.db.Where("owner_id = ? AND id = ?", ownerID, id).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, storeError("get item", err)
	}
	return &rec, nil
}

// FindByTransportIdentity looks up a record by the platform-assigned upload
// identity, active or trashed. Returns nil, nil when absent.
func (s *ArchiveStore) FindByTransportIdentity(ownerID int64, identity string) (*ItemRecord, error) {
	var rec ItemRecord
	err := s.db.Where("owner_id = ? AND transport_identity = ?", ownerID, identity).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, storeError("find by transport identity", err)
	}
	return &rec, nil
}

// FindByContentHash looks up a record by content hash. An active
// record is preferred; otherwise the most recently trashed one is returned
// (the restore-on-reupload candidate). Returns nil, nil when absent.
func (s *ArchiveStore) FindByContentHash(ownerID int64, hash string) (*ItemRecord, error) {
	var rec ItemRecord
	err := s.db.Where("owner_id = ? AND content_hash = ? AND deleted_at IS NULL", ownerID, hash).
		First(&rec).Error
	if err == nil {
		return &rec, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, storeError("find by content hash", err)
	}
	err = s.db.Where("owner_id = ? AND content_hash = ? AND deleted_at IS NOT NULL", ownerID, hash).
		Order("deleted_at DESC").First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, storeError("find by content hash", err)
	}
	return &rec, nil
}

// ListByCategory returns one page of active records in a category, most
// recent first. offset is the number of items already seen; hasMore reports
// whether another page exists.
func (s *ArchiveStore) ListByCategory(ownerID int64, category string, offset int) (items []ItemRecord, hasMore bool, err error) {
	if offset < 0 {
		offset = 0
	}
	err = s.db.Where("owner_id = ? AND category = ? AND deleted_at IS NULL", ownerID, category).
		Order("id DESC").Limit(s.pageSize + 1).Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, false, storeError("list by category", err)
	}
	if len(items) > s.pageSize {
		hasMore = true
		items = items[:s.pageSize]
	}
	return items, hasMore, nil
}

// PageSize returns the configured page size for category listings.
func (s *ArchiveStore) PageSize() int { return s.pageSize }

// CountByCategory returns the number of active records per category for an
// owner. Categories with no active records are absent from the map.
func (s *ArchiveStore) CountByCategory(ownerID int64) (map[string]int64, error) {
	type row struct {
		Category string
		N        int64
	}
	var rows []row
	err := s.db.Model(&ItemRecord{}).
		Select("category, COUNT(*) AS n").
		Where("owner_id = ? AND deleted_at IS NULL", ownerID).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, storeError("count by category", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Category] = r.N
	}
	return counts, nil
}

// SetFavorite toggles the favorite flag on an active record. Returns
// ErrNotFound if the record does not exist or is trashed.
func (s *ArchiveStore) SetFavorite(ownerID, id int64, favorite bool) error {
	result := s.db.Model(&ItemRecord{}).
		Where("owner_id = ? AND id = ? AND deleted_at IS NULL", ownerID, id).
		Update("is_favorite", favorite)
	if result.Error != nil {
		return storeError("set favorite", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Search returns active records whose display name, note, or category
// contains the query (case-insensitive), most recent first, bounded by
// limit.
func (s *ArchiveStore) Search(ownerID int64, query string, limit int) ([]ItemRecord, error) {
	if limit < 1 {
		limit = DefaultSearchLimit
	}
	pattern := "%" + strings.ToLower(query) + "%"
	var items []ItemRecord
	err := s.db.Where("owner_id = ? AND deleted_at IS NULL", ownerID).
		Where("LOWER(display_name) LIKE ? OR LOWER(note) LIKE ? OR LOWER(category) LIKE ?",
			pattern, pattern, pattern).
		Order("id DESC").Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, storeError("search items", err)
	}
	return items, nil
}

// ListRecent returns the owner's most recently archived active records.
func (s *ArchiveStore) ListRecent(ownerID int64, limit int) ([]ItemRecord, error) {
	if limit < 1 {
		limit = DefaultRecentLimit
	}
	var items []ItemRecord
	err := s.db.Where("owner_id = ? AND deleted_at IS NULL", ownerID).
		Order("id DESC").Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, storeError("list recent", err)
	}
	return items, nil
}

// ListFavorites returns the owner's favorite active records, most recent
// first.
func (s *ArchiveStore) ListFavorites(ownerID int64, limit int) ([]ItemRecord, error) {
	if limit < 1 {
		limit = DefaultFavoritesLimit
	}
	var items []ItemRecord
	err := s.db.Where("owner_id = ? AND is_favorite = ? AND deleted_at IS NULL", ownerID, true).
		Order("id DESC").Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, storeError("list favorites", err)
	}
	return items, nil
}

// MarkDeleted soft-deletes a record by setting deleted_at. Idempotent:
// marking an already-trashed record affects no rows and is not an error.
func (s *ArchiveStore) MarkDeleted(ownerID, id int64, at time.Time) (bool, error) {
	result := s.db.Model(&ItemRecord{}).
		Where("owner_id = ? AND id = ? AND deleted_at IS NULL", ownerID, id).
		Update("deleted_at", at.UTC())
	if result.Error != nil {
		return false, storeError("mark deleted", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ClearDeleted restores a trashed record by clearing deleted_at. Affects no
// rows when the record is not currently trashed.
func (s *ArchiveStore) ClearDeleted(ownerID, id int64) (bool, error) {
	result := s.db.Model(&ItemRecord{}).
		Where("owner_id = ? AND id = ? AND deleted_at IS NOT NULL", ownerID, id).
		Update("deleted_at", nil)
	if result.Error != nil {
		return false, storeError("clear deleted", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Revive restores a trashed record and refreshes its transport fields with
// the values of the upload that triggered the restore. The new transport
// instance is the one the platform can still re-fetch.
func (s *ArchiveStore) Revive(ownerID, id int64, transportRef string, transportIdentity *string) (*ItemRecord, error) {
	updates := map[string]any{
		"deleted_at":    nil,
		"transport_ref": transportRef,
	}
	if transportIdentity != nil {
		updates["transport_identity"] = *transportIdentity
	}
	result := s.db.Model(&ItemRecord{}).
		Where("owner_id = ? AND id = ? AND deleted_at IS NOT NULL", ownerID, id).
		Updates(updates)
	if result.Error != nil {
		return nil, storeError("revive item", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ownerID, id)
}

// ListTrash returns the owner's trashed records, most recently deleted
// first.
func (s *ArchiveStore) ListTrash(ownerID int64) ([]ItemRecord, error) {
	var items []ItemRecord
	err := s.db.Where("owner_id = ? AND deleted_at IS NOT NULL", ownerID).
		Order("deleted_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, storeError("list trash", err)
	}
	return items, nil
}

// DeleteExpired hard-deletes the owner's trashed records whose deleted_at
// is at or before cutoff and returns the removed rows so the caller can release
// retained payload copies. Ids of removed rows are never reissued.
func (s *ArchiveStore) DeleteExpired(ownerID int64, cutoff time.Time) ([]ItemRecord, error) {
	return s.deleteExpired(s.db.Where("owner_id = ?", ownerID), cutoff)
}

// DeleteExpiredAll is DeleteExpired across every owner, used by the
// periodic retention worker.
func (s *ArchiveStore) DeleteExpiredAll(cutoff time.Time) ([]ItemRecord, error) {
	return s.deleteExpired(s.db, cutoff)
}

func (s *ArchiveStore) deleteExpired(scope *gorm.DB, cutoff time.Time) ([]ItemRecord, error) {
	var expired []ItemRecord
	err := scope.
		Where("deleted_at IS NOT NULL AND deleted_at <= ?", cutoff.UTC()).
		Find(&expired).Error
	if err != nil {
		return nil, storeError("find expired trash", err)
	}
	if len(expired) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(expired))
	for i, rec := range expired {
		ids[i] = rec.ID
	}
	if err := s.db.Where("id IN ?", ids).Delete(&ItemRecord{}).Error; err != nil {
		return nil, storeError("purge expired trash", err)
	}
	return expired, nil
}

// FindDegraded returns records whose content hash is missing (hashing
// failed at submission time), oldest first, for the re-hash backfill sweep.
func (s *ArchiveStore) FindDegraded(limit int) ([]ItemRecord, error) {
	if limit < 1 {
		limit = 50
	}
	var items []ItemRecord
	err := s.db.Where("content_hash IS NULL AND deleted_at IS NULL").
		Order("id ASC").Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, storeError("find degraded items", err)
	}
	return items, nil
}

// SetContentHash backfills the content hash of a degraded record.
func (s *ArchiveStore) SetContentHash(ownerID, id int64, hash string, byteSize int64) error {
	result := s.db.Model(&ItemRecord{}).
		Where("owner_id = ? AND id = ? AND content_hash IS NULL", ownerID, id).
		Updates(map[string]any{"content_hash": hash, "byte_size": byteSize})
	if result.Error != nil {
		return storeError("set content hash", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearPayloadPath drops a record's retained-copy reference, used when the
// copy could not be placed at its final location.
func (s *ArchiveStore) ClearPayloadPath(ownerID, id int64) error {
	err := s.db.Model(&ItemRecord{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Update("payload_path", "").Error
	if err != nil {
		return storeError("clear payload path", err)
	}
	return nil
}

// CheckConsistency re-validates the dedup indices over the whole store:
// no owner may hold two active records with the same content hash, and no
// owner may hold two records with the same transport identity. Run after a
// snapshot restore before serving traffic.
func (s *ArchiveStore) CheckConsistency() error {
	var n int64
	err := s.db.Raw(`SELECT COUNT(*) FROM (
			SELECT owner_id, content_hash FROM item_records
			WHERE deleted_at IS NULL AND content_hash IS NOT NULL
			GROUP BY owner_id, content_hash HAVING COUNT(*) > 1)`).Scan(&n).Error
	if err != nil {
		return storeError("consistency check", err)
	}
	if n > 0 {
		return storeError("consistency check", &consistencyViolation{index: "owner/content_hash", groups: n})
	}
	err = s.db.Raw(`SELECT COUNT(*) FROM (
			SELECT owner_id, transport_identity FROM item_records
			WHERE transport_identity IS NOT NULL
			GROUP BY owner_id, transport_identity HAVING COUNT(*) > 1)`).Scan(&n).Error
	if err != nil {
		return storeError("consistency check", err)
	}
	if n > 0 {
		return storeError("consistency check", &consistencyViolation{index: "owner/transport_identity", groups: n})
	}
	return nil
}

type consistencyViolation struct {
	index  string
	groups int64
}

func (v *consistencyViolation) Error() string {
	return fmt.Sprintf("uniqueness violated on %s (%d conflicting groups)", v.index, v.groups)
}
