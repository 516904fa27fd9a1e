// Package lifecycle governs the soft-delete state machine over archive
// records: Active -> Trashed -> Active (restore) or Trashed -> Removed
// (purge once the retention horizon elapses).
package lifecycle

import (
	"log/slog"
	"os"
	"time"

	"github.com/unilib/archivestore/pkg/archive"
)

// Manager performs soft-delete, restore, and retention-bounded purge
// operations. All row mutation goes through the archive store.
type Manager struct {
	store  *archive.ArchiveStore
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a Manager.
func NewManager(store *archive.ArchiveStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, logger: logger, now: time.Now}
}

// SoftDelete moves a record to the trash. Idempotent: soft-deleting an
// already-trashed record is a no-op, not an error.
func (m *Manager) SoftDelete(ownerID, id int64) error {
	changed, err := m.store.MarkDeleted(ownerID, id, m.now())
	if err != nil {
		return err
	}
	if changed {
		m.logger.Info("item moved to trash", "owner", ownerID, "item", id)
	}
	return nil
}

// Restore brings a trashed record back. A no-op when the record is not
// currently trashed.
func (m *Manager) Restore(ownerID, id int64) error {
	changed, err := m.store.ClearDeleted(ownerID, id)
	if err != nil {
		return err
	}
	if changed {
		m.logger.Info("item restored from trash", "owner", ownerID, "item", id)
	}
	return nil
}

// ListTrash returns the owner's trashed records, most recently deleted
// first.
func (m *Manager) ListTrash(ownerID int64) ([]archive.ItemRecord, error) {
	return m.store.ListTrash(ownerID)
}

// PurgeExpired irreversibly removes the owner's trashed records older than
// retentionDays and releases their retained payload copies. Payload release
// is best-effort cleanup: a failure is logged and never blocks the row
// deletion. Returns the exact number of records removed.
func (m *Manager) PurgeExpired(ownerID int64, retentionDays int) (int, error) {
	cutoff := m.cutoff(retentionDays)
	purged, err := m.store.DeleteExpired(ownerID, cutoff)
	if err != nil {
		return 0, err
	}
	m.releasePayloads(purged)
	if len(purged) > 0 {
		m.logger.Info("purged expired trash", "owner", ownerID, "count", len(purged))
	}
	return len(purged), nil
}

// PurgeAllExpired is PurgeExpired across every owner, used by the periodic
// retention worker.
func (m *Manager) PurgeAllExpired(retentionDays int) (int, error) {
	cutoff := m.cutoff(retentionDays)
	purged, err := m.store.DeleteExpiredAll(cutoff)
	if err != nil {
		return 0, err
	}
	m.releasePayloads(purged)
	if len(purged) > 0 {
		m.logger.Info("purged expired trash", "count", len(purged))
	}
	return len(purged), nil
}

func (m *Manager) cutoff(retentionDays int) time.Time {
	return m.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
}

func (m *Manager) releasePayloads(purged []archive.ItemRecord) {
	for _, rec := range purged {
		if rec.PayloadPath == "" {
			continue
		}
		if err := os.Remove(rec.PayloadPath); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("releasing payload copy failed",
				"item", rec.ID, "path", rec.PayloadPath, "error", err)
		}
	}
}
