package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/unilib/archivestore/pkg/archive"
)

// PayloadFetcher re-fetches an item's bytes from the external transport by
// its transport reference. Implemented by the presentation layer's
// transport client.
type PayloadFetcher interface {
	Fetch(ctx context.Context, transportRef string) (io.ReadCloser, error)
}

// RehashWorker backfills content hashes for degraded records (those whose
// hashing failed at submission time). Until backfilled, such records are
// protected against duplicates only by the weaker transport-identity index.
//
// A backfill that collides with an existing active record resolves in favor
// of content identity: the degraded duplicate is moved to the trash.
type RehashWorker struct {
	store    *archive.ArchiveStore
	manager  *Manager
	fetcher  PayloadFetcher
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

// NewRehashWorker creates a RehashWorker. A nil fetcher disables it.
func NewRehashWorker(store *archive.ArchiveStore, manager *Manager, fetcher PayloadFetcher, logger *slog.Logger) *RehashWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RehashWorker{
		store:    store,
		manager:  manager,
		fetcher:  fetcher,
		interval: time.Hour,
		batch:    50,
		logger:   logger,
	}
}

// Run starts the worker. It runs until the context is cancelled.
func (w *RehashWorker) Run(ctx context.Context) {
	if w.fetcher == nil {
		w.logger.Info("re-hash worker disabled: no payload fetcher configured")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("re-hash worker started", "interval", w.interval.String(), "batch", w.batch)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("re-hash worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep performs one backfill pass. Fetch or hash failures leave the record
// degraded for the next pass.
func (w *RehashWorker) sweep(ctx context.Context) {
	degraded, err := w.store.FindDegraded(w.batch)
	if err != nil {
		w.logger.Error("re-hash sweep failed to list degraded items", "error", err)
		return
	}

	for _, rec := range degraded {
		if ctx.Err() != nil {
			return
		}
		if err := w.backfill(ctx, rec); err != nil {
			w.logger.Warn("re-hash backfill failed",
				"owner", rec.OwnerID, "item", rec.ID, "error", err)
		}
	}
}

func (w *RehashWorker) backfill(ctx context.Context, rec archive.ItemRecord) error {
	body, err := w.fetcher.Fetch(ctx, rec.TransportRef)
	if err != nil {
		return err
	}
	defer body.Close()

	hash, size, err := archive.HashContent(body)
	if err != nil {
		return err
	}

	existing, err := w.store.FindByContentHash(rec.OwnerID, hash)
	if err != nil {
		return err
	}
	if existing != nil && !existing.Trashed() && existing.ID != rec.ID {
		// Content identity is authoritative: the degraded record turned
		// out to duplicate an active one.
		w.logger.Info("degraded item duplicates existing record; trashing it",
			"owner", rec.OwnerID, "item", rec.ID, "existing", existing.ID)
		return w.manager.SoftDelete(rec.OwnerID, rec.ID)
	}

	if err := w.store.SetContentHash(rec.OwnerID, rec.ID, hash, size); err != nil {
		return err
	}
	w.logger.Info("backfilled content hash", "owner", rec.OwnerID, "item", rec.ID)
	return nil
}
