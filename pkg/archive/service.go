package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/unilib/archivestore/pkg/classify"
)

// Submission is one incoming item handed over by the transport layer.
type Submission struct {
	OwnerID           int64
	MediaKind         MediaKind
	TransportRef      string
	TransportIdentity string // optional; empty when the platform assigned none
	DisplayName       string
	Note              string
	// Content streams the item's bytes for hashing and optional local
	// retention. May be nil when the payload could not be fetched; the
	// record is then inserted degraded, without a content hash.
	Content io.Reader
}

// SubmitOutcome reports what happened to a submission that was accepted.
type SubmitOutcome struct {
	Record   *ItemRecord
	Category classify.Category
	// Restored is true when the submission matched a trashed record that
	// was revived instead of inserting a new row.
	Restored bool
	// Degraded is true when the record was stored without a content hash.
	Degraded bool
}

// Service runs the submission pipeline: kind validation, classification,
// streamed hashing, duplicate detection, restore-on-reupload, and the
// final dedup-gated insert.
type Service struct {
	store      *ArchiveStore
	dedup      *Deduper
	resolver   *classify.Resolver
	payloadDir string
	logger     *slog.Logger
}

// NewService creates a Service. payloadDir enables retention of a local
// payload copy alongside the record; empty disables it.
func NewService(store *ArchiveStore, resolver *classify.Resolver, payloadDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		dedup:      NewDeduper(store),
		resolver:   resolver,
		payloadDir: payloadDir,
		logger:     logger,
	}
}

// SubmitItem archives one incoming item. Duplicate submissions return a
// typed *DuplicateContentError or *DuplicateIdentityError carrying the
// existing record; they are steady-state outcomes the caller reports, not
// failures. A submission matching a trashed record revives that record
// (same id) and reports Restored.
func (s *Service) SubmitItem(ctx context.Context, sub Submission, session classify.SessionState) (*SubmitOutcome, error) {
	if !sub.MediaKind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, sub.MediaKind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	category, note := s.resolver.Resolve(sub.Note, session)

	var identity *string
	if sub.TransportIdentity != "" {
		identity = &sub.TransportIdentity
	}

	// Identity probe before paying for the hash: if this exact upload
	// instance was seen before there is nothing to hash.
	probe, err := s.dedup.Check(sub.OwnerID, identity, nil)
	if err != nil {
		return nil, err
	}
	switch probe.Status {
	case ActiveMatch:
		return nil, &DuplicateIdentityError{Existing: probe.Record}
	case TrashedMatch:
		return s.revive(probe.Record, sub, category)
	}

	hash, size, payloadTmp, hashErr := s.consumeContent(sub.Content)
	if hashErr != nil {
		// Degraded mode: keep the record, protected only by the identity
		// index until the re-hash sweep backfills the hash.
		s.logger.Warn("content hashing failed; archiving degraded record",
			"owner", sub.OwnerID, "transportRef", sub.TransportRef, "error", hashErr)
	}

	var hashPtr *string
	if hashErr == nil && hash != "" {
		hashPtr = &hash
		result, err := s.dedup.Check(sub.OwnerID, nil, hashPtr)
		if err != nil {
			s.discardPayload(payloadTmp)
			return nil, err
		}
		switch result.Status {
		case ActiveMatch:
			s.discardPayload(payloadTmp)
			return nil, &DuplicateContentError{Existing: result.Record}
		case TrashedMatch:
			s.discardPayload(payloadTmp)
			return s.revive(result.Record, sub, category)
		}
	}

	rec := &ItemRecord{
		OwnerID:           sub.OwnerID,
		Category:          string(category),
		MediaKind:         string(sub.MediaKind),
		TransportRef:      sub.TransportRef,
		TransportIdentity: identity,
		ContentHash:       hashPtr,
		DisplayName:       sub.DisplayName,
		Note:              note,
		ByteSize:          size,
		CreatedAt:         time.Now().UTC(),
	}
	if payloadTmp != "" {
		rec.PayloadPath = s.finalPayloadPath(sub.OwnerID, hashPtr)
	}

	if err := s.store.Insert(rec); err != nil {
		s.discardPayload(payloadTmp)
		// A concurrent identical submission may have won the insert race;
		// the trashed variant still means restore-on-reupload.
		if dup, ok := err.(*DuplicateContentError); ok && dup.Existing.Trashed() {
			return s.revive(dup.Existing, sub, category)
		}
		return nil, err
	}

	if payloadTmp != "" {
		if err := retainPayload(payloadTmp, rec.PayloadPath); err != nil {
			s.logger.Warn("retaining payload copy failed", "item", rec.ID, "error", err)
			s.discardPayload(payloadTmp)
			rec.PayloadPath = ""
			if err := s.store.ClearPayloadPath(rec.OwnerID, rec.ID); err != nil {
				s.logger.Warn("clearing payload path failed", "item", rec.ID, "error", err)
			}
		}
	}

	return &SubmitOutcome{
		Record:   rec,
		Category: category,
		Degraded: rec.ContentHash == nil,
	}, nil
}

// revive restores a trashed equivalent instead of inserting a new record,
// refreshing its transport fields with the new upload instance.
func (s *Service) revive(trashed *ItemRecord, sub Submission, category classify.Category) (*SubmitOutcome, error) {
	var identity *string
	if sub.TransportIdentity != "" {
		identity = &sub.TransportIdentity
	}
	rec, err := s.store.Revive(trashed.OwnerID, trashed.ID, sub.TransportRef, identity)
	if err != nil {
		return nil, err
	}
	s.logger.Info("restored trashed item on re-upload", "owner", rec.OwnerID, "item", rec.ID)
	return &SubmitOutcome{
		Record:   rec,
		Category: classify.Category(rec.Category),
		Restored: true,
		Degraded: rec.ContentHash == nil,
	}, nil
}

// consumeContent hashes the payload stream and, when retention is enabled,
// tees it into a temporary file in the payload directory. Returns the hex
// digest, byte count, and temp file path (empty when retention is off or
// the stream was nil).
func (s *Service) consumeContent(content io.Reader) (hash string, size int64, tmpPath string, err error) {
	if content == nil {
		return "", 0, "", fmt.Errorf("no content stream")
	}

	r := content
	var tmp *os.File
	if s.payloadDir != "" {
		tmp, err = os.CreateTemp(s.payloadDir, "incoming-*")
		if err != nil {
			s.logger.Warn("payload retention unavailable", "error", err)
		} else {
			r = io.TeeReader(content, tmp)
		}
	}

	hash, size, err = HashContent(r)
	if tmp != nil {
		closeErr := tmp.Close()
		if err == nil && closeErr != nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(tmp.Name())
			return "", size, "", err
		}
		tmpPath = tmp.Name()
	}
	if err != nil {
		return "", size, "", err
	}
	return hash, size, tmpPath, nil
}

// finalPayloadPath names retained payloads by content hash under a
// per-owner directory. Owner scoping keeps each record's copy its own:
// identical bytes submitted by two owners must never share a file, because
// purging one record removes its copy. Degraded payloads get a random name.
func (s *Service) finalPayloadPath(ownerID int64, hash *string) string {
	name := uuid.NewString()
	if hash != nil {
		name = *hash
	}
	return filepath.Join(s.payloadDir, strconv.FormatInt(ownerID, 10), name+".bin")
}

// retainPayload moves the hashed temp file to its final per-owner location.
func retainPayload(tmpPath, finalPath string) error {
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return err
	}
	return os.Rename(tmpPath, finalPath)
}

func (s *Service) discardPayload(tmpPath string) {
	if tmpPath != "" {
		os.Remove(tmpPath)
	}
}
