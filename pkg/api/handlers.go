// Package api exposes the archive's collaborator-facing HTTP surface: item
// submission, category declaration, the query views, trash operations, and
// the administrator purge/snapshot routes.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unilib/archivestore/pkg/archive"
	"github.com/unilib/archivestore/pkg/cache"
	"github.com/unilib/archivestore/pkg/classify"
	"github.com/unilib/archivestore/pkg/lifecycle"
	"github.com/unilib/archivestore/pkg/snapshot"
)

// Handlers bundles the components behind the HTTP surface.
type Handlers struct {
	service   *archive.Service
	store     *archive.ArchiveStore
	lifecycle *lifecycle.Manager
	resolver  *classify.Resolver
	snapshots *snapshot.Manager
	items     *cache.ItemCache
	cfg       *archive.Config
	logger    *slog.Logger
}

// NewHandlers creates the handler set. items may be nil to disable the
// metadata cache.
func NewHandlers(
	service *archive.Service,
	store *archive.ArchiveStore,
	lm *lifecycle.Manager,
	resolver *classify.Resolver,
	snapshots *snapshot.Manager,
	items *cache.ItemCache,
	cfg *archive.Config,
	logger *slog.Logger,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   service,
		store:     store,
		lifecycle: lm,
		resolver:  resolver,
		snapshots: snapshots,
		items:     items,
		cfg:       cfg,
		logger:    logger,
	}
}

// submitMeta is the JSON "meta" part of a submission request.
type submitMeta struct {
	OwnerID           int64                 `json:"ownerId"`
	MediaKind         string                `json:"mediaKind"`
	TransportRef      string                `json:"transportRef"`
	TransportIdentity string                `json:"transportIdentity,omitempty"`
	DisplayName       string                `json:"displayName,omitempty"`
	Note              string                `json:"note,omitempty"`
	Session           classify.SessionState `json:"session"`
}

// SubmitItem handles POST /api/v1/items. The request is multipart: a
// "meta" part carrying JSON metadata followed by an optional "content"
// part whose bytes are streamed straight into hashing, never buffered
// whole.
func (h *Handlers) SubmitItem(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart request with meta and content parts")
		return
	}

	meta, content, err := readSubmitParts(mr)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if meta.OwnerID <= 0 || meta.TransportRef == "" {
		writeError(w, http.StatusBadRequest, "ownerId and transportRef are required")
		return
	}

	outcome, err := h.service.SubmitItem(r.Context(), archive.Submission{
		OwnerID:           meta.OwnerID,
		MediaKind:         archive.MediaKind(meta.MediaKind),
		TransportRef:      meta.TransportRef,
		TransportIdentity: meta.TransportIdentity,
		DisplayName:       meta.DisplayName,
		Note:              meta.Note,
		Content:           content,
	}, meta.Session)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	status := http.StatusCreated
	message := fmt.Sprintf("archived as record #%d", outcome.Record.ID)
	if outcome.Restored {
		status = http.StatusOK
		message = fmt.Sprintf("record #%d restored from trash", outcome.Record.ID)
	}
	writeJSON(w, status, map[string]any{
		"item":     toItemResponse(outcome.Record),
		"category": outcome.Category,
		"restored": outcome.Restored,
		"degraded": outcome.Degraded,
		"message":  message,
	})
}

// readSubmitParts walks the multipart stream: "meta" must come first so
// the content part can be handed to the service without rewinding.
func readSubmitParts(mr *multipart.Reader) (submitMeta, io.Reader, error) {
	var meta submitMeta

	part, err := mr.NextPart()
	if err != nil {
		return meta, nil, fmt.Errorf("missing meta part")
	}
	if part.FormName() != "meta" {
		return meta, nil, fmt.Errorf("first part must be meta, got %q", part.FormName())
	}
	if err := json.NewDecoder(part).Decode(&meta); err != nil {
		return meta, nil, fmt.Errorf("decode meta: %v", err)
	}

	part, err = mr.NextPart()
	if err == io.EOF {
		return meta, nil, nil
	}
	if err != nil {
		return meta, nil, fmt.Errorf("read content part: %v", err)
	}
	if part.FormName() != "content" {
		return meta, nil, fmt.Errorf("second part must be content, got %q", part.FormName())
	}
	return meta, part, nil
}

func (h *Handlers) writeSubmitError(w http.ResponseWriter, err error) {
	var dupContent *archive.DuplicateContentError
	var dupIdentity *archive.DuplicateIdentityError
	switch {
	case errors.As(err, &dupContent):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   "duplicate_content",
			"message": fmt.Sprintf("already archived, record #%d", dupContent.Existing.ID),
			"item":    toItemResponse(dupContent.Existing),
		})
	case errors.As(err, &dupIdentity):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   "duplicate_identity",
			"message": fmt.Sprintf("already archived, record #%d", dupIdentity.Existing.ID),
			"item":    toItemResponse(dupIdentity.Existing),
		})
	case errors.Is(err, archive.ErrUnsupportedKind):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("submit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive store unavailable")
	}
}

// DeclareCategory handles POST /api/v1/session/category. It sets the
// sticky binding on the caller-owned session state and returns the updated
// state; the caller stores it and passes it back with submissions.
func (h *Handlers) DeclareCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string                `json:"category"`
		Session  classify.SessionState `json:"session"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := h.resolver.Catalog().Normalize(req.Category); !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", req.Category))
		return
	}
	session := h.resolver.DeclareCategory(req.Session, classify.Category(req.Category))
	writeJSON(w, http.StatusOK, map[string]any{"session": session})
}

// Categories handles GET /api/v1/categories. Counts cover active records
// only.
func (h *Handlers) Categories(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "valid ownerId is required")
		return
	}
	counts, err := h.store.CountByCategory(ownerID)
	if err != nil {
		h.logger.Error("count by category failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive store unavailable")
		return
	}
	type categoryCount struct {
		Name  string `json:"name"`
		Label string `json:"label"`
		Count int64  `json:"count"`
	}
	specs := h.resolver.Catalog().Categories()
	out := make([]categoryCount, len(specs))
	for i, spec := range specs {
		out[i] = categoryCount{
			Name:  string(spec.Name),
			Label: spec.Label,
			Count: counts[string(spec.Name)],
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

// ListItems handles GET /api/v1/items?ownerId=&category=&page=.
func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "valid ownerId is required")
		return
	}
	category := r.URL.Query().Get("category")
	if category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}
	page := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			page = n
		}
	}

	items, hasMore, err := h.store.ListByCategory(ownerID, category, page*h.store.PageSize())
	if err != nil {
		h.logger.Error("list by category failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":   toItemResponses(items),
		"page":    page,
		"hasMore": hasMore,
	})
}

// GetItem handles GET /api/v1/items/{itemID}. Trashed records are not
// served here; they are visible only through the trash view.
func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "valid ownerId is required")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if h.items != nil {
		if rec, ok := h.items.Get(ownerID, id); ok && !rec.Trashed() {
			writeJSON(w, http.StatusOK, toItemResponse(rec))
			return
		}
	}

	rec, err := h.store.Get(ownerID, id)
	if err != nil {
		h.logger.Error("get item failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive store unavailable")
		return
	}
	if rec == nil || rec.Trashed() {
		writeError(w, http.StatusNotFound, fmt.Sprintf("item #%d not found", id))
		return
	}
	if h.items != nil {
		h.items.Set(rec)
	}
	writeJSON(w, http.StatusOK, toItemResponse(rec))
}

// Recent handles GET /api/v1/items/recent.
func (h *Handlers) Recent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "valid ownerId is required")
		return
	}
	items, err := h.store.ListRecent(ownerID, h.cfg.RecentLimit)
	if err != nil {
		h.logger.Error("list recent failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": toItemResponses(items)})
}

// Favorites handles GET /api/v1/favorites.
func (h *Handlers) Favorites(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "valid ownerId is required")
		return
	}
	items, err := h.store.ListFavorites(ownerID, h.cfg.FavoritesLimit)
	if err != nil {
		h.logger.Error("list favorites failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": toItemResponses(items)})
}

// SetFavorite handles PUT /api/v1/items/{itemID}/favorite.
func (h *Handlers) SetFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req struct {
		OwnerID  int64 `json:"ownerId"`
		Favorite bool  `json:"favorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID <= 0 {
		writeError(w, http.StatusBadRequest, "ownerId is required")
		return
	}

	if err := h.store.SetFavorite(req.OwnerID, id, req.Favorite); err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("item #%d not found", id))
			return
		}
		h.logger.Error("set favorite failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive store unavailable")
		return
	}
	if h.items != nil {
		h.items.Invalidate(req.OwnerID, id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": req.Favorite})
}

// Search handles GET /api/v1/search?ownerId=&q=.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "valid ownerId is required")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := h.cfg.SearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	items, err := h.store.Search(ownerID, query, limit)
	if err != nil {
		h.logger.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": toItemResponses(items), "query": query})
}

// DeleteItem handles DELETE /api/v1/items/{itemID}: a soft delete.
func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "valid ownerId is required")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.lifecycle.SoftDelete(ownerID, id); err != nil {
		h.logger.Error("soft delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive store unavailable")
		return
	}
	if h.items != nil {
		h.items.Invalidate(ownerID, id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "trashed": true})
}

// RestoreItem handles POST /api/v1/items/{itemID}/restore.
func (h *Handlers) RestoreItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req struct {
		OwnerID int64 `json:"ownerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID <= 0 {
		writeError(w, http.StatusBadRequest, "ownerId is required")
		return
	}

	if err := h.lifecycle.Restore(req.OwnerID, id); err != nil {
		h.logger.Error("restore failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive store unavailable")
		return
	}
	if h.items != nil {
		h.items.Invalidate(req.OwnerID, id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "trashed": false})
}

// Trash handles GET /api/v1/trash.
func (h *Handlers) Trash(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "valid ownerId is required")
		return
	}
	items, err := h.lifecycle.ListTrash(ownerID)
	if err != nil {
		h.logger.Error("list trash failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": toItemResponses(items)})
}

// Purge handles POST /api/v1/admin/purge. With an ownerId it purges one
// owner's expired trash; without, everyone's. Reports the exact count.
func (h *Handlers) Purge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID       int64 `json:"ownerId,omitempty"`
		RetentionDays int   `json:"retentionDays,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	retention := req.RetentionDays
	if retention <= 0 {
		retention = h.cfg.RetentionDays
	}

	var (
		purged int
		err    error
	)
	if req.OwnerID > 0 {
		purged, err = h.lifecycle.PurgeExpired(req.OwnerID, retention)
	} else {
		purged, err = h.lifecycle.PurgeAllExpired(retention)
	}
	if err != nil {
		h.logger.Error("purge failed", "error", err)
		writeError(w, http.StatusInternalServerError, "archive store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purged": purged, "retentionDays": retention})
}

// CreateSnapshot handles POST /api/v1/admin/snapshots.
func (h *Handlers) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	handle, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("snapshot failed", "error", err)
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}
	writeJSON(w, http.StatusCreated, handle)
}

// ListSnapshots handles GET /api/v1/admin/snapshots.
func (h *Handlers) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	handles, err := h.snapshots.List()
	if err != nil {
		h.logger.Error("list snapshots failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list snapshots failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": handles})
}
