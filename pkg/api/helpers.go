package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/unilib/archivestore/pkg/archive"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// ownerFromQuery parses the mandatory ownerId query parameter.
func ownerFromQuery(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("ownerId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// itemResponse is the wire form of an item record.
type itemResponse struct {
	ID                int64  `json:"id"`
	OwnerID           int64  `json:"ownerId"`
	Category          string `json:"category"`
	MediaKind         string `json:"mediaKind"`
	TransportRef      string `json:"transportRef"`
	TransportIdentity string `json:"transportIdentity,omitempty"`
	ContentHash       string `json:"contentHash,omitempty"`
	DisplayName       string `json:"displayName,omitempty"`
	Note              string `json:"note,omitempty"`
	ByteSize          int64  `json:"byteSize"`
	CreatedAt         string `json:"createdAt"`
	IsFavorite        bool   `json:"isFavorite"`
	DeletedAt         string `json:"deletedAt,omitempty"`
}

func toItemResponse(rec *archive.ItemRecord) itemResponse {
	resp := itemResponse{
		ID:           rec.ID,
		OwnerID:      rec.OwnerID,
		Category:     rec.Category,
		MediaKind:    rec.MediaKind,
		TransportRef: rec.TransportRef,
		DisplayName:  rec.DisplayName,
		Note:         rec.Note,
		ByteSize:     rec.ByteSize,
		CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339),
		IsFavorite:   rec.IsFavorite,
	}
	if rec.TransportIdentity != nil {
		resp.TransportIdentity = *rec.TransportIdentity
	}
	if rec.ContentHash != nil {
		resp.ContentHash = *rec.ContentHash
	}
	if rec.DeletedAt != nil {
		resp.DeletedAt = rec.DeletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toItemResponses(recs []archive.ItemRecord) []itemResponse {
	out := make([]itemResponse, len(recs))
	for i := range recs {
		out[i] = toItemResponse(&recs[i])
	}
	return out
}
