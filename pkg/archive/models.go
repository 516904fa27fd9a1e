package archive

import (
	"time"
)

// MediaKind describes the payload shape of an archived item. It is
// informational only and never participates in identity.
type MediaKind string

const (
	KindDocument MediaKind = "document"
	KindImage    MediaKind = "image"
	KindVideo    MediaKind = "video"
	KindAudio    MediaKind = "audio"
	KindVoice    MediaKind = "voice"
)

// Valid reports whether k is one of the supported kinds.
func (k MediaKind) Valid() bool {
	switch k {
	case KindDocument, KindImage, KindVideo, KindAudio, KindVoice:
		return true
	}
	return false
}

// ItemRecord is the GORM model for one archived unit.
//
// Identity keys: content_hash is the authoritative identity of the item's
// bytes; transport_identity is the platform-assigned identifier of one
// uploaded instance and is not stable across re-uploads of identical
// content. Uniqueness of (owner_id, transport_identity) is a plain unique
// index; uniqueness of (owner_id, content_hash) is enforced only over
// active rows by a partial index created in AutoMigrate.
type ItemRecord struct {
	ID                int64      `gorm:"primaryKey;autoIncrement;column:id"`
	OwnerID           int64      `gorm:"column:owner_id;index:idx_owner_category,priority:1;uniqueIndex:idx_owner_identity,priority:1;index:idx_owner_hash,priority:1;not null"`
	Category          string     `gorm:"column:category;index:idx_owner_category,priority:2;not null"`
	MediaKind         string     `gorm:"column:media_kind;not null"`
	TransportRef      string     `gorm:"column:transport_ref;not null"`
	TransportIdentity *string    `gorm:"column:transport_identity;uniqueIndex:idx_owner_identity,priority:2"`
	ContentHash       *string    `gorm:"column:content_hash;index:idx_owner_hash,priority:2"`
	DisplayName       string     `gorm:"column:display_name"`
	Note              string     `gorm:"column:note"`
	ByteSize          int64      `gorm:"column:byte_size"`
	CreatedAt         time.Time  `gorm:"column:created_at;not null"`
	IsFavorite        bool       `gorm:"column:is_favorite;not null;default:false"`
	DeletedAt         *time.Time `gorm:"column:deleted_at;index:idx_deleted_at"`
	PayloadPath       string     `gorm:"column:payload_path"`
}

// TableName returns the GORM table name.
func (ItemRecord) TableName() string { return "item_records" }

// Trashed reports whether the record is soft-deleted.
func (r *ItemRecord) Trashed() bool { return r.DeletedAt != nil }
