package db

import (
	"time"

	"gorm.io/datatypes"
)

// Document is one shared-state document, addressed by its hierarchical path.
// The field map is stored whole as JSONB; merge writes are read-modify-write
// on the row. Collection holds the parent collection path so collection
// queries stay a single indexed lookup.
type Document struct {
	Path       string         `gorm:"primaryKey;size:512"`
	Collection string         `gorm:"size:512;index;not null"`
	Fields     datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
}

// PoolItem is one content record loaded by cmd/load-pools. Answer and
// aliases never leave the server through the pools API.
type PoolItem struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    string         `gorm:"size:64;not null;uniqueIndex:idx_pool_items_game_item"`
	ItemID    string         `gorm:"size:64;not null;uniqueIndex:idx_pool_items_game_item"`
	Text      datatypes.JSON `gorm:"type:jsonb;not null"`
	Answer    string         `gorm:"size:280"`
	Aliases   datatypes.JSON `gorm:"type:jsonb"`
	Points    int            `gorm:"not null;default:0"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}
