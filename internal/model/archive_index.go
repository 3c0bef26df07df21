package model

import (
	"time"

	"gorm.io/datatypes"
)

// ArchiveIndexEntry is the searchable projection of one archived result.
// Key is the content-addressed digest of (userID, testType, testID, resultID).
type ArchiveIndexEntry struct {
	Key         string            `gorm:"primaryKey;type:varchar(64)" json:"key"`
	ResultID    string            `json:"id" gorm:"type:varchar(64);not null;index"`
	UserID      string            `json:"user_id" gorm:"type:varchar(64);not null;index"`
	TestType    string            `json:"test_type" gorm:"not null;index"`
	TestID      string            `json:"test_id" gorm:"type:varchar(64);not null;index"`
	CompletedAt time.Time         `json:"completed_at" gorm:"index"`
	Status      string            `json:"status" gorm:"not null;index"`
	Score       *float64          `json:"score,omitempty"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	Path        string            `json:"path" gorm:"not null"`
	ArchivedAt  time.Time         `json:"archived_at"`
}

func (ArchiveIndexEntry) TableName() string { return "archive_index_entries" }
