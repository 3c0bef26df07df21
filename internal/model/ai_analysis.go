package model

import (
	"time"

	"gorm.io/gorm"
)

// AIAnalysis is one successful analysis attempt. IdempotencyKey is
// "<resultID>:<attempt>" so a replayed attempt cannot insert twice.
type AIAnalysis struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ResultID       string    `json:"result_id" gorm:"type:varchar(64);not null;index"`
	IdempotencyKey string    `json:"idempotency_key" gorm:"not null;uniqueIndex"`
	Model          string    `json:"model"`
	Confidence     float64   `json:"confidence"`
	Explanation    string    `json:"explanation" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
}

func (a *AIAnalysis) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
