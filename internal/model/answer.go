package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Answer is unique per (session, question); a later write overwrites.
type Answer struct {
	ID         string            `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SessionID  string            `json:"session_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_answer_session_question"`
	QuestionID string            `json:"question_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_answer_session_question"`
	Value      string            `json:"value" gorm:"type:text;not null"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (a *Answer) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
