package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	SessionStarted    = "STARTED"
	SessionInProgress = "IN_PROGRESS"
	SessionCompleted  = "COMPLETED"
	SessionAbandoned  = "ABANDONED"
)

// TestSession is one attempt by a user at one test. TotalQuestions is a
// snapshot taken at creation; later edits to the test do not change it.
type TestSession struct {
	ID              string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID          string     `json:"user_id" gorm:"type:varchar(64);not null;index:idx_session_user_test"`
	TestID          string     `json:"test_id" gorm:"type:varchar(64);not null;index:idx_session_user_test"`
	Test            Test       `json:"test,omitempty" gorm:"foreignKey:TestID"`
	Status          string     `json:"status" gorm:"not null;default:'STARTED';index"`
	TotalQuestions  int        `json:"total_questions"`
	CurrentQuestion int        `json:"current_question"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Answers         []Answer   `json:"answers,omitempty" gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (s *TestSession) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	if s.StartedAt.IsZero() {
		s.StartedAt = tx.NowFunc()
	}
	return nil
}

// Open reports whether the session still accepts answers.
func (s *TestSession) Open() bool {
	return s.Status == SessionStarted || s.Status == SessionInProgress
}
