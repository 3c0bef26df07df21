package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	InvitationPending  = "PENDING"
	InvitationSent     = "SENT"
	InvitationAccepted = "ACCEPTED"
)

type Invitation struct {
	ID         string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Token      string     `json:"token" gorm:"not null;uniqueIndex"`
	Email      string     `json:"email" gorm:"not null;index"`
	CompanyID  string     `json:"company_id" gorm:"type:varchar(64);not null;index"`
	TestID     *string    `json:"test_id,omitempty" gorm:"type:varchar(64)"`
	Status     string     `json:"status" gorm:"not null;default:'PENDING'"`
	ExpiresAt  time.Time  `json:"expires_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy *string    `json:"accepted_by,omitempty" gorm:"type:varchar(64)"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// ValidAt holds iff now < ExpiresAt and the invitation was never accepted.
func (i *Invitation) ValidAt(now time.Time) bool {
	return now.Before(i.ExpiresAt) && i.AcceptedAt == nil
}
