package dto

import "time"

type InvitationCreateDTO struct {
	Email     string  `json:"email" binding:"required,email"`
	CompanyID string  `json:"company_id" binding:"required"`
	TestID    *string `json:"test_id"`
}

type InvitationResponseDTO struct {
	Token      string     `json:"token"`
	Email      string     `json:"email"`
	CompanyID  string     `json:"company_id"`
	TestID     *string    `json:"test_id,omitempty"`
	Status     string     `json:"status"`
	ExpiresAt  time.Time  `json:"expires_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	Valid      bool       `json:"valid"`
}

type InvitationAcceptResponseDTO struct {
	Invitation InvitationResponseDTO `json:"invitation"`

	// Session is the session opened for the attached test, if any.
	Session *SessionResponseDTO `json:"session,omitempty"`
}
