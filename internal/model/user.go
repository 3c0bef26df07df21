package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin     = "ADMIN"
	RoleManager   = "MANAGER"
	RoleEmployee  = "EMPLOYEE"
	RoleCandidate = "CANDIDATE"
)

type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Email     string    `json:"email" gorm:"not null;uniqueIndex"`
	Name      string    `json:"name"`
	Role      string    `json:"role" gorm:"not null;default:'EMPLOYEE'"`
	CompanyID *string   `json:"company_id,omitempty" gorm:"type:varchar(64);index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}
