package model

import (
	"time"

	"gorm.io/gorm"
)

// Test types accepted everywhere a testType is given.
const (
	TestTypePersonality  = "personalidade"
	TestTypePsychosocial = "psicossociais"
	TestTypeOther        = "outros"
)

func ValidTestType(t string) bool {
	switch t {
	case TestTypePersonality, TestTypePsychosocial, TestTypeOther:
		return true
	}
	return false
}

type Test struct {
	ID          string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description,omitempty"`
	Type        string         `json:"type" gorm:"not null;default:'outros'"`
	Active      bool           `json:"active" gorm:"not null;default:true"`
	Questions   []Question     `json:"questions,omitempty" gorm:"foreignKey:TestID"`
	Dimensions  []Dimension    `json:"dimensions,omitempty" gorm:"foreignKey:TestID"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Test) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}

// Dimension is a named sub-scale of a test. A nil Weight means equal weight.
type Dimension struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TestID    string    `json:"test_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_dimension_test_name"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex:idx_dimension_test_name"`
	Weight    *float64  `json:"weight,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *Dimension) BeforeCreate(tx *gorm.DB) error {
	assignID(&d.ID)
	return nil
}
