package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	QuestionKindLikert      = "likert"
	QuestionKindNumeric     = "numeric"
	QuestionKindCategorical = "categorical"
)

// Question belongs to one test and optionally one dimension. Reverse-keyed
// items score as 100 minus their normalized value.
type Question struct {
	ID           string                                 `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TestID       string                                 `json:"test_id" gorm:"type:varchar(64);not null;index"`
	DimensionID  *string                                `json:"dimension_id,omitempty" gorm:"type:varchar(64);index"`
	Text         string                                 `json:"text" gorm:"type:text;not null"`
	Kind         string                                 `json:"kind" gorm:"not null;default:'likert'"`
	OrderInTest  int                                    `json:"order_in_test" gorm:"not null"`
	MinValue     float64                                `json:"min_value"`
	MaxValue     float64                                `json:"max_value"`
	Weight       *float64                               `json:"weight,omitempty"`
	Reverse      bool                                   `json:"reverse"`
	OptionScores datatypes.JSONType[map[string]float64] `json:"option_scores,omitempty"`
	CreatedAt    time.Time                              `json:"created_at"`
	UpdatedAt    time.Time                              `json:"updated_at"`
	DeletedAt    gorm.DeletedAt                         `gorm:"index" json:"-"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	assignID(&q.ID)
	return nil
}
