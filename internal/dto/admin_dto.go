package dto

import "time"

type CompanyCreateDTO struct {
	Name string `json:"name" binding:"required"`
}

type CompanyResponseDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type UserCreateDTO struct {
	Email     string  `json:"email" binding:"required,email"`
	Name      string  `json:"name" binding:"required"`
	Role      string  `json:"role" binding:"required,oneof=ADMIN MANAGER EMPLOYEE CANDIDATE"`
	CompanyID *string `json:"company_id"`
}

type UserResponseDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CompanyID *string   `json:"company_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DimensionCreateDTO declares one rubric dimension. Weight defaults to 1.
type DimensionCreateDTO struct {
	Name   string   `json:"name" binding:"required"`
	Weight *float64 `json:"weight" binding:"omitempty,gte=0"`
}

// QuestionCreateDTO is used within TestCreateDTO for admin test creation.
// Dimension refers to a DimensionCreateDTO by name.
type QuestionCreateDTO struct {
	Text         string             `json:"text" binding:"required"`
	Kind         string             `json:"kind" binding:"required,oneof=likert numeric categorical"`
	OrderInTest  int                `json:"order_in_test" binding:"required,min=1"`
	MinValue     float64            `json:"min_value"`
	MaxValue     float64            `json:"max_value"`
	Weight       *float64           `json:"weight" binding:"omitempty,gte=0"`
	Dimension    *string            `json:"dimension"`
	OptionScores map[string]float64 `json:"option_scores"`
	Reverse      bool               `json:"reverse"`
}

// TestCreateDTO is for admin to create a new test with its rubric and questions.
type TestCreateDTO struct {
	Name        string               `json:"name" binding:"required"`
	Description string               `json:"description,omitempty"`
	Type        string               `json:"type" binding:"required,oneof=personalidade psicossociais outros"`
	Dimensions  []DimensionCreateDTO `json:"dimensions" binding:"dive"`
	Questions   []QuestionCreateDTO  `json:"questions" binding:"required,min=1,dive"`
}

type TestActiveDTO struct {
	Active *bool `json:"active" binding:"required"`
}
