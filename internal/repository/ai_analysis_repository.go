package repository

import (
	"context"

	"github.com/humaniq-ai/humaniq-core/internal/model"
	"gorm.io/gorm"
)

type AIAnalysisRepository interface {
	FindByResultID(ctx context.Context, resultID string) ([]model.AIAnalysis, error)
}

type aiAnalysisRepository struct {
	db *gorm.DB
}

func NewAIAnalysisRepository(db *gorm.DB) AIAnalysisRepository {
	return &aiAnalysisRepository{db: db}
}

func (r *aiAnalysisRepository) FindByResultID(ctx context.Context, resultID string) ([]model.AIAnalysis, error) {
	var analyses []model.AIAnalysis
	err := r.db.WithContext(ctx).Where("result_id = ?", resultID).Order("created_at ASC").Find(&analyses).Error
	return analyses, err
}
