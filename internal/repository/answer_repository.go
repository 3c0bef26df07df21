package repository

import (
	"context"

	"github.com/humaniq-ai/humaniq-core/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerRepository interface {
	WithTx(tx *gorm.DB) AnswerRepository
	// Upsert writes the answer keyed by (session, question); the last write wins.
	Upsert(ctx context.Context, answer *model.Answer) error
	Find(ctx context.Context, sessionID, questionID string) (*model.Answer, error)
	FindBySessionID(ctx context.Context, sessionID string) ([]model.Answer, error)
	CountBySessionID(ctx context.Context, sessionID string) (int64, error)
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) WithTx(tx *gorm.DB) AnswerRepository {
	return &answerRepository{db: tx}
}

func (r *answerRepository) Upsert(ctx context.Context, answer *model.Answer) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "metadata", "updated_at"}),
	}).Create(answer).Error
}

func (r *answerRepository) Find(ctx context.Context, sessionID, questionID string) (*model.Answer, error) {
	var answer model.Answer
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		First(&answer).Error
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *answerRepository) FindBySessionID(ctx context.Context, sessionID string) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at ASC").Find(&answers).Error
	return answers, err
}

func (r *answerRepository) CountBySessionID(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Answer{}).Where("session_id = ?", sessionID).Count(&n).Error
	return n, err
}
