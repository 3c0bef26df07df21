package repository

import (
	"context"
	"time"

	"github.com/humaniq-ai/humaniq-core/internal/model"
	"gorm.io/gorm"
)

type TestSessionRepository interface {
	WithTx(tx *gorm.DB) TestSessionRepository
	Create(ctx context.Context, session *model.TestSession) error
	FindByID(ctx context.Context, id string) (*model.TestSession, error)
	FindLatestOpen(ctx context.Context, userID, testID string) (*model.TestSession, error)
	// TransitionStatus moves the session from one of `from` to `to` and
	// reports whether a row changed.
	TransitionStatus(ctx context.Context, id string, from []string, to string, completedAt *time.Time) (bool, error)
	UpdateProgress(ctx context.Context, id string, currentQuestion int) error
}

type testSessionRepository struct {
	db *gorm.DB
}

func NewTestSessionRepository(db *gorm.DB) TestSessionRepository {
	return &testSessionRepository{db: db}
}

func (r *testSessionRepository) WithTx(tx *gorm.DB) TestSessionRepository {
	return &testSessionRepository{db: tx}
}

func (r *testSessionRepository) Create(ctx context.Context, session *model.TestSession) error {
	return r.db.WithContext(ctx).Omit("Test", "Answers").Create(session).Error
}

func (r *testSessionRepository) FindByID(ctx context.Context, id string) (*model.TestSession, error) {
	var session model.TestSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *testSessionRepository) FindLatestOpen(ctx context.Context, userID, testID string) (*model.TestSession, error) {
	var session model.TestSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND test_id = ?", userID, testID).
		Where("status IN ?", []string{model.SessionStarted, model.SessionInProgress}).
		Order("started_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *testSessionRepository) TransitionStatus(ctx context.Context, id string, from []string, to string, completedAt *time.Time) (bool, error) {
	updates := map[string]any{"status": to}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	res := r.db.WithContext(ctx).Model(&model.TestSession{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *testSessionRepository) UpdateProgress(ctx context.Context, id string, currentQuestion int) error {
	return r.db.WithContext(ctx).Model(&model.TestSession{}).
		Where("id = ?", id).
		Update("current_question", currentQuestion).Error
}
