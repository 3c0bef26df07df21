package repository

import (
	"context"
	"time"

	"github.com/humaniq-ai/humaniq-core/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TestResultRepository interface {
	WithTx(tx *gorm.DB) TestResultRepository
	Create(ctx context.Context, result *model.TestResult) error
	Save(ctx context.Context, result *model.TestResult) error
	FindByID(ctx context.Context, id string) (*model.TestResult, error)
	FindBySessionID(ctx context.Context, sessionID string) (*model.TestResult, error)
	// FindClaimable lists results waiting for analysis whose lease is free.
	FindClaimable(ctx context.Context, now time.Time, limit int) ([]model.TestResult, error)
	// Claim takes the analysis lease on one result and bumps its attempt
	// counter. It reports false when another worker got there first.
	Claim(ctx context.Context, id string, now time.Time, leaseUntil time.Time) (bool, error)
	// CompleteAnalysis stores the analysis of the given attempt and marks the
	// result analyzed. It stores nothing and reports false when the attempt is
	// no longer the current claim: a later claim bumped the counter, or a
	// re-finalize reset the result and dropped the lease.
	CompleteAnalysis(ctx context.Context, id string, attempt int, analysis *model.AIAnalysis, analyzedAt time.Time) (bool, error)
	// ReleaseClaim drops the lease of attempt and records why it failed.
	ReleaseClaim(ctx context.Context, id string, attempt int, lastError string) error
}

type testResultRepository struct {
	db *gorm.DB
}

func NewTestResultRepository(db *gorm.DB) TestResultRepository {
	return &testResultRepository{db: db}
}

func (r *testResultRepository) WithTx(tx *gorm.DB) TestResultRepository {
	return &testResultRepository{db: tx}
}

func (r *testResultRepository) Create(ctx context.Context, result *model.TestResult) error {
	return r.db.WithContext(ctx).Omit("Analyses").Create(result).Error
}

func (r *testResultRepository) Save(ctx context.Context, result *model.TestResult) error {
	return r.db.WithContext(ctx).Omit("Analyses").Save(result).Error
}

func (r *testResultRepository) FindByID(ctx context.Context, id string) (*model.TestResult, error) {
	var result model.TestResult
	if err := r.db.WithContext(ctx).First(&result, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *testResultRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.TestResult, error) {
	var result model.TestResult
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *testResultRepository) FindClaimable(ctx context.Context, now time.Time, limit int) ([]model.TestResult, error) {
	var results []model.TestResult
	err := r.db.WithContext(ctx).
		Where("analysis_status = ?", model.AnalysisReady).
		Where("analysis_lease_until IS NULL OR analysis_lease_until < ?", now).
		Order("completed_at ASC").
		Limit(limit).
		Find(&results).Error
	return results, err
}

func (r *testResultRepository) Claim(ctx context.Context, id string, now time.Time, leaseUntil time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.TestResult{}).
		Where("id = ? AND analysis_status = ?", id, model.AnalysisReady).
		Where("analysis_lease_until IS NULL OR analysis_lease_until < ?", now).
		Updates(map[string]any{
			"analysis_lease_until": leaseUntil,
			"analysis_attempts":    gorm.Expr("analysis_attempts + 1"),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *testResultRepository) currentClaim(tx *gorm.DB, id string, attempt int) *gorm.DB {
	return tx.Model(&model.TestResult{}).
		Where("id = ? AND analysis_status = ? AND analysis_attempts = ?", id, model.AnalysisReady, attempt).
		Where("analysis_lease_until IS NOT NULL")
}

func (r *testResultRepository) CompleteAnalysis(ctx context.Context, id string, attempt int, analysis *model.AIAnalysis, analyzedAt time.Time) (bool, error) {
	stored := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := r.currentClaim(tx, id, attempt).Updates(map[string]any{
			"analysis_status":      model.AnalysisComplete,
			"analyzed_at":          analyzedAt,
			"analysis_lease_until": nil,
			"last_analysis_error":  "",
		})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		// A replayed attempt with the same idempotency key is a no-op insert.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).Create(analysis).Error; err != nil {
			return err
		}
		stored = true
		return nil
	})
	return stored && err == nil, err
}

func (r *testResultRepository) ReleaseClaim(ctx context.Context, id string, attempt int, lastError string) error {
	return r.currentClaim(r.db.WithContext(ctx), id, attempt).
		Updates(map[string]any{
			"analysis_lease_until": nil,
			"last_analysis_error":  lastError,
		}).Error
}
