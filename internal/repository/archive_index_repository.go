package repository

import (
	"context"
	"time"

	"github.com/humaniq-ai/humaniq-core/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArchiveFilter is a conjunction; empty fields do not constrain.
type ArchiveFilter struct {
	ID       string
	UserID   string
	TestType string
	TestID   string
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time // exclusive
	Limit    int
	Offset   int
}

type CountBy struct {
	Value string
	Count int64
}

type AverageBy struct {
	Value   string
	Count   int64
	Average *float64
}

type ArchiveIndexRepository interface {
	Upsert(ctx context.Context, entry *model.ArchiveIndexEntry) error
	Search(ctx context.Context, f ArchiveFilter) ([]model.ArchiveIndexEntry, int64, error)
	// ReplaceAll swaps the whole index in one transaction.
	ReplaceAll(ctx context.Context, entries []model.ArchiveIndexEntry) error
	Count(ctx context.Context) (int64, error)
	CountByColumn(ctx context.Context, column string) ([]CountBy, error)
	CountDistinctUsers(ctx context.Context) (int64, error)
	CompletedAtRange(ctx context.Context) (oldest, newest *time.Time, err error)
	AverageScore(ctx context.Context) (avg *float64, scored int64, err error)
	AverageScoreByTestType(ctx context.Context) ([]AverageBy, error)
}

type archiveIndexRepository struct {
	db *gorm.DB
}

func NewArchiveIndexRepository(db *gorm.DB) ArchiveIndexRepository {
	return &archiveIndexRepository{db: db}
}

func (r *archiveIndexRepository) Upsert(ctx context.Context, entry *model.ArchiveIndexEntry) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(entry).Error
}

func (r *archiveIndexRepository) filtered(ctx context.Context, f ArchiveFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.ArchiveIndexEntry{})
	if f.ID != "" {
		q = q.Where("result_id = ?", f.ID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.TestType != "" {
		q = q.Where("test_type = ?", f.TestType)
	}
	if f.TestID != "" {
		q = q.Where("test_id = ?", f.TestID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DateFrom != nil {
		q = q.Where("completed_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("completed_at < ?", *f.DateTo)
	}
	return q
}

func (r *archiveIndexRepository) Search(ctx context.Context, f ArchiveFilter) ([]model.ArchiveIndexEntry, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []model.ArchiveIndexEntry
	q := r.filtered(ctx, f).Order("completed_at DESC").Order("result_id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *archiveIndexRepository) ReplaceAll(ctx context.Context, entries []model.ArchiveIndexEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.ArchiveIndexEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(entries, 200).Error
	})
}

func (r *archiveIndexRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ArchiveIndexEntry{}).Count(&n).Error
	return n, err
}

// CountByColumn groups by one of the indexed string columns.
func (r *archiveIndexRepository) CountByColumn(ctx context.Context, column string) ([]CountBy, error) {
	switch column {
	case "test_type", "status":
	default:
		return nil, gorm.ErrInvalidField
	}
	var rows []CountBy
	err := r.db.WithContext(ctx).Model(&model.ArchiveIndexEntry{}).
		Select(column + " AS value, COUNT(*) AS count").
		Group(column).
		Order(column).
		Scan(&rows).Error
	return rows, err
}

func (r *archiveIndexRepository) CountDistinctUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ArchiveIndexEntry{}).Distinct("user_id").Count(&n).Error
	return n, err
}

func (r *archiveIndexRepository) CompletedAtRange(ctx context.Context) (*time.Time, *time.Time, error) {
	// Ordered lookups instead of MIN/MAX keep time parsing in the driver on sqlite.
	var oldest, newest model.ArchiveIndexEntry
	db := r.db.WithContext(ctx)
	if err := db.Order("completed_at ASC").Limit(1).Find(&oldest).Error; err != nil {
		return nil, nil, err
	}
	if oldest.Key == "" {
		return nil, nil, nil
	}
	if err := db.Order("completed_at DESC").Limit(1).Find(&newest).Error; err != nil {
		return nil, nil, err
	}
	return &oldest.CompletedAt, &newest.CompletedAt, nil
}

// AverageScore averages only entries that carry a score.
func (r *archiveIndexRepository) AverageScore(ctx context.Context) (*float64, int64, error) {
	var row struct {
		Average *float64
		Scored  int64
	}
	err := r.db.WithContext(ctx).Model(&model.ArchiveIndexEntry{}).
		Select("AVG(score) AS average, COUNT(score) AS scored").
		Where("score IS NOT NULL").
		Scan(&row).Error
	return row.Average, row.Scored, err
}

func (r *archiveIndexRepository) AverageScoreByTestType(ctx context.Context) ([]AverageBy, error) {
	var rows []AverageBy
	err := r.db.WithContext(ctx).Model(&model.ArchiveIndexEntry{}).
		Select("test_type AS value, COUNT(score) AS count, AVG(score) AS average").
		Where("score IS NOT NULL").
		Group("test_type").
		Order("test_type").
		Scan(&rows).Error
	return rows, err
}
