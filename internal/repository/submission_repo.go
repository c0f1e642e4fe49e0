package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/bilim-edu/grading-api/internal/models"
)

// SubmissionRepository defines data operations the grading pipeline needs.
type SubmissionRepository interface {
	ListPending(ctx context.Context, limit int) ([]models.Submission, error)
	ListNeedsReview(ctx context.Context, limit int) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	Update(ctx context.Context, submission *models.Submission) error
	CountByStatus(ctx context.Context, status string) (int64, error)
	CountNeedsReview(ctx context.Context) (int64, error)
	LastAutoGradedAt(ctx context.Context) (*time.Time, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Task").
		Preload("Student")
}

// ListPending returns the oldest submissions still awaiting grading. The
// bound keeps a batch run inside the caller's request-timeout budget.
func (r *submissionRepository) ListPending(ctx context.Context, limit int) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("status = ?", models.SubmissionStatusSubmitted).
		Order("submitted_at ASC").
		Limit(limit).
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

// ListNeedsReview returns flagged submissions, newest auto-graded first.
func (r *submissionRepository) ListNeedsReview(ctx context.Context, limit int) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("needs_review = ?", true).
		Order("auto_graded_at DESC").
		Limit(limit).
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *submissionRepository) CountNeedsReview(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("needs_review = ?", true).
		Count(&count).Error
	return count, err
}

// LastAutoGradedAt returns the most recent auto-grading timestamp, or nil
// when nothing has been auto-graded yet.
func (r *submissionRepository) LastAutoGradedAt(ctx context.Context) (*time.Time, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("auto_graded_at IS NOT NULL").
		Order("auto_graded_at DESC").
		Select("auto_graded_at").
		First(&submission).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return submission.AutoGradedAt, nil
}
