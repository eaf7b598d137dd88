package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/essay-eval-api/internal/models"
)

// SubmissionLogRepository exposes read access to the evaluation audit trail.
// Log rows are only ever written through SubmissionRepository.FinishEvaluation.
type SubmissionLogRepository interface {
	ListBySubmission(ctx context.Context, submissionID string) ([]models.SubmissionLog, error)
}

type submissionLogRepository struct {
	db *gorm.DB
}

// NewSubmissionLogRepository instantiates the repository.
func NewSubmissionLogRepository(db *gorm.DB) SubmissionLogRepository {
	return &submissionLogRepository{db: db}
}

func (r *submissionLogRepository) ListBySubmission(ctx context.Context, submissionID string) ([]models.SubmissionLog, error) {
	var logs []models.SubmissionLog
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}

	return logs, nil
}
