package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/essay-eval-api/internal/models"
)

// FinishEvaluationParams carries the result of one successful evaluation
// attempt. The log append and the submission update are committed together.
type FinishEvaluationParams struct {
	SubmissionID  string
	RevisionID    *string
	Result        datatypes.JSON
	LatencyMS     int64
	TraceID       string
	Score         int
	Feedback      string
	Highlights    datatypes.JSON
	AnnotatedText string
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (models.Submission, error)
	GetByStudentAndComponent(ctx context.Context, studentID uint, componentType string) (models.Submission, error)
	FinishEvaluation(ctx context.Context, params FinishEvaluationParams) (models.Submission, error)
	MarkFailed(ctx context.Context, id string) error
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
		Preload("Student").
		Preload("Media")
}

// Create persists the submission together with any nested media rows.
func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).Where("id = ?", id).First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByStudentAndComponent(ctx context.Context, studentID uint, componentType string) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("component_type = ?", componentType).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// FinishEvaluation appends the audit log row and applies the evaluation
// result to the submission inside a single transaction, so a reader never
// observes a COMPLETED submission without its log row or vice versa.
func (r *submissionRepository) FinishEvaluation(ctx context.Context, params FinishEvaluationParams) (models.Submission, error) {
	var updated models.Submission

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		logRow := models.SubmissionLog{
			SubmissionID: params.SubmissionID,
			RevisionID:   params.RevisionID,
			Result:       params.Result,
			LatencyMS:    params.LatencyMS,
			TraceID:      params.TraceID,
		}
		if err := tx.Create(&logRow).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Submission{}).
			Where("id = ?", params.SubmissionID).
			Updates(map[string]interface{}{
				"score":          params.Score,
				"feedback":       params.Feedback,
				"highlights":     params.Highlights,
				"annotated_text": params.AnnotatedText,
				"status":         models.SubmissionStatusCompleted,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Preload("Student").Preload("Media").
			Where("id = ?", params.SubmissionID).
			First(&updated).Error
	})
	if err != nil {
		return models.Submission{}, err
	}

	return updated, nil
}

// MarkFailed is the compensating write applied when an evaluation attempt
// fails. It runs outside the evaluation transaction.
func (r *submissionRepository) MarkFailed(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ?", id).
		Update("status", models.SubmissionStatusFailed).Error
}
