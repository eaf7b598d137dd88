package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/essay-eval-api/internal/models"
)

// RevisionRepository defines data operations for revisions.
type RevisionRepository interface {
	Create(ctx context.Context, revision *models.Revision) error
	UpdateStatus(ctx context.Context, id, status string) error
}

type revisionRepository struct {
	db *gorm.DB
}

// NewRevisionRepository instantiates the repository.
func NewRevisionRepository(db *gorm.DB) RevisionRepository {
	return &revisionRepository{db: db}
}

func (r *revisionRepository) Create(ctx context.Context, revision *models.Revision) error {
	return r.db.WithContext(ctx).Create(revision).Error
}

func (r *revisionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&models.Revision{}).
		Where("id = ?", id).
		Update("status", status).Error
}
