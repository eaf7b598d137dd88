package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Revision tracks one re-evaluation attempt against an existing submission.
// It starts PENDING and is advanced to COMPLETED or FAILED.
type Revision struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	SubmissionID string    `gorm:"size:36;not null;index" json:"submission_id"`
	Status       string    `gorm:"size:32;not null;default:PENDING" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns an opaque identifier when none was provided.
func (r *Revision) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = SubmissionStatusPending
	}
	return nil
}
