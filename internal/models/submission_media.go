package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionMedia records one derived artifact belonging to a submission.
// Rows are written once during submission creation and never mutated; a
// submission owns at most one VIDEO and one AUDIO row.
type SubmissionMedia struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	SubmissionID string    `gorm:"size:36;not null;index" json:"submission_id"`
	Type         string    `gorm:"size:16;not null" json:"type"`
	Filename     string    `gorm:"size:255;not null" json:"filename"`
	URL          string    `gorm:"size:2048;not null" json:"url"`
	Size         int64     `gorm:"not null" json:"size"`
	Format       string    `gorm:"size:64" json:"format"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	// MediaTypeVideo marks the silent video artifact.
	MediaTypeVideo = "VIDEO"
	// MediaTypeAudio marks the extracted audio artifact.
	MediaTypeAudio = "AUDIO"
)

// BeforeCreate assigns an opaque identifier when none was provided.
func (m *SubmissionMedia) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
