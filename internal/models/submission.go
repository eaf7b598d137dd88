package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission is one student's attempt at one assignment component.
// At most one submission may exist per (student, component type) pair.
type Submission struct {
	ID            string            `gorm:"primaryKey;size:36" json:"id"`
	StudentID     uint              `gorm:"not null;uniqueIndex:idx_student_component" json:"student_id"`
	ComponentType string            `gorm:"size:128;not null;uniqueIndex:idx_student_component" json:"component_type"`
	SubmitText    string            `gorm:"type:text;not null" json:"submit_text"`
	Score         *int              `json:"score"`
	Feedback      *string           `gorm:"type:text" json:"feedback"`
	Highlights    datatypes.JSON    `gorm:"type:json" json:"highlights"`
	AnnotatedText *string           `gorm:"type:text" json:"annotated_text"`
	Status        string            `gorm:"size:32;not null;default:PENDING" json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Student       Student           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Media         []SubmissionMedia `gorm:"constraint:OnDelete:CASCADE" json:"media"`
}

const (
	// SubmissionStatusPending indicates the submission exists but has not been evaluated.
	SubmissionStatusPending = "PENDING"
	// SubmissionStatusCompleted indicates the evaluation finished and all result fields are set.
	SubmissionStatusCompleted = "COMPLETED"
	// SubmissionStatusFailed indicates the evaluation attempt failed.
	SubmissionStatusFailed = "FAILED"
)

// BeforeCreate assigns an opaque identifier when none was provided.
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// HighlightList decodes the stored highlights column. A missing or
// malformed column yields an empty slice.
func (s Submission) HighlightList() []string {
	if len(s.Highlights) == 0 {
		return []string{}
	}
	var highlights []string
	if err := json.Unmarshal(s.Highlights, &highlights); err != nil {
		return []string{}
	}
	return highlights
}

// IsCompleted reports whether the submission carries a finished evaluation.
func (s Submission) IsCompleted() bool {
	return s.Status == SubmissionStatusCompleted
}
