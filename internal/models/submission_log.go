package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmissionLog is the append-only audit record of one evaluation attempt
// that reached the scoring service. Rows are never updated or deleted.
type SubmissionLog struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	SubmissionID string         `gorm:"size:36;not null;index" json:"submission_id"`
	RevisionID   *string        `gorm:"size:36;index" json:"revision_id"`
	Result       datatypes.JSON `gorm:"type:json;not null" json:"result"`
	LatencyMS    int64          `gorm:"not null" json:"latency_ms"`
	TraceID      string         `gorm:"size:32;not null;index" json:"trace_id"`
	CreatedAt    time.Time      `json:"created_at"`
}

// BeforeCreate assigns an opaque identifier when none was provided.
func (l *SubmissionLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
