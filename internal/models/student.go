package models

import "time"

// Student represents a learner that can submit essays for evaluation.
// Rows are seeded up front and never mutated by the submission pipeline.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
