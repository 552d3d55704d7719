package models

import (
	"time"

	"github.com/google/uuid"
)

// Report is an anonymous water-issue submission. Only the solved/audit
// columns change after insert.
type Report struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Description          string     `gorm:"not null;size:1000" json:"description"`
	ImagePath            string     `gorm:"not null;size:255;uniqueIndex" json:"image_path"`
	Location             *string    `gorm:"type:text" json:"location,omitempty"`
	AnonymousDisplayName *string    `gorm:"type:text" json:"anonymous_display_name,omitempty"`
	CreatedAt            time.Time  `gorm:"not null;index:idx_reports_created_at,sort:desc" json:"created_at"`
	Solved               bool       `gorm:"not null;index" json:"solved"`
	SolvedAt             *time.Time `json:"solved_at"`
	SolvedBy             *string    `gorm:"type:text" json:"solved_by"`
}

// Pending reports the inverse of Solved; used by dashboard counters.
func (r *Report) Pending() bool {
	return !r.Solved
}
