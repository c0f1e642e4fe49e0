package models

import "time"

// Task defines the grading context for submissions. The grading core only
// reads tasks, it never mutates them.
type Task struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Instructions string    `gorm:"type:text" json:"instructions"`
	MaxScore     int       `gorm:"not null;default:100" json:"max_score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Submissions  []Submission
}
