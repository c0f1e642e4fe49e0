package models

import "time"

// Submission represents a student's answer to a task, subject to auto-grading.
type Submission struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	TaskID       uint       `gorm:"not null" json:"task_id"`
	StudentID    uint       `gorm:"not null" json:"student_id"`
	Content      *string    `gorm:"type:text" json:"content"`
	FileURL      string     `gorm:"size:512" json:"file_url"`
	Status       string     `gorm:"size:32;not null" json:"status"`
	AIScore      *int       `gorm:"column:ai_score" json:"ai_score"`
	Points       *int       `json:"points"`
	Feedback     string     `gorm:"type:text" json:"feedback"`
	NeedsReview  bool       `gorm:"not null;default:false" json:"needs_review"`
	SubmittedAt  time.Time  `gorm:"not null" json:"submitted_at"`
	AutoGradedAt *time.Time `gorm:"column:auto_graded_at" json:"auto_graded_at"`
	GradedAt     *time.Time `gorm:"column:graded_at" json:"graded_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Task         Task       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"task"`
	Student      Student    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

const (
	// SubmissionStatusSubmitted indicates the submission is awaiting grading.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGraded indicates the submission has been finalized, by the
	// auto-grader or by an admin decision.
	SubmissionStatusGraded = "graded"
	// SubmissionStatusPendingReview indicates the submission awaits a manual check.
	SubmissionStatusPendingReview = "pending_review"
	// SubmissionStatusRejected indicates an admin rejected the submission and the
	// student has to resubmit.
	SubmissionStatusRejected = "rejected"
)

// IsGraded reports whether the submission carries a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// HasContent reports whether there is anything to grade. Submissions with
// neither inline content nor an attached file are routed to manual review.
func (s Submission) HasContent() bool {
	if s.Content != nil && *s.Content != "" {
		return true
	}
	return s.FileURL != ""
}
