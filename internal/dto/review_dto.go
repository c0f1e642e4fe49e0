package dto

import (
	"time"

	"github.com/bilim-edu/grading-api/internal/models"
)

// ReviewDecisionRequest applies an admin decision to a flagged submission.
type ReviewDecisionRequest struct {
	SubmissionID uint    `json:"submissionId" validate:"required,gt=0"`
	FinalPoints  *int    `json:"finalPoints" validate:"omitempty,gte=0"`
	Feedback     *string `json:"feedback"`
	Approved     bool    `json:"approved"`
}

// ReviewQueueItem is one flagged submission enriched with student and task
// context for the admin console.
type ReviewQueueItem struct {
	SubmissionID uint       `json:"submissionId"`
	StudentName  string     `json:"studentName"`
	TaskTitle    string     `json:"taskTitle"`
	TaskMaxScore int        `json:"taskMaxScore"`
	Status       string     `json:"status"`
	AIScore      *int       `json:"ai_score"`
	Points       *int       `json:"points"`
	Feedback     string     `json:"feedback"`
	AutoGradedAt *time.Time `json:"auto_graded_at"`
	SubmittedAt  time.Time  `json:"submitted_at"`
}

// ReviewQueueResponse lists submissions awaiting manual adjudication.
type ReviewQueueResponse struct {
	Items []ReviewQueueItem `json:"items"`
	Count int               `json:"count"`
}

// SubmissionResponse is returned after a review decision.
type SubmissionResponse struct {
	ID           uint       `json:"id"`
	TaskID       uint       `json:"task_id"`
	StudentID    uint       `json:"student_id"`
	Status       string     `json:"status"`
	AIScore      *int       `json:"ai_score"`
	Points       *int       `json:"points"`
	Feedback     string     `json:"feedback"`
	NeedsReview  bool       `json:"needs_review"`
	AutoGradedAt *time.Time `json:"auto_graded_at"`
	GradedAt     *time.Time `json:"graded_at"`
	SubmittedAt  time.Time  `json:"submitted_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:           model.ID,
		TaskID:       model.TaskID,
		StudentID:    model.StudentID,
		Status:       model.Status,
		AIScore:      model.AIScore,
		Points:       model.Points,
		Feedback:     model.Feedback,
		NeedsReview:  model.NeedsReview,
		AutoGradedAt: model.AutoGradedAt,
		GradedAt:     model.GradedAt,
		SubmittedAt:  model.SubmittedAt,
	}
}
