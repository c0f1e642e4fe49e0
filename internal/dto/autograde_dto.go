package dto

import "time"

// AutogradeRunRequest is the optional body for triggering a batch run.
type AutogradeRunRequest struct {
	BatchSize int `json:"batchSize" validate:"omitempty,gt=0,lte=50"`
}

// AutogradeItemResult reports the outcome of grading one submission. A
// populated Error field means the item failed; its row stays `submitted` so a
// later run picks it up again.
type AutogradeItemResult struct {
	SubmissionID uint   `json:"submissionId"`
	StudentName  string `json:"studentName"`
	AIScore      *int   `json:"aiScore"`
	FinalScore   *int   `json:"finalScore"`
	Status       string `json:"status"`
	BonusApplied bool   `json:"bonusApplied"`
	Error        string `json:"error,omitempty"`
}

// AutogradeRunResponse summarizes one batch run.
type AutogradeRunResponse struct {
	Success          bool                  `json:"success"`
	Message          string                `json:"message"`
	Processed        int                   `json:"processed"`
	Graded           int                   `json:"graded"`
	FlaggedForReview int                   `json:"flaggedForReview"`
	Errors           int                   `json:"errors"`
	Results          []AutogradeItemResult `json:"results"`
}

// AutogradeConfigResponse echoes the active business-rule configuration.
type AutogradeConfigResponse struct {
	BonusThreshold int `json:"bonusThreshold"`
	BonusPoints    int `json:"bonusPoints"`
	MaxScore       int `json:"maxScore"`
	BatchSize      int `json:"batchSize"`
}

// AutogradeStatusResponse is the status probe payload.
type AutogradeStatusResponse struct {
	PendingSubmissions int64                   `json:"pendingSubmissions"`
	ReviewQueueCount   int64                   `json:"reviewQueueCount"`
	LastAutoGradedAt   *time.Time              `json:"lastAutoGradedAt"`
	Config             AutogradeConfigResponse `json:"config"`
}
