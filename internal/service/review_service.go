package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/bilim-edu/grading-api/internal/dto"
	"github.com/bilim-edu/grading-api/internal/models"
	"github.com/bilim-edu/grading-api/internal/repository"
)

// ErrReviewSubmissionNotFound indicates the submission was not located.
var ErrReviewSubmissionNotFound = errors.New("submission not found")

// ReviewService exposes the queue of flagged submissions and applies admin
// decisions to them.
type ReviewService interface {
	Queue(ctx context.Context) (dto.ReviewQueueResponse, error)
	Decide(ctx context.Context, payload dto.ReviewDecisionRequest, actor ActivityActor) (dto.SubmissionResponse, error)
}

type reviewService struct {
	repo      repository.SubmissionRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	activity  ActivityRecorder
	events    GradingEventPublisher
	pageSize  int
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewReviewService constructs the review queue manager.
func NewReviewService(repo repository.SubmissionRepository, validate *validator.Validate, activity ActivityRecorder, events GradingEventPublisher, pageSize int, logger zerolog.Logger) ReviewService {
	if pageSize <= 0 {
		pageSize = 50
	}

	return &reviewService{
		repo:      repo,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		activity:  activity,
		events:    events,
		pageSize:  pageSize,
		logger:    logger.With().Str("component", "review_service").Logger(),
		tracer:    otel.Tracer("github.com/bilim-edu/grading-api/internal/service/review"),
		now:       time.Now,
	}
}

// Queue lists flagged submissions, newest auto-graded first, enriched with
// student and task context. A missing join target falls back to placeholders
// rather than failing the whole listing.
func (s *reviewService) Queue(ctx context.Context) (dto.ReviewQueueResponse, error) {
	submissions, err := s.repo.ListNeedsReview(ctx, s.pageSize)
	if err != nil {
		return dto.ReviewQueueResponse{}, err
	}

	items := make([]dto.ReviewQueueItem, 0, len(submissions))
	for _, submission := range submissions {
		studentName := submission.Student.Name
		if studentName == "" {
			studentName = "Student"
		}

		taskTitle, _, taskMaxScore := taskContext(submission.Task)

		items = append(items, dto.ReviewQueueItem{
			SubmissionID: submission.ID,
			StudentName:  studentName,
			TaskTitle:    taskTitle,
			TaskMaxScore: taskMaxScore,
			Status:       submission.Status,
			AIScore:      submission.AIScore,
			Points:       submission.Points,
			Feedback:     submission.Feedback,
			AutoGradedAt: submission.AutoGradedAt,
			SubmittedAt:  submission.SubmittedAt,
		})
	}

	return dto.ReviewQueueResponse{Items: items, Count: len(items)}, nil
}

// Decide applies an admin approve/reject decision. Approval may override
// points and feedback; rejection keeps them and forces a resubmission.
func (s *reviewService) Decide(parent context.Context, payload dto.ReviewDecisionRequest, actor ActivityActor) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(parent, "review.decide", trace.WithAttributes(
		attribute.Int64("review.submission_id", int64(payload.SubmissionID)),
		attribute.Bool("review.approved", payload.Approved),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.repo.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.SubmissionResponse{}, ErrReviewSubmissionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.SubmissionResponse{}, err
	}

	if submission.IsGraded() {
		// Re-deciding a finalized submission is allowed and idempotent.
		s.logger.Debug().Uint("submission_id", submission.ID).Msg("re-deciding finalized submission")
	}

	now := s.now()
	action := "review.rejected"

	if payload.Approved {
		action = "review.approved"
		submission.Status = models.SubmissionStatusGraded
		if payload.FinalPoints != nil {
			points := *payload.FinalPoints
			submission.Points = &points
		}
		if payload.Feedback != nil {
			submission.Feedback = s.sanitizer.Sanitize(strings.TrimSpace(*payload.Feedback))
		}
	} else {
		submission.Status = models.SubmissionStatusRejected
	}

	submission.NeedsReview = false
	submission.GradedAt = &now

	if err := s.repo.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.SubmissionResponse{}, err
	}

	if s.activity != nil {
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     action,
			EntityType: "submission",
			EntityID:   &submission.ID,
			Metadata: map[string]interface{}{
				"student_id": submission.StudentID,
				"task_id":    submission.TaskID,
				"approved":   payload.Approved,
			},
		})
	}

	if s.events != nil {
		_ = s.events.Publish(ctx, GradingEvent{
			SubmissionID: submission.ID,
			TaskID:       submission.TaskID,
			StudentID:    submission.StudentID,
			Status:       submission.Status,
			Points:       submission.Points,
			OccurredAt:   now.UTC(),
		})
	}

	span.SetAttributes(attribute.String("review.status", submission.Status))
	return dto.NewSubmissionResponse(submission), nil
}
