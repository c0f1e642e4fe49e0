package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bilim-edu/grading-api/internal/dto"
	"github.com/bilim-edu/grading-api/internal/models"
	"github.com/bilim-edu/grading-api/internal/observability"
	"github.com/bilim-edu/grading-api/internal/repository"
	"github.com/bilim-edu/grading-api/pkg/ai"
	"github.com/bilim-edu/grading-api/pkg/notebook"
)

// ErrGraderUnavailable indicates no grading model is configured. The whole
// batch call fails with it before any item is touched.
var ErrGraderUnavailable = errors.New("grading model unavailable")

// ErrNoScore indicates the model response carried no recognizable score
// marker. The submission row is left untouched so a later run retries it.
var ErrNoScore = errors.New("ai did not return a score")

// itemStatusError labels per-item failures in the batch response. It is never
// written to the submission row.
const itemStatusError = "error"

const (
	defaultTaskTitle        = "Task"
	defaultTaskInstructions = "No instructions"
	defaultTaskMaxScore     = 100
	statusCacheKey          = "bilim:autograde:status"
)

// emptySubmissionFeedback is the fixed message written when a submission has
// nothing to grade and gets routed straight to manual review.
const emptySubmissionFeedback = "Təqdimatda qiymətləndirilə bilən məzmun tapılmadı. Müəllim yoxlaması tələb olunur."

// AutogradeConfig holds the business-rule knobs of the grading pipeline.
// They are configuration, threaded in at construction time, never in-module
// constants.
type AutogradeConfig struct {
	BonusThreshold  int
	BonusPoints     int
	ScoreCap        int
	BatchSize       int
	PromptCharLimit int
	StatusCacheTTL  time.Duration
}

func (c *AutogradeConfig) applyDefaults() {
	if c.BonusThreshold <= 0 {
		c.BonusThreshold = 70
	}
	if c.BonusPoints <= 0 {
		c.BonusPoints = 5
	}
	if c.ScoreCap <= 0 {
		c.ScoreCap = 100
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 3
	}
	if c.PromptCharLimit <= 0 {
		c.PromptCharLimit = 15000
	}
	if c.StatusCacheTTL <= 0 {
		c.StatusCacheTTL = 30 * time.Second
	}
}

// AutogradeService runs bounded batches of pending submissions through the
// grading model and applies the bonus/review business rules.
type AutogradeService interface {
	RunBatch(ctx context.Context, batchSize int) (dto.AutogradeRunResponse, error)
	Status(ctx context.Context) (dto.AutogradeStatusResponse, error)
}

type autogradeService struct {
	repo       repository.SubmissionRepository
	grader     ai.Grader
	events     GradingEventPublisher
	activity   ActivityRecorder
	redis      *redis.Client
	httpClient *http.Client
	config     AutogradeConfig
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewAutogradeService constructs the grading orchestrator. Events, activity
// recorder and redis client may be nil; the pipeline then runs without them.
func NewAutogradeService(repo repository.SubmissionRepository, grader ai.Grader, events GradingEventPublisher, activity ActivityRecorder, redisClient *redis.Client, cfg AutogradeConfig, logger zerolog.Logger) AutogradeService {
	cfg.applyDefaults()

	return &autogradeService{
		repo:       repo,
		grader:     grader,
		events:     events,
		activity:   activity,
		redis:      redisClient,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     cfg,
		logger:     logger.With().Str("component", "autograde_service").Logger(),
		tracer:     otel.Tracer("github.com/bilim-edu/grading-api/internal/service/autograde"),
		now:        time.Now,
	}
}

// RunBatch grades up to batchSize pending submissions, oldest first, one at a
// time. Every per-item failure is caught, labeled and reported; only a
// missing grader or a failed batch fetch rejects the whole call.
func (s *autogradeService) RunBatch(parent context.Context, batchSize int) (dto.AutogradeRunResponse, error) {
	ctx, span := s.tracer.Start(parent, "autograde.run_batch")
	defer span.End()

	if s.grader == nil {
		span.SetStatus(codes.Error, "grader_unavailable")
		return dto.AutogradeRunResponse{}, ErrGraderUnavailable
	}

	size := batchSize
	if size <= 0 {
		size = s.config.BatchSize
	}
	span.SetAttributes(attribute.Int("autograde.batch_size", size))

	submissions, err := s.repo.ListPending(ctx, size)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch_fetch_failed")
		return dto.AutogradeRunResponse{}, fmt.Errorf("fetch pending submissions: %w", err)
	}

	response := dto.AutogradeRunResponse{
		Success: true,
		Results: make([]dto.AutogradeItemResult, 0, len(submissions)),
	}

	for i := range submissions {
		result := s.gradeOne(ctx, &submissions[i])
		response.Results = append(response.Results, result)
		response.Processed++

		switch {
		case result.Error != "":
			response.Errors++
			observability.GradingOutcomes().WithLabelValues("error").Inc()
		case result.Status == models.SubmissionStatusGraded:
			response.Graded++
			observability.GradingOutcomes().WithLabelValues("graded").Inc()
		case result.Status == models.SubmissionStatusPendingReview:
			response.FlaggedForReview++
			observability.GradingOutcomes().WithLabelValues("flagged").Inc()
		}
	}

	observability.BatchRuns().Inc()
	response.Message = fmt.Sprintf("processed %d submissions: %d graded, %d flagged for review, %d errors",
		response.Processed, response.Graded, response.FlaggedForReview, response.Errors)

	s.invalidateStatusCache(ctx)

	if s.activity != nil {
		_, _ = s.activity.Record(ctx, ActivityEntry{
			Action:     "autograde.batch_completed",
			EntityType: "submission_batch",
			Metadata: map[string]interface{}{
				"processed": response.Processed,
				"graded":    response.Graded,
				"flagged":   response.FlaggedForReview,
				"errors":    response.Errors,
			},
		})
	}

	span.SetAttributes(
		attribute.Int("autograde.processed", response.Processed),
		attribute.Int("autograde.errors", response.Errors),
	)

	return response, nil
}

// gradeOne walks a single submission through prepare, model invocation, score
// extraction, decision and persistence. Failures never escape: they come back
// as the item's error.
func (s *autogradeService) gradeOne(parent context.Context, submission *models.Submission) dto.AutogradeItemResult {
	ctx, span := s.tracer.Start(parent, "autograde.grade_one", trace.WithAttributes(
		attribute.Int64("submission.id", int64(submission.ID)),
	))
	defer span.End()

	title, instructions, maxScore := taskContext(submission.Task)
	studentName := submission.Student.Name
	if studentName == "" {
		studentName = "Student"
	}

	result := dto.AutogradeItemResult{
		SubmissionID: submission.ID,
		StudentName:  studentName,
	}

	if !submission.HasContent() {
		return s.flagEmptySubmission(ctx, submission, result)
	}

	// A file-only submission can still end up empty when the fetch fails.
	content, err := notebook.Resolve(ctx, submission.Content, submission.FileURL, s.httpClient, s.logger)
	if errors.Is(err, notebook.ErrNoContent) {
		return s.flagEmptySubmission(ctx, submission, result)
	}

	flattened := truncateRunes(notebook.Flatten(content), s.config.PromptCharLimit)

	grading, err := s.grader.Grade(ctx, ai.GradingInput{
		TaskTitle:    title,
		Instructions: instructions,
		MaxScore:     maxScore,
		StudentName:  studentName,
		Content:      flattened,
	})
	if err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("model invocation failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "model_invocation_failed")
		result.Status = itemStatusError
		result.Error = err.Error()
		return result
	}

	score := ai.ExtractScore(grading.Feedback, maxScore)
	if score == nil {
		s.logger.Warn().Uint("submission_id", submission.ID).Str("model", grading.Model).Msg("no score marker in model response")
		span.SetStatus(codes.Error, "score_extraction_failed")
		result.Status = itemStatusError
		result.Error = ErrNoScore.Error()
		return result
	}

	finalScore, status, bonusApplied := s.decide(*score, maxScore)

	now := s.now()
	submission.AIScore = score
	submission.Points = &finalScore
	submission.Feedback = grading.Feedback
	submission.Status = status
	submission.NeedsReview = status == models.SubmissionStatusPendingReview
	submission.AutoGradedAt = &now
	if status == models.SubmissionStatusGraded {
		submission.GradedAt = &now
	}

	if err := s.repo.Update(ctx, submission); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to persist grading result")
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence_failed")
		result.Status = itemStatusError
		result.Error = fmt.Sprintf("persist grading result: %v", err)
		return result
	}

	s.publishEvent(ctx, submission)

	result.AIScore = score
	result.FinalScore = &finalScore
	result.Status = status
	result.BonusApplied = bonusApplied
	span.SetAttributes(
		attribute.Int("autograde.score", *score),
		attribute.String("autograde.status", status),
	)
	return result
}

// decide applies the bonus/review rule: scores at or above the threshold are
// finalized with bonus points, everything lower goes to a human.
func (s *autogradeService) decide(score, maxScore int) (int, string, bool) {
	if score >= s.config.BonusThreshold {
		final := score + s.config.BonusPoints
		if final > s.config.ScoreCap {
			final = s.config.ScoreCap
		}
		if final > maxScore {
			final = maxScore
		}
		return final, models.SubmissionStatusGraded, true
	}

	return score, models.SubmissionStatusPendingReview, false
}

// flagEmptySubmission is the deterministic short-circuit for submissions with
// no gradable content: no model invocation, straight to the review queue.
func (s *autogradeService) flagEmptySubmission(ctx context.Context, submission *models.Submission, result dto.AutogradeItemResult) dto.AutogradeItemResult {
	zero := 0
	now := s.now()

	submission.Status = models.SubmissionStatusPendingReview
	submission.NeedsReview = true
	submission.AIScore = &zero
	submission.Points = &zero
	submission.Feedback = emptySubmissionFeedback
	submission.AutoGradedAt = &now

	if err := s.repo.Update(ctx, submission); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to flag empty submission")
		result.Status = itemStatusError
		result.Error = fmt.Sprintf("persist review flag: %v", err)
		return result
	}

	s.publishEvent(ctx, submission)

	result.AIScore = &zero
	result.FinalScore = &zero
	result.Status = models.SubmissionStatusPendingReview
	return result
}

// Status reports pipeline health for the admin console, cached briefly in
// redis to keep the probe cheap.
func (s *autogradeService) Status(ctx context.Context) (dto.AutogradeStatusResponse, error) {
	if cached, ok := s.cachedStatus(ctx); ok {
		return cached, nil
	}

	pending, err := s.repo.CountByStatus(ctx, models.SubmissionStatusSubmitted)
	if err != nil {
		return dto.AutogradeStatusResponse{}, fmt.Errorf("count pending submissions: %w", err)
	}

	reviewCount, err := s.repo.CountNeedsReview(ctx)
	if err != nil {
		return dto.AutogradeStatusResponse{}, fmt.Errorf("count review queue: %w", err)
	}

	lastAutoGradedAt, err := s.repo.LastAutoGradedAt(ctx)
	if err != nil {
		return dto.AutogradeStatusResponse{}, fmt.Errorf("load last auto-graded timestamp: %w", err)
	}

	response := dto.AutogradeStatusResponse{
		PendingSubmissions: pending,
		ReviewQueueCount:   reviewCount,
		LastAutoGradedAt:   lastAutoGradedAt,
		Config: dto.AutogradeConfigResponse{
			BonusThreshold: s.config.BonusThreshold,
			BonusPoints:    s.config.BonusPoints,
			MaxScore:       s.config.ScoreCap,
			BatchSize:      s.config.BatchSize,
		},
	}

	s.storeStatusCache(ctx, response)
	return response, nil
}

func (s *autogradeService) cachedStatus(ctx context.Context) (dto.AutogradeStatusResponse, bool) {
	if s.redis == nil {
		return dto.AutogradeStatusResponse{}, false
	}

	payload, err := s.redis.Get(ctx, statusCacheKey).Bytes()
	if err != nil {
		return dto.AutogradeStatusResponse{}, false
	}

	var response dto.AutogradeStatusResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return dto.AutogradeStatusResponse{}, false
	}

	return response, true
}

func (s *autogradeService) storeStatusCache(ctx context.Context, response dto.AutogradeStatusResponse) {
	if s.redis == nil {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}

	if err := s.redis.Set(ctx, statusCacheKey, payload, s.config.StatusCacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache status probe")
	}
}

func (s *autogradeService) invalidateStatusCache(ctx context.Context) {
	if s.redis == nil {
		return
	}

	if err := s.redis.Del(ctx, statusCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate status cache")
	}
}

func (s *autogradeService) publishEvent(ctx context.Context, submission *models.Submission) {
	if s.events == nil {
		return
	}

	_ = s.events.Publish(ctx, GradingEvent{
		SubmissionID: submission.ID,
		TaskID:       submission.TaskID,
		StudentID:    submission.StudentID,
		Status:       submission.Status,
		Points:       submission.Points,
		OccurredAt:   s.now().UTC(),
	})
}

// taskContext joins the task metadata with safe defaults so a missing task
// never fails a batch.
func taskContext(task models.Task) (string, string, int) {
	title := task.Title
	if title == "" {
		title = defaultTaskTitle
	}

	instructions := task.Instructions
	if instructions == "" {
		instructions = defaultTaskInstructions
	}

	maxScore := task.MaxScore
	if maxScore <= 0 {
		maxScore = defaultTaskMaxScore
	}

	return title, instructions, maxScore
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}
