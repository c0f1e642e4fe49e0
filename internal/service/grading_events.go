package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// GradingEvent is published whenever a submission changes grading state.
type GradingEvent struct {
	SubmissionID uint      `json:"submission_id"`
	TaskID       uint      `json:"task_id"`
	StudentID    uint      `json:"student_id"`
	Status       string    `json:"status"`
	Points       *int      `json:"points"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// GradingEventPublisher broadcasts grading outcomes to interested consumers
// (notification workers, the admin dashboard).
type GradingEventPublisher interface {
	Publish(ctx context.Context, event GradingEvent) error
}

type natsGradingPublisher struct {
	conn        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
}

// NewGradingEventPublisher builds a NATS-backed publisher. A nil connection
// yields a publisher that drops events, so event delivery stays optional.
func NewGradingEventPublisher(conn *nats.Conn, subjectBase string, logger zerolog.Logger) GradingEventPublisher {
	if subjectBase == "" {
		subjectBase = "grading.submission"
	}

	return &natsGradingPublisher{
		conn:        conn,
		subjectBase: subjectBase,
		logger:      logger.With().Str("component", "grading_events").Logger(),
	}
}

func (p *natsGradingPublisher) Publish(_ context.Context, event GradingEvent) error {
	if p.conn == nil {
		return nil
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	subject := p.subjectBase + "." + event.Status
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish grading event")
		return err
	}

	return nil
}
