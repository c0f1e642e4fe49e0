package ai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	gradingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bilim",
		Subsystem: "ai",
		Name:      "grading_duration_seconds",
		Help:      "Duration of AI grading requests",
	}, []string{"model"})

	gradingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bilim",
		Subsystem: "ai",
		Name:      "grading_failures_total",
		Help:      "Number of AI grading failures",
	}, []string{"model"})
)

// ErrMissingAPIKey indicates the gateway has no credential configured. It is
// raised at construction time, before any network call can happen.
var ErrMissingAPIKey = errors.New("openai api key is required")

// GatewayError carries the upstream HTTP status and body of a failed
// completion request.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("model gateway returned status %d: %s", e.StatusCode, e.Body)
}

// OpenAIConfig defines configuration options for the OpenAI grader.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	TopP        float32
	MaxTokens   int
	// BaseURL overrides the API endpoint, for proxies and tests.
	BaseURL string
	Logger  zerolog.Logger
}

// OpenAIGrader implements Grader against the OpenAI chat completion API.
type OpenAIGrader struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGrader builds a new grader using the provided configuration.
func NewOpenAIGrader(cfg OpenAIConfig) (*OpenAIGrader, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}

	if cfg.TopP == 0 {
		cfg.TopP = 0.9
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	tracer := otel.Tracer("github.com/bilim-edu/grading-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(config)

	return &OpenAIGrader{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Grade sends the grading prompt to OpenAI and returns the raw completion.
// There is no retry here: a failure surfaces to the caller, which records it
// as a per-submission error.
func (g *OpenAIGrader) Grade(parent context.Context, input GradingInput, opts ...GradeOption) (GradingResult, error) {
	params := SamplingParams{
		Model:       g.cfg.Model,
		Temperature: g.cfg.Temperature,
		TopP:        g.cfg.TopP,
		MaxTokens:   g.cfg.MaxTokens,
	}
	for _, opt := range opts {
		opt(&params)
	}

	ctx, span := g.tracer.Start(parent, "openai.grade", trace.WithAttributes(
		attribute.String("model", params.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       params.Model,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: graderSystemPrompt(input.MaxScore),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildGradingPrompt(input),
			},
		},
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	gradingDuration.WithLabelValues(params.Model).Observe(duration.Seconds())
	if err != nil {
		gradingFailures.WithLabelValues(params.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GradingResult{}, wrapCompletionError(err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		gradingFailures.WithLabelValues(params.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GradingResult{}, err
	}

	return GradingResult{
		Feedback:    strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:       resp.Model,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}

func wrapCompletionError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &GatewayError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &GatewayError{StatusCode: reqErr.HTTPStatusCode, Body: body}
	}

	return fmt.Errorf("openai grade: %w", err)
}

func graderSystemPrompt(maxScore int) string {
	max := strconv.Itoa(maxScore)
	return "You are an experienced programming instructor grading a student submission for an Azerbaijani-language course. " +
		"Evaluate correctness, completeness and code quality against the task instructions. " +
		"Write the feedback in Azerbaijani. The very first line of your answer must be exactly " +
		"'**Yekun bal: N/" + max + "' where N is the score between 0 and " + max + ". " +
		"After that line, explain the strengths and weaknesses of the work."
}

func buildGradingPrompt(input GradingInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Task\n")
	builder.WriteString(input.TaskTitle)
	builder.WriteString("\n\n## Instructions\n")
	builder.WriteString(input.Instructions)
	builder.WriteString("\n\n## Maximum Score\n")
	builder.WriteString(strconv.Itoa(input.MaxScore))
	builder.WriteString("\n\n## Student\n")
	builder.WriteString(input.StudentName)
	builder.WriteString("\n\n## Submission\n")
	builder.WriteString(input.Content)
	return builder.String()
}
