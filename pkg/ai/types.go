package ai

import "context"

// GradingInput contains the artefacts needed to grade a submission.
type GradingInput struct {
	TaskTitle    string
	Instructions string
	MaxScore     int
	StudentName  string
	Content      string
}

// GradingResult is the raw outcome of one model invocation. The feedback text
// still carries the score marker; extraction happens in a separate step.
type GradingResult struct {
	Feedback    string
	Model       string
	TotalTokens int
}

// SamplingParams are the request knobs a caller may override per invocation.
type SamplingParams struct {
	Model       string
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// GradeOption overrides a sampling parameter for a single Grade call.
type GradeOption func(*SamplingParams)

// WithModel overrides the model identifier for one call.
func WithModel(model string) GradeOption {
	return func(p *SamplingParams) { p.Model = model }
}

// WithTemperature overrides the sampling temperature for one call.
func WithTemperature(temperature float32) GradeOption {
	return func(p *SamplingParams) { p.Temperature = temperature }
}

// WithTopP overrides nucleus sampling for one call.
func WithTopP(topP float32) GradeOption {
	return func(p *SamplingParams) { p.TopP = topP }
}

// WithMaxTokens bounds the completion length for one call.
func WithMaxTokens(maxTokens int) GradeOption {
	return func(p *SamplingParams) { p.MaxTokens = maxTokens }
}

// Grader describes an AI model capable of grading student submissions.
type Grader interface {
	Grade(ctx context.Context, input GradingInput, opts ...GradeOption) (GradingResult, error)
}
