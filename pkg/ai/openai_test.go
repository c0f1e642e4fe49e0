package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, captured *map[string]interface{}) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "**Yekun bal: 90/100\nYaxşı işdir."}}],
			"usage": {"total_tokens": 42}
		}`))
	}))
}

func TestOpenAIGraderRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIGrader(OpenAIConfig{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAIGraderDefaultSamplingParams(t *testing.T) {
	var captured map[string]interface{}
	server := completionServer(t, &captured)
	defer server.Close()

	grader, err := NewOpenAIGrader(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	result, err := grader.Grade(context.Background(), GradingInput{TaskTitle: "Alqoritmlər", MaxScore: 100, Content: "print(1)"})
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", result.Model)
	require.Equal(t, 42, result.TotalTokens)

	require.Equal(t, "gpt-4o-mini", captured["model"])
	require.InDelta(t, 0.3, captured["temperature"].(float64), 0.001)
	require.InDelta(t, 0.9, captured["top_p"].(float64), 0.001)
	require.EqualValues(t, 4096, captured["max_tokens"])
}

func TestOpenAIGraderPerCallOverrides(t *testing.T) {
	var captured map[string]interface{}
	server := completionServer(t, &captured)
	defer server.Close()

	grader, err := NewOpenAIGrader(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = grader.Grade(context.Background(), GradingInput{TaskTitle: "Alqoritmlər", MaxScore: 100, Content: "print(1)"},
		WithModel("gpt-4o"),
		WithTemperature(0.7),
		WithTopP(0.5),
		WithMaxTokens(512),
	)
	require.NoError(t, err)

	require.Equal(t, "gpt-4o", captured["model"])
	require.InDelta(t, 0.7, captured["temperature"].(float64), 0.001)
	require.InDelta(t, 0.5, captured["top_p"].(float64), 0.001)
	require.EqualValues(t, 512, captured["max_tokens"])
}

func TestOpenAIGraderGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "requests"}}`))
	}))
	defer server.Close()

	grader, err := NewOpenAIGrader(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = grader.Grade(context.Background(), GradingInput{TaskTitle: "Alqoritmlər", MaxScore: 100, Content: "x"})
	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	require.Equal(t, http.StatusTooManyRequests, gatewayErr.StatusCode)
}
