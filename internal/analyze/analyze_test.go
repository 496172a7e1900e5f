// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// mockBackend returns responses in order; the last one repeats.
type mockBackend struct {
	responses []mockResponse
	calls     int
	prompts   []string
}

type mockResponse struct {
	text string
	err  error
}

func (m *mockBackend) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	r := m.responses[min(m.calls, len(m.responses)-1)]
	m.calls++
	return r.text, r.err
}

func testAnalyzerConfig(retries int) types.AnalyzerConfig {
	return types.AnalyzerConfig{AIConfig: types.AIConfig{Model: "test", MaxRetries: retries}}
}

const goodSummary = `**Research Area**: Reinforcement learning

**Core Contribution**: A new exploration bonus.

**Method**: Count-based novelty.

**Results**: Beats baselines on Atari.

**Significance**: Simpler agents.`

func TestSummarizeSuccess(t *testing.T) {
	b := &mockBackend{responses: []mockResponse{{text: "  " + goodSummary + "\n"}}}
	a := New(b, testAnalyzerConfig(3), zerolog.Nop())

	s := a.Summarize(context.Background(), "Exploring", "We explore.")
	assert.False(t, s.Fallback)
	assert.Equal(t, goodSummary, s.Text)
	assert.Equal(t, 1, s.Attempts)
	require.Len(t, b.prompts, 1)
	assert.Contains(t, b.prompts[0], "Paper title: Exploring")
	assert.Contains(t, b.prompts[0], "Paper abstract: We explore.")
	assert.Contains(t, b.prompts[0], "summary in English")
}

func TestSummarizeRetriesThenSucceeds(t *testing.T) {
	b := &mockBackend{responses: []mockResponse{
		{err: errors.New("503 unavailable")},
		{text: "   "},
		{text: goodSummary},
	}}
	a := New(b, testAnalyzerConfig(3), zerolog.Nop())

	s := a.Summarize(context.Background(), "T", "A")
	assert.False(t, s.Fallback)
	assert.Equal(t, 3, s.Attempts)
	assert.Equal(t, b.prompts[0], b.prompts[2], "same prompt on every attempt")
}

func TestSummarizeFallsBackAfterExhaustedRetries(t *testing.T) {
	b := &mockBackend{responses: []mockResponse{{err: errors.New("timeout")}}}
	a := New(b, testAnalyzerConfig(3), zerolog.Nop())

	s := a.Summarize(context.Background(), "Vision Transformers", "An image model.")
	assert.True(t, s.Fallback)
	assert.Equal(t, 3, s.Attempts)
	assert.Equal(t, 3, b.calls)
	assert.Equal(t, Fallback("Vision Transformers", "An image model."), s.Text)
	assert.ErrorContains(t, s.Cause, "timeout")
}

func TestSummarizeEmptyResponsesFallBack(t *testing.T) {
	b := &mockBackend{responses: []mockResponse{{text: ""}}}
	a := New(b, testAnalyzerConfig(2), zerolog.Nop())

	s := a.Summarize(context.Background(), "T", "A")
	assert.True(t, s.Fallback)
	assert.Equal(t, 2, b.calls)
	assert.NotEmpty(t, s.Text)
}

func TestSummarizePermanentErrorStopsRetries(t *testing.T) {
	b := &mockBackend{responses: []mockResponse{{err: fmt.Errorf("bad key: %w", ErrPermanent)}}}
	a := New(b, testAnalyzerConfig(5), zerolog.Nop())

	s := a.Summarize(context.Background(), "T", "A")
	assert.True(t, s.Fallback)
	assert.Equal(t, 1, b.calls)
	assert.ErrorIs(t, s.Cause, ErrPermanent)
}

func TestSummarizeCancelledContext(t *testing.T) {
	b := &mockBackend{responses: []mockResponse{{text: goodSummary}}}
	a := New(b, testAnalyzerConfig(3), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := a.Summarize(ctx, "T", "A")
	assert.True(t, s.Fallback)
	assert.Zero(t, b.calls)
}

func TestSummarizeWithoutBackend(t *testing.T) {
	a := New(nil, types.AnalyzerConfig{}, zerolog.Nop())
	s := a.Summarize(context.Background(), "T", "A robot arm.")
	assert.True(t, s.Fallback)
	assert.Zero(t, s.Attempts)
	assert.Contains(t, s.Text, "Robotics")
}

func TestSummarizeAppliesCallTimeout(t *testing.T) {
	var deadline time.Time
	b := backendFunc(func(ctx context.Context, _ string) (string, error) {
		deadline, _ = ctx.Deadline()
		return goodSummary, nil
	})
	cfg := testAnalyzerConfig(1)
	cfg.Timeout = time.Minute
	a := New(b, cfg, zerolog.Nop())

	a.Summarize(context.Background(), "T", "A")
	assert.False(t, deadline.IsZero())
}

func TestSummarizeLanguage(t *testing.T) {
	b := &mockBackend{responses: []mockResponse{{text: goodSummary}}}
	cfg := testAnalyzerConfig(1)
	cfg.Language = "Chinese"
	New(b, cfg, zerolog.Nop()).Summarize(context.Background(), "T", "A")
	assert.Contains(t, b.prompts[0], "summary in Chinese")
}

type backendFunc func(ctx context.Context, prompt string) (string, error)

func (f backendFunc) Generate(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"unauthorized", genai.APIError{Code: 401, Message: "API key not valid"}, true},
		{"not found", genai.APIError{Code: 404, Message: "model not found"}, true},
		{"rate limited", genai.APIError{Code: 429, Message: "quota"}, false},
		{"server error", genai.APIError{Code: 500, Message: "internal"}, false},
		{"network", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.permanent, errors.Is(got, ErrPermanent))
			assert.True(t, strings.HasPrefix(got.Error(), "gemini: "))
		})
	}
}

func TestNewGeminiBackendRequiresKey(t *testing.T) {
	_, err := NewGeminiBackend(context.Background(), types.AIConfig{Model: "gemini-2.0-flash"})
	assert.ErrorIs(t, err, ErrPermanent)
}
