// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze turns a paper's title and abstract into a short structured
// summary using a generative model. Summarize never fails: when the model is
// unavailable or keeps failing it returns a deterministic fallback summary
// marked as such.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// ErrPermanent marks backend failures that retrying cannot fix, such as a
// rejected API key. Backends wrap it with %w.
var ErrPermanent = errors.New("permanent analyzer failure")

// errEmptyResponse is retried like a transient failure.
var errEmptyResponse = errors.New("empty response")

const defaultMaxRetries = 3

// Backend abstracts the generative model so tests can supply a mock.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summary is the result of one Summarize call. Fallback reports whether Text
// came from the rule-based fallback instead of the model.
type Summary struct {
	Text     string
	Fallback bool

	// Attempts is the number of backend calls made.
	Attempts int

	// Cause is the last backend error when Fallback is set.
	Cause error
}

// Sections splits the summary text into labeled sections.
func (s Summary) Sections() []Section { return ParseSections(s.Text) }

// Analyzer calls a Backend with bounded, immediate retries.
type Analyzer struct {
	backend    Backend
	maxRetries int
	language   string
	timeout    time.Duration
	logger     zerolog.Logger
}

// New returns an Analyzer. A nil backend is allowed; every call then
// returns the fallback summary.
func New(backend Backend, cfg types.AnalyzerConfig, logger zerolog.Logger) *Analyzer {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = defaultLanguage
	}
	return &Analyzer{
		backend:    backend,
		maxRetries: maxRetries,
		language:   language,
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

// Summarize asks the backend for a summary of the paper, retrying up to the
// configured bound with the same prompt. Permanent errors and cancellation
// stop the retries early. Any outcome other than a non-empty response yields
// the fallback summary.
func (a *Analyzer) Summarize(ctx context.Context, title, abstract string) Summary {
	if a.backend == nil {
		return a.fallback(title, abstract, 0, errors.New("no analyzer backend configured"))
	}

	prompt, err := renderPrompt(title, abstract, a.language)
	if err != nil {
		return a.fallback(title, abstract, 0, fmt.Errorf("rendering prompt: %w", err))
	}

	text, attempts, err := a.callWithRetry(ctx, prompt)
	if err != nil {
		return a.fallback(title, abstract, attempts, err)
	}
	a.logger.Debug().Int("attempts", attempts).Int("chars", len(text)).Msg("analysis generated")
	return Summary{Text: text, Attempts: attempts}
}

// callWithRetry calls the backend until it returns non-empty text or the
// retry bound is reached.
func (a *Analyzer) callWithRetry(ctx context.Context, prompt string) (string, int, error) {
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", attempts, err
		}
		attempts++

		text, err := a.generate(ctx, prompt)
		if err == nil {
			if text = strings.TrimSpace(text); text != "" {
				return text, attempts, nil
			}
			err = errEmptyResponse
		}
		lastErr = err
		a.logger.Warn().Err(err).Int("attempt", attempt).Int("max", a.maxRetries).Msg("analyzer call failed")

		if errors.Is(err, ErrPermanent) || errors.Is(err, context.Canceled) {
			break
		}
	}
	return "", attempts, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func (a *Analyzer) generate(ctx context.Context, prompt string) (string, error) {
	if a.timeout <= 0 {
		return a.backend.Generate(ctx, prompt)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.backend.Generate(ctx, prompt)
}

func (a *Analyzer) fallback(title, abstract string, attempts int, cause error) Summary {
	a.logger.Warn().Err(cause).Int("attempts", attempts).Msg("using fallback analysis")
	return Summary{
		Text:     Fallback(title, abstract),
		Fallback: true,
		Attempts: attempts,
		Cause:    cause,
	}
}
