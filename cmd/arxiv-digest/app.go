package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/pdiddy/arxiv-digest/internal/analyze"
	"github.com/pdiddy/arxiv-digest/internal/artifact"
	"github.com/pdiddy/arxiv-digest/internal/deliver"
	"github.com/pdiddy/arxiv-digest/internal/httputil"
	"github.com/pdiddy/arxiv-digest/internal/observability"
	"github.com/pdiddy/arxiv-digest/internal/pipeline"
	"github.com/pdiddy/arxiv-digest/internal/render"
	"github.com/pdiddy/arxiv-digest/internal/schedule"
	"github.com/pdiddy/arxiv-digest/internal/search"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// newDiscovery builds the configured discovery source.
func newDiscovery(cfg types.SearchConfig, log zerolog.Logger) (*search.Service, error) {
	client := httputil.New(cfg.Timeout, cfg.UserAgent, cfg.RequestInterval)
	source, err := search.NewSource(cfg.Source, client, log, schedule.SystemClock{}.Now)
	if err != nil {
		return nil, err
	}
	return search.NewService(source, log), nil
}

// newPipeline wires every stage from settings. Optional stages that cannot
// start (no rasterizer, no fonts, no analyzer key) are logged and left out
// so the pipeline runs them in degraded mode.
func newPipeline(ctx context.Context, s types.Settings, reg prometheus.Registerer, log zerolog.Logger) (*pipeline.Pipeline, error) {
	discovery, err := newDiscovery(s.Search, log.With().Str("component", "search").Logger())
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Discoverer: discovery,
		Logger:     log,
		Now:        schedule.SystemClock{}.Now,
	}
	if reg != nil {
		deps.Metrics = observability.NewMetrics(reg)
	}

	raster, err := artifact.DetectRasterizer()
	if err != nil {
		log.Warn().Err(err).Msg("no PDF rasterizer found, previews disabled")
	}
	artifactClient := httputil.New(s.Artifacts.Timeout, s.Artifacts.UserAgent, s.Search.RequestInterval)
	deps.Artifacts = artifact.NewCache(s.Artifacts, artifactClient, raster, log.With().Str("component", "artifact").Logger())

	var backend analyze.Backend
	if gemini, err := analyze.NewGeminiBackend(ctx, s.Analyzer.AIConfig); err != nil {
		log.Warn().Err(err).Msg("analyzer unavailable, using fallback summaries")
	} else {
		backend = gemini
	}
	deps.Analyzer = analyze.New(backend, s.Analyzer, log.With().Str("component", "analyze").Logger())

	if r, err := render.New(s.Artifacts, log.With().Str("component", "render").Logger()); err != nil {
		log.Warn().Err(err).Msg("digest renderer unavailable")
	} else {
		deps.Renderer = r
	}

	deps.Channels, deps.Notifier = newChannels(ctx, s, log)
	return pipeline.New(deps), nil
}

// newChannels returns the delivery channels in send order, and the email
// channel as run-summary notifier when summaries are enabled.
func newChannels(ctx context.Context, s types.Settings, log zerolog.Logger) ([]deliver.Channel, pipeline.Notifier) {
	var (
		channels []deliver.Channel
		notifier pipeline.Notifier
	)
	if s.Email.Enabled {
		email := deliver.NewEmailChannel(s.Email, log)
		channels = append(channels, email)
		if s.Email.SendSummary {
			notifier = email
		}
	}
	if s.Chat.Enabled {
		channels = append(channels, newChatChannel(ctx, s, log))
	}
	return channels, notifier
}

func newChatChannel(ctx context.Context, s types.Settings, log zerolog.Logger) *deliver.ChatChannel {
	client := httputil.New(s.Chat.Timeout, s.Search.UserAgent, 0)
	session := deliver.NewBridgeSession(s.Chat.BridgeURL, client)
	return deliver.NewChatChannel(ctx, s.Chat, session, log)
}
