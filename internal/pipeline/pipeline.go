// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs discovered papers through the delivery stages:
// artifact, summary, digest image, and channel fan-out. Every stage has a
// degraded result, so a paper only fails when no channel delivers it.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/arxiv-digest/internal/analyze"
	"github.com/pdiddy/arxiv-digest/internal/deliver"
	"github.com/pdiddy/arxiv-digest/internal/observability"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// Discoverer returns the candidate papers for a run.
type Discoverer interface {
	SourceName() string
	Discover(ctx context.Context, q types.SearchQuery) []types.Paper
}

// ArtifactStore produces a first-page preview image for a paper.
type ArtifactStore interface {
	EnsurePreview(ctx context.Context, p types.Paper) (string, error)
}

// Summarizer always yields some analysis text.
type Summarizer interface {
	Summarize(ctx context.Context, title, abstract string) analyze.Summary
}

// DigestRenderer draws the shareable digest image.
type DigestRenderer interface {
	RenderDigest(p types.Paper) (string, error)
	RenderSimple(p types.Paper) (string, error)
}

// Notifier sends the end-of-run summary.
type Notifier interface {
	SendSummary(ctx context.Context, r types.Report) bool
}

// Deps collects the collaborators of a Pipeline. Artifacts, Renderer,
// Notifier and Metrics may be nil.
type Deps struct {
	Discoverer Discoverer
	Artifacts  ArtifactStore
	Analyzer   Summarizer
	Renderer   DigestRenderer
	Channels   []deliver.Channel
	Notifier   Notifier
	Metrics    *observability.Metrics
	Logger     zerolog.Logger

	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

// Pipeline processes papers one at a time, end to end.
type Pipeline struct {
	deps  Deps
	now   func() time.Time
	newID func() string
}

// New returns a Pipeline.
func New(deps Deps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Pipeline{deps: deps, now: now, newID: uuid.NewString}
}

// Run discovers papers for q and processes each of them. A failing paper
// is counted and the batch moves on.
func (p *Pipeline) Run(ctx context.Context, q types.SearchQuery) types.Report {
	report := types.Report{
		RunID:   p.newID(),
		Started: p.now(),
	}
	log := observability.WithRun(p.deps.Logger, report.RunID)
	if p.deps.Discoverer != nil {
		report.Source = p.deps.Discoverer.SourceName()
	}
	log.Info().Str("source", report.Source).Strs("keywords", q.Keywords).Msg("run started")

	var papers []types.Paper
	if p.deps.Discoverer != nil {
		papers = p.deps.Discoverer.Discover(ctx, q)
	}
	report.Discovered = len(papers)
	if len(papers) == 0 {
		log.Warn().Msg("no new papers found")
	}

	for i, paper := range papers {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("remaining", len(papers)-i).Msg("run interrupted")
			break
		}
		log.Info().Int("n", i+1).Int("of", len(papers)).Str("paper_id", paper.ID).Msg("processing paper")
		o := p.Process(ctx, paper)
		if o.Delivered() {
			report.Succeeded++
		} else {
			report.Failed++
		}
		report.Outcomes = append(report.Outcomes, o)
	}

	report.Finished = p.now()
	p.deps.Metrics.RecordRun(report.Discovered, report.Succeeded, report.Failed, report.Duration())
	log.Info().
		Int("discovered", report.Discovered).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Dur("elapsed", report.Duration()).
		Msg("run finished")

	if p.deps.Notifier != nil {
		p.deps.Notifier.SendSummary(ctx, report)
	}
	return report
}

// Process runs one paper through every stage. It never panics; a panic in
// any stage is recorded in the outcome's Err.
func (p *Pipeline) Process(ctx context.Context, paper types.Paper) (o types.Outcome) {
	log := observability.WithPaper(p.deps.Logger, paper.ID)
	o = types.Outcome{
		PaperID:  paper.ID,
		Title:    paper.Title,
		Stage:    types.StageDiscovered,
		Channels: map[string]bool{},
		Digest:   types.DigestNone,
	}

	defer func() {
		if r := recover(); r != nil {
			o.Err = fmt.Sprintf("panic: %v", r)
			log.Error().Str("panic", fmt.Sprint(r)).Str("stack", string(debug.Stack())).Msg("paper failed")
		}
	}()

	paper = p.artifactStage(ctx, paper, &o, log)
	paper = p.summarizeStage(ctx, paper, &o, log)
	digest := p.renderStage(paper, &o, log)
	p.fanOut(ctx, paper, digest, &o, log)
	return o
}

func (p *Pipeline) artifactStage(ctx context.Context, paper types.Paper, o *types.Outcome, log zerolog.Logger) types.Paper {
	defer p.timeStage("artifact", time.Now())
	if p.deps.Artifacts == nil {
		o.PreviewMissing = true
		return paper
	}
	path, err := p.deps.Artifacts.EnsurePreview(ctx, paper)
	if err != nil || path == "" {
		log.Warn().Err(err).Msg("no preview, continuing without one")
		o.PreviewMissing = true
		p.deps.Metrics.RecordDegraded("artifact")
		return paper
	}
	o.Stage = types.StageArtifactReady
	return paper.WithPreview(path)
}

func (p *Pipeline) summarizeStage(ctx context.Context, paper types.Paper, o *types.Outcome, log zerolog.Logger) types.Paper {
	defer p.timeStage("summarize", time.Now())
	var s analyze.Summary
	if p.deps.Analyzer != nil {
		s = p.deps.Analyzer.Summarize(ctx, paper.Title, paper.Abstract)
	}
	if s.Text == "" {
		s = analyze.Summary{Text: analyze.Fallback(paper.Title, paper.Abstract), Fallback: true}
	}
	if s.Fallback {
		o.FallbackAnalysis = true
		p.deps.Metrics.RecordDegraded("analysis")
		log.Warn().Err(s.Cause).Int("attempts", s.Attempts).Msg("using fallback analysis")
	}
	o.Stage = types.StageSummarized
	return paper.WithAnalysis(s.Text)
}

// renderStage returns the digest path, or "" when neither variant could be
// drawn.
func (p *Pipeline) renderStage(paper types.Paper, o *types.Outcome, log zerolog.Logger) string {
	defer p.timeStage("render", time.Now())
	if p.deps.Renderer == nil {
		return ""
	}
	path, err := p.deps.Renderer.RenderDigest(paper)
	if err == nil {
		o.Stage = types.StageRendered
		o.Digest = types.DigestFull
		return path
	}
	log.Warn().Err(err).Msg("digest render failed, trying simple layout")
	p.deps.Metrics.RecordDegraded("render")

	path, err = p.deps.Renderer.RenderSimple(paper)
	if err == nil {
		o.Stage = types.StageRendered
		o.Digest = types.DigestSimple
		return path
	}
	log.Error().Err(err).Msg("simple render failed, delivering without an image")
	return ""
}

func (p *Pipeline) fanOut(ctx context.Context, paper types.Paper, digest string, o *types.Outcome, log zerolog.Logger) {
	defer p.timeStage("deliver", time.Now())
	enabled := 0
	for _, ch := range p.deps.Channels {
		if !ch.Enabled() {
			continue
		}
		enabled++
		if ch.RequiresImage() && digest == "" {
			log.Warn().Str("channel", ch.Name()).Msg("channel needs a digest image, skipped")
			o.Skipped = append(o.Skipped, ch.Name())
			continue
		}
		ok := p.send(ctx, ch, paper, digest, log)
		o.Channels[ch.Name()] = ok
		p.deps.Metrics.RecordSend(ch.Name(), ok)
	}

	if enabled == 0 {
		log.Warn().Msg("no delivery channel enabled")
		return
	}
	if !o.Delivered() {
		log.Error().Msg("paper not delivered on any channel")
		return
	}
	o.Stage = types.StageDelivered
	if o.Partial() {
		log.Warn().Interface("channels", o.Channels).Strs("skipped", o.Skipped).Msg("paper partially delivered")
	}
}

// send isolates one channel so its panic cannot stop the others.
func (p *Pipeline) send(ctx context.Context, ch deliver.Channel, paper types.Paper, digest string, log zerolog.Logger) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("channel", ch.Name()).Str("panic", fmt.Sprint(r)).Msg("channel panicked")
			ok = false
		}
	}()
	return ch.Send(ctx, paper, digest)
}

func (p *Pipeline) timeStage(stage string, start time.Time) {
	p.deps.Metrics.ObserveStage(stage, time.Since(start))
}
