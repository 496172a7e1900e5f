// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/arxiv-digest/internal/analyze"
	"github.com/pdiddy/arxiv-digest/internal/deliver"
	"github.com/pdiddy/arxiv-digest/internal/observability"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeDiscoverer struct{ papers []types.Paper }

func (f fakeDiscoverer) SourceName() string { return "fake" }
func (f fakeDiscoverer) Discover(context.Context, types.SearchQuery) []types.Paper {
	return f.papers
}

type fakeStore struct {
	path string
	err  error
}

func (f fakeStore) EnsurePreview(context.Context, types.Paper) (string, error) {
	return f.path, f.err
}

type failingBackend struct{ calls int }

func (b *failingBackend) Generate(context.Context, string) (string, error) {
	b.calls++
	return "", errors.New("503 unavailable")
}

type fakeRenderer struct {
	digestErr, simpleErr error
	panicOn              string
	rendered             []types.Paper
}

func (r *fakeRenderer) RenderDigest(p types.Paper) (string, error) {
	if p.ID == r.panicOn {
		panic("layout exploded")
	}
	r.rendered = append(r.rendered, p)
	if r.digestErr != nil {
		return "", r.digestErr
	}
	return "/tmp/" + p.ID + "_summary.png", nil
}

func (r *fakeRenderer) RenderSimple(p types.Paper) (string, error) {
	if r.simpleErr != nil {
		return "", r.simpleErr
	}
	return "/tmp/" + p.ID + "_simple.png", nil
}

type fakeChannel struct {
	name      string
	enabled   bool
	needImage bool
	fail      bool
	sent      []string
	digests   []string
}

func (c *fakeChannel) Name() string        { return c.name }
func (c *fakeChannel) Enabled() bool       { return c.enabled }
func (c *fakeChannel) RequiresImage() bool { return c.needImage }
func (c *fakeChannel) Send(_ context.Context, p types.Paper, digest string) bool {
	c.sent = append(c.sent, p.ID)
	c.digests = append(c.digests, digest)
	return !c.fail
}

type fakeNotifier struct{ reports []types.Report }

func (n *fakeNotifier) SendSummary(_ context.Context, r types.Report) bool {
	n.reports = append(n.reports, r)
	return true
}

func testPapers() []types.Paper {
	return []types.Paper{
		{ID: "2603.00001", Title: "Neural Scaling", Abstract: "We study deep learning scaling."},
		{ID: "2603.00002", Title: "Robot Planning", Abstract: "A planning method for robot arms."},
	}
}

func newTestPipeline(deps Deps) *Pipeline {
	deps.Logger = zerolog.Nop()
	deps.Now = func() time.Time { return fixedNow }
	p := New(deps)
	p.newID = func() string { return "run-1" }
	return p
}

func TestRun_AnalyzerAlwaysFailing(t *testing.T) {
	backend := &failingBackend{}
	email := &fakeChannel{name: "email", enabled: true}
	p := newTestPipeline(Deps{
		Discoverer: fakeDiscoverer{papers: testPapers()},
		Artifacts:  fakeStore{path: "/tmp/preview.png"},
		Analyzer:   analyze.New(backend, types.AnalyzerConfig{AIConfig: types.AIConfig{MaxRetries: 2}}, zerolog.Nop()),
		Renderer:   &fakeRenderer{},
		Channels:   []deliver.Channel{email},
	})

	report := p.Run(context.Background(), types.SearchQuery{Keywords: []string{"ml"}, LookbackDays: 1, MaxResults: 5})

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "fake", report.Source)
	assert.Equal(t, 2, report.Discovered)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 4, backend.calls, "two attempts per paper")
	require.Len(t, report.Outcomes, 2)
	for _, o := range report.Outcomes {
		assert.True(t, o.FallbackAnalysis)
		assert.Equal(t, types.StageDelivered, o.Stage)
	}
}

func TestProcess_FallbackTextReachesRenderer(t *testing.T) {
	r := &fakeRenderer{}
	p := newTestPipeline(Deps{
		Analyzer: analyze.New(&failingBackend{}, types.AnalyzerConfig{}, zerolog.Nop()),
		Renderer: r,
		Channels: []deliver.Channel{&fakeChannel{name: "email", enabled: true}},
	})

	p.Process(context.Background(), testPapers()[0])

	require.Len(t, r.rendered, 1)
	assert.NotEmpty(t, r.rendered[0].Analysis)
	assert.Contains(t, r.rendered[0].Analysis, analyze.FallbackNote)
}

func TestProcess_PartialChannelDelivery(t *testing.T) {
	email := &fakeChannel{name: "email", enabled: true}
	chat := &fakeChannel{name: "chat", enabled: true, needImage: true, fail: true}
	p := newTestPipeline(Deps{
		Discoverer: fakeDiscoverer{papers: testPapers()},
		Artifacts:  fakeStore{path: "/tmp/preview.png"},
		Analyzer:   analyze.New(nil, types.AnalyzerConfig{}, zerolog.Nop()),
		Renderer:   &fakeRenderer{},
		Channels:   []deliver.Channel{email, chat},
	})

	report := p.Run(context.Background(), types.SearchQuery{LookbackDays: 1, MaxResults: 5})

	require.Len(t, report.Outcomes, 2)
	first := report.Outcomes[0]
	assert.Equal(t, map[string]bool{"email": true, "chat": false}, first.Channels)
	assert.True(t, first.Partial())
	assert.Equal(t, types.StageDelivered, first.Stage)
	assert.Equal(t, []string{"2603.00001", "2603.00002"}, email.sent)
	assert.Equal(t, []string{"2603.00001", "2603.00002"}, chat.sent)
	assert.Equal(t, 2, report.Succeeded)
}

func TestProcess_DegradedArtifact(t *testing.T) {
	r := &fakeRenderer{}
	p := newTestPipeline(Deps{
		Artifacts: fakeStore{err: errors.New("download failed")},
		Analyzer:  analyze.New(nil, types.AnalyzerConfig{}, zerolog.Nop()),
		Renderer:  r,
		Channels:  []deliver.Channel{&fakeChannel{name: "email", enabled: true}},
	})

	o := p.Process(context.Background(), testPapers()[0])

	assert.True(t, o.PreviewMissing)
	assert.Equal(t, types.DigestFull, o.Digest)
	assert.Equal(t, types.StageDelivered, o.Stage)
	require.Len(t, r.rendered, 1)
	assert.False(t, r.rendered[0].HasPreview())
}

func TestProcess_RenderFallbacks(t *testing.T) {
	tests := []struct {
		name       string
		renderer   *fakeRenderer
		wantDigest types.DigestKind
		wantPath   string
		wantChat   bool
	}{
		{
			name:       "full digest",
			renderer:   &fakeRenderer{},
			wantDigest: types.DigestFull,
			wantPath:   "/tmp/2603.00001_summary.png",
			wantChat:   true,
		},
		{
			name:       "simple digest",
			renderer:   &fakeRenderer{digestErr: errors.New("font")},
			wantDigest: types.DigestSimple,
			wantPath:   "/tmp/2603.00001_simple.png",
			wantChat:   true,
		},
		{
			name:       "no image",
			renderer:   &fakeRenderer{digestErr: errors.New("font"), simpleErr: errors.New("disk")},
			wantDigest: types.DigestNone,
			wantPath:   "",
			wantChat:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := &fakeChannel{name: "email", enabled: true}
			chat := &fakeChannel{name: "chat", enabled: true, needImage: true}
			p := newTestPipeline(Deps{
				Analyzer: analyze.New(nil, types.AnalyzerConfig{}, zerolog.Nop()),
				Renderer: tt.renderer,
				Channels: []deliver.Channel{email, chat},
			})

			o := p.Process(context.Background(), testPapers()[0])

			assert.Equal(t, tt.wantDigest, o.Digest)
			assert.Equal(t, []string{tt.wantPath}, email.digests)
			if tt.wantChat {
				assert.Len(t, chat.sent, 1)
				assert.Empty(t, o.Skipped)
			} else {
				assert.Empty(t, chat.sent)
				assert.Equal(t, []string{"chat"}, o.Skipped)
				assert.True(t, o.Partial())
			}
			assert.Equal(t, types.StageDelivered, o.Stage)
		})
	}
}

func TestProcess_DisabledChannelNotAttempted(t *testing.T) {
	chat := &fakeChannel{name: "chat", enabled: false, needImage: true}
	email := &fakeChannel{name: "email", enabled: true}
	p := newTestPipeline(Deps{
		Renderer: &fakeRenderer{},
		Channels: []deliver.Channel{chat, email},
	})

	o := p.Process(context.Background(), testPapers()[0])

	assert.Empty(t, chat.sent)
	assert.Equal(t, map[string]bool{"email": true}, o.Channels)
	assert.False(t, o.Partial())
}

func TestRun_PanicDoesNotStopBatch(t *testing.T) {
	email := &fakeChannel{name: "email", enabled: true}
	p := newTestPipeline(Deps{
		Discoverer: fakeDiscoverer{papers: testPapers()},
		Renderer:   &fakeRenderer{panicOn: "2603.00001"},
		Channels:   []deliver.Channel{email},
	})

	report := p.Run(context.Background(), types.SearchQuery{LookbackDays: 1, MaxResults: 5})

	require.Len(t, report.Outcomes, 2)
	assert.Contains(t, report.Outcomes[0].Err, "layout exploded")
	assert.False(t, report.Outcomes[0].Delivered())
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, []string{"2603.00002"}, email.sent)
}

func TestRun_AllChannelsFail(t *testing.T) {
	p := newTestPipeline(Deps{
		Discoverer: fakeDiscoverer{papers: testPapers()[:1]},
		Renderer:   &fakeRenderer{},
		Channels:   []deliver.Channel{&fakeChannel{name: "email", enabled: true, fail: true}},
	})

	report := p.Run(context.Background(), types.SearchQuery{LookbackDays: 1, MaxResults: 5})

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, types.StageRendered, report.Outcomes[0].Stage)
}

func TestRun_SendsSummaryAndRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	notifier := &fakeNotifier{}
	p := newTestPipeline(Deps{
		Discoverer: fakeDiscoverer{papers: testPapers()},
		Artifacts:  fakeStore{err: errors.New("offline")},
		Renderer:   &fakeRenderer{},
		Channels:   []deliver.Channel{&fakeChannel{name: "email", enabled: true}},
		Notifier:   notifier,
		Metrics:    metrics,
	})

	report := p.Run(context.Background(), types.SearchQuery{LookbackDays: 1, MaxResults: 5})

	require.Len(t, notifier.reports, 1)
	assert.Equal(t, report.RunID, notifier.reports[0].RunID)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.PapersDelivered))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ChannelSends.WithLabelValues("email", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DegradedStages.WithLabelValues("artifact")))
}

func TestRun_EmptyDiscovery(t *testing.T) {
	notifier := &fakeNotifier{}
	p := newTestPipeline(Deps{Discoverer: fakeDiscoverer{}, Notifier: notifier})

	report := p.Run(context.Background(), types.SearchQuery{LookbackDays: 1, MaxResults: 5})

	assert.Zero(t, report.Discovered)
	assert.Empty(t, report.Outcomes)
	assert.False(t, report.HasFailures())
	assert.Len(t, notifier.reports, 1)
}

func TestRun_CancelledStopsBeforeNextPaper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	email := &fakeChannel{name: "email", enabled: true}
	p := newTestPipeline(Deps{
		Discoverer: fakeDiscoverer{papers: testPapers()},
		Channels:   []deliver.Channel{email},
	})

	report := p.Run(ctx, types.SearchQuery{LookbackDays: 1, MaxResults: 5})

	assert.Equal(t, 2, report.Discovered)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, email.sent)
}
