// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search discovers recent arXiv papers matching a keyword list.
// Two interchangeable sources exist: the query API (one request per keyword)
// and the CS listing feed (one fetch, filtered client side). Both return a
// deduplicated list ordered newest first and never return an error; failures
// are logged and count as zero results.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/arxiv-digest/internal/httputil"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// Source finds candidate papers for a query. Implementations never fail:
// upstream errors are logged and produce an empty or partial slice.
type Source interface {
	Name() string
	Search(ctx context.Context, q types.SearchQuery) []types.Paper
}

// NewSource returns the Source selected by kind. now may be nil, in which
// case the system clock is used.
func NewSource(kind types.SourceKind, client *httputil.Client, logger zerolog.Logger, now func() time.Time) (Source, error) {
	switch kind {
	case types.SourceAPI, "":
		return &APISource{Client: client, Logger: logger, Now: now}, nil
	case types.SourceRSS:
		return &FeedSource{Client: client, Logger: logger, Now: now}, nil
	default:
		return nil, fmt.Errorf("unknown search source %q (want %q or %q)", kind, types.SourceAPI, types.SourceRSS)
	}
}

// Service is the discovery entry point used by the pipeline. It delegates
// to exactly one Source.
type Service struct {
	source Source
	logger zerolog.Logger
}

// NewService wraps source.
func NewService(source Source, logger zerolog.Logger) *Service {
	return &Service{source: source, logger: logger}
}

// SourceName reports which source is in use.
func (s *Service) SourceName() string { return s.source.Name() }

// Discover returns new papers for q. An invalid query yields no papers.
func (s *Service) Discover(ctx context.Context, q types.SearchQuery) []types.Paper {
	if err := q.Validate(); err != nil {
		s.logger.Error().Err(err).Msg("invalid search query")
		return nil
	}
	start := time.Now()
	papers := s.source.Search(ctx, q)
	s.logger.Info().
		Str("source", s.source.Name()).
		Int("papers", len(papers)).
		Dur("elapsed", time.Since(start)).
		Msg("discovery finished")
	return papers
}

func nowFunc(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

// FormatTable writes papers as a human-readable table to w.
func FormatTable(papers []types.Paper, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-12s  %-16s  %-60s  %s\n",
		"#", "ID", "Published", "Title", "Authors")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, p := range papers {
		published := ""
		if !p.PublishedAt.IsZero() {
			published = p.PublishedAt.UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%-4d  %-12s  %-16s  %-60s  %s\n",
			i+1, p.ID, published, truncate(p.Title, 60), formatAuthors(p.Authors))
	}

	fmt.Fprintf(w, "\n%d papers\n", len(papers))
}

// FormatJSON writes papers as indented JSON to w.
func FormatJSON(papers []types.Paper, w io.Writer) error {
	if papers == nil {
		papers = []types.Paper{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(papers)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 24)
	default:
		return truncate(authors[0], 18) + " et al."
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
