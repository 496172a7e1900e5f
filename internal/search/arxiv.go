// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/arxiv-digest/internal/httputil"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// apiCategories is the fixed category allowlist ANDed into every query.
var apiCategories = []string{"cs.AI", "cs.CL", "cs.CV", "cs.LG", "cs.NE", "cs.RO", "stat.ML"}

const atomAccept = "application/atom+xml"

// APISource queries the arXiv API once per keyword. The API ANDs every term
// in a single search_query, so OR semantics across keywords need separate
// requests.
type APISource struct {
	Client *httputil.Client
	Logger zerolog.Logger
	Now    func() time.Time
}

// Name returns the source identifier.
func (s *APISource) Name() string { return "arxiv-api" }

// Search runs one query per keyword and merges the results.
func (s *APISource) Search(ctx context.Context, q types.SearchQuery) []types.Paper {
	now := nowFunc(s.Now)().UTC()
	keywords := q.NormalizedKeywords()
	acc := newAccumulator(now.AddDate(0, 0, -q.LookbackDays))

	for _, kw := range keywords {
		if ctx.Err() != nil {
			s.Logger.Warn().Err(ctx.Err()).Msg("search cancelled")
			break
		}
		papers, err := s.searchKeyword(ctx, kw, q, now)
		if err != nil {
			s.Logger.Error().Err(err).Str("keyword", kw).Msg("arXiv query failed")
			continue
		}
		added := 0
		for _, p := range papers {
			if acc.add(p) {
				added++
			}
		}
		s.Logger.Debug().
			Str("keyword", kw).
			Int("fetched", len(papers)).
			Int("added", added).
			Msg("keyword searched")
	}

	return acc.result(q.MaxResults, len(keywords))
}

func (s *APISource) searchKeyword(ctx context.Context, keyword string, q types.SearchQuery, now time.Time) ([]types.Paper, error) {
	params := url.Values{}
	params.Set("search_query", buildQuery(keyword, now, q.LookbackDays))
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(q.MaxResults))
	params.Set("sortBy", "lastUpdatedDate")
	params.Set("sortOrder", "descending")

	resp, err := s.Client.Get(ctx, arxivAPIBase+"?"+params.Encode(), atomAccept)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	entries, err := decodeEntries(resp.Body)
	if err != nil {
		if len(entries) == 0 {
			return nil, fmt.Errorf("parsing arXiv response: %w", err)
		}
		s.Logger.Warn().Err(err).Int("entries", len(entries)).Msg("truncated arXiv response, keeping parsed entries")
	}

	papers := make([]types.Paper, 0, len(entries))
	for _, e := range entries {
		p, err := e.toPaper()
		if err != nil {
			s.Logger.Warn().Err(err).Str("entry", e.ID).Msg("skipping arXiv entry")
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// buildQuery constructs the search_query value for one keyword:
// the keyword, the submission window, and the category allowlist.
// Multi-word keywords are quoted so they match as a phrase.
func buildQuery(keyword string, now time.Time, lookbackDays int) string {
	term := keyword
	if strings.ContainsAny(term, " \t") {
		term = strconv.Quote(term)
	}
	cats := make([]string, len(apiCategories))
	for i, c := range apiCategories {
		cats[i] = "cat:" + c
	}
	const compact = "20060102"
	from := now.AddDate(0, 0, -lookbackDays).Format(compact)
	to := now.Format(compact)
	return fmt.Sprintf("all:%s AND submittedDate:[%s* TO %s*] AND (%s)",
		term, from, to, strings.Join(cats, " OR "))
}

// decodeEntries streams <entry> elements from an Atom document. On a syntax
// error it returns the entries decoded so far together with the error.
func decodeEntries(r io.Reader) ([]atomEntry, error) {
	dec := xml.NewDecoder(r)
	var entries []atomEntry
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "entry" {
			continue
		}
		var e atomEntry
		if err := dec.DecodeElement(&e, &start); err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
}

// arXiv Atom feed XML structures.
type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
	Links      []atomLink     `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

func (e atomEntry) toPaper() (types.Paper, error) {
	id := NormalizeID(e.ID)
	if id == "" {
		return types.Paper{}, fmt.Errorf("no arXiv id in %q", e.ID)
	}
	title := normalizeWhitespace(e.Title)
	if title == "" {
		return types.Paper{}, fmt.Errorf("entry %s has no title", id)
	}
	published, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published))
	if err != nil {
		return types.Paper{}, fmt.Errorf("entry %s: parsing published date: %w", id, err)
	}

	p := types.Paper{
		ID:          id,
		Title:       title,
		Abstract:    normalizeWhitespace(e.Summary),
		PublishedAt: published.UTC(),
		SourceURL:   strings.TrimSpace(e.ID),
		DocumentURL: types.DocumentURL(id),
	}
	for _, a := range e.Authors {
		if name := normalizeWhitespace(a.Name); name != "" {
			p.Authors = append(p.Authors, name)
		}
	}
	for _, c := range e.Categories {
		if c.Term != "" {
			p.Categories = append(p.Categories, c.Term)
		}
	}
	for _, l := range e.Links {
		if l.Rel == "alternate" && l.Href != "" {
			p.SourceURL = l.Href
		}
	}
	return p, nil
}
