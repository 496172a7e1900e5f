// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/pdiddy/arxiv-digest/internal/httputil"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// feedURL is the arXiv CS listing feed. Declared as a var so tests can
// substitute an httptest server.
var feedURL = "http://rss.arxiv.org/rss/cs"

// maxFeedBytes bounds how much of the feed is read into memory.
const maxFeedBytes = 32 << 20

const feedAccept = "application/rss+xml, application/xml;q=0.9, */*;q=0.8"

// feedDateLayouts are tried in order when the parser could not produce a
// date on its own.
var feedDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FeedSource fetches the whole CS listing feed once and filters by keyword
// locally.
type FeedSource struct {
	Client *httputil.Client
	Logger zerolog.Logger
	Now    func() time.Time
}

// Name returns the source identifier.
func (s *FeedSource) Name() string { return "arxiv-rss" }

// Search fetches the feed and keeps items whose title or abstract contains
// at least one keyword.
func (s *FeedSource) Search(ctx context.Context, q types.SearchQuery) []types.Paper {
	now := nowFunc(s.Now)().UTC()
	keywords := q.NormalizedKeywords()
	acc := newAccumulator(now.AddDate(0, 0, -q.LookbackDays))

	feed, err := s.fetch(ctx)
	if err != nil {
		s.Logger.Error().Err(err).Str("url", feedURL).Msg("fetching RSS feed failed")
		return nil
	}

	matched := 0
	for _, item := range feed.Items {
		p, err := itemToPaper(item)
		if err != nil {
			s.Logger.Warn().Err(err).Str("link", item.Link).Msg("skipping feed item")
			continue
		}
		if !matchesAny(p, keywords) {
			continue
		}
		matched++
		acc.add(p)
	}

	s.Logger.Debug().
		Int("items", len(feed.Items)).
		Int("matched", matched).
		Int("kept", len(acc.papers)).
		Msg("feed filtered")

	return acc.result(q.MaxResults, len(keywords))
}

// fetch downloads and parses the feed. When the document is malformed it
// retries once on a copy cut back to the last complete item.
func (s *FeedSource) fetch(ctx context.Context) (*gofeed.Feed, error) {
	resp, err := s.Client.Get(ctx, feedURL, feedAccept)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil && len(body) == 0 {
		return nil, fmt.Errorf("reading feed: %w", err)
	}

	parser := gofeed.NewParser()
	feed, parseErr := parser.Parse(bytes.NewReader(body))
	if parseErr == nil {
		return feed, nil
	}

	repaired, ok := repairFeed(body)
	if !ok {
		return nil, fmt.Errorf("parsing feed: %w", parseErr)
	}
	feed, err = parser.Parse(bytes.NewReader(repaired))
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w (repair failed: %v)", parseErr, err)
	}
	s.Logger.Warn().Err(parseErr).Int("items", len(feed.Items)).Msg("malformed feed, recovered complete items")
	return feed, nil
}

// repairFeed truncates body after the last closing item tag and closes the
// channel. It reports false when no complete item exists.
func repairFeed(body []byte) ([]byte, bool) {
	const closeItem = "</item>"
	idx := bytes.LastIndex(body, []byte(closeItem))
	if idx < 0 {
		return nil, false
	}
	out := make([]byte, 0, idx+len(closeItem)+32)
	out = append(out, body[:idx+len(closeItem)]...)
	out = append(out, "\n</channel>\n</rss>\n"...)
	return out, true
}

func matchesAny(p types.Paper, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	blob := strings.ToLower(p.Title + "\n" + p.Abstract)
	for _, kw := range keywords {
		if strings.Contains(blob, kw) {
			return true
		}
	}
	return false
}

func itemToPaper(item *gofeed.Item) (types.Paper, error) {
	link := itemLink(item)
	idSource := link
	if idSource == "" {
		idSource = item.GUID
	}
	id := NormalizeID(idSource)
	if id == "" {
		return types.Paper{}, fmt.Errorf("no arXiv id in link %q or guid %q", link, item.GUID)
	}

	title := normalizeWhitespace(item.Title)
	if title == "" {
		return types.Paper{}, fmt.Errorf("item %s has no title", id)
	}

	published, err := itemDate(item)
	if err != nil {
		return types.Paper{}, fmt.Errorf("item %s: %w", id, err)
	}

	sourceURL := link
	if sourceURL == "" {
		sourceURL = "https://arxiv.org/abs/" + id
	}

	p := types.Paper{
		ID:          id,
		Title:       title,
		Abstract:    cleanAbstract(item.Description),
		Authors:     itemAuthors(item),
		PublishedAt: published,
		SourceURL:   sourceURL,
		DocumentURL: types.DocumentURL(id),
	}
	for _, c := range item.Categories {
		if c = strings.TrimSpace(c); c != "" {
			p.Categories = append(p.Categories, c)
		}
	}
	return p, nil
}

func itemLink(item *gofeed.Item) string {
	if item.Link != "" {
		return strings.TrimSpace(item.Link)
	}
	for _, l := range item.Links {
		if strings.Contains(l, "/abs/") {
			return strings.TrimSpace(l)
		}
	}
	if len(item.Links) > 0 {
		return strings.TrimSpace(item.Links[0])
	}
	return ""
}

func itemAuthors(item *gofeed.Item) []string {
	var raw []string
	for _, a := range item.Authors {
		if a != nil {
			raw = append(raw, a.Name)
		}
	}
	if len(raw) == 0 && item.DublinCoreExt != nil {
		raw = append(raw, item.DublinCoreExt.Creator...)
	}
	return splitAuthors(raw)
}

// itemDate prefers the parser's own published and updated dates and falls
// back to the raw strings. All dates are returned in UTC.
func itemDate(item *gofeed.Item) (time.Time, error) {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC(), nil
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC(), nil
	}
	for _, raw := range []string{item.Published, item.Updated} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, layout := range feedDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("no parseable publication date")
}

// cleanAbstract keeps the text after the "Abstract:" marker the CS feed
// prefixes to every description, unescapes entities, and collapses
// whitespace.
func cleanAbstract(description string) string {
	text := description
	if _, after, ok := strings.Cut(text, "Abstract:"); ok {
		text = after
	}
	return normalizeWhitespace(html.UnescapeString(text))
}
