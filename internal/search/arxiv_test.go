// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/arxiv-digest/internal/httputil"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testClient() *httputil.Client {
	return httputil.New(5*time.Second, "test/0.1", 0)
}

func atomEntryXML(id, title string, published time.Time) string {
	return fmt.Sprintf(`<entry>
    <id>http://arxiv.org/abs/%[1]sv2</id>
    <published>%[3]s</published>
    <title>%[2]s</title>
    <summary>  An abstract
      about %[2]s.  </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link href="http://arxiv.org/abs/%[1]sv2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/%[1]sv2" rel="related" type="application/pdf"/>
    <arxiv:primary_category xmlns:arxiv="http://arxiv.org/schemas/atom" term="cs.LG"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.AI" scheme="http://arxiv.org/schemas/atom"/>
  </entry>`, id, title, published.Format(time.RFC3339))
}

func atomFeed(entries ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>arXiv Query</title>
  ` + strings.Join(entries, "\n  ") + `
</feed>`
}

func useAPIServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	orig := arxivAPIBase
	arxivAPIBase = srv.URL
	t.Cleanup(func() { arxivAPIBase = orig })
}

func TestBuildQuery(t *testing.T) {
	got := buildQuery("large language model", fixedNow, 3)
	assert.Equal(t,
		`all:"large language model" AND submittedDate:[20260307* TO 20260310*] AND `+
			`(cat:cs.AI OR cat:cs.CL OR cat:cs.CV OR cat:cs.LG OR cat:cs.NE OR cat:cs.RO OR cat:stat.ML)`,
		got)

	assert.True(t, strings.HasPrefix(buildQuery("agent", fixedNow, 1), "all:agent AND submittedDate:[20260309* TO 20260310*]"))
}

func TestAPISourceOneRequestPerKeywordWithGlobalDedup(t *testing.T) {
	var requests atomic.Int32
	useAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "lastUpdatedDate", q.Get("sortBy"))
		assert.Equal(t, "descending", q.Get("sortOrder"))
		assert.Equal(t, "5", q.Get("max_results"))

		w.Header().Set("Content-Type", "application/atom+xml")
		switch {
		case strings.Contains(q.Get("search_query"), "all:agent"):
			fmt.Fprint(w, atomFeed(
				atomEntryXML("2603.00001", "Agents at Work", fixedNow.Add(-2*time.Hour)),
				atomEntryXML("2603.00002", "Shared Paper", fixedNow.Add(-5*time.Hour)),
			))
		case strings.Contains(q.Get("search_query"), "all:diffusion"):
			fmt.Fprint(w, atomFeed(
				atomEntryXML("2603.00002", "Shared Paper", fixedNow.Add(-5*time.Hour)),
				atomEntryXML("2603.00003", "Diffusion Everywhere", fixedNow.Add(-1*time.Hour)),
			))
		default:
			t.Errorf("unexpected query %q", q.Get("search_query"))
		}
	})

	src := &APISource{Client: testClient(), Logger: zerolog.Nop(), Now: fixedClock}
	papers := src.Search(context.Background(), types.SearchQuery{
		Keywords:     []string{"agent", "Diffusion"},
		LookbackDays: 3,
		MaxResults:   5,
	})

	assert.EqualValues(t, 2, requests.Load(), "one request per keyword")
	require.Len(t, papers, 3)
	assert.Equal(t, "2603.00003", papers[0].ID, "newest first")
	assert.Equal(t, "2603.00001", papers[1].ID)
	assert.Equal(t, "2603.00002", papers[2].ID)

	p := papers[1]
	assert.Equal(t, "Agents at Work", p.Title)
	assert.Equal(t, "An abstract about Agents at Work.", p.Abstract)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, p.Authors)
	assert.Equal(t, []string{"cs.LG", "cs.AI"}, p.Categories)
	assert.Equal(t, "https://arxiv.org/pdf/2603.00001.pdf", p.DocumentURL, "built from the id, not the versioned link")
	for _, got := range papers {
		assert.Equal(t, types.DocumentURL(got.ID), got.DocumentURL)
	}
	assert.Equal(t, "http://arxiv.org/abs/2603.00001v2", p.SourceURL)
	assert.Equal(t, time.UTC, p.PublishedAt.Location())
}

func TestAPISourcePostFilterDropsOldItems(t *testing.T) {
	useAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, atomFeed(
			atomEntryXML("2603.00010", "Fresh", fixedNow.Add(-24*time.Hour)),
			atomEntryXML("2603.00011", "Stale", fixedNow.AddDate(0, 0, -3).Add(-time.Minute)),
		))
	})

	src := &APISource{Client: testClient(), Logger: zerolog.Nop(), Now: fixedClock}
	papers := src.Search(context.Background(), types.SearchQuery{Keywords: []string{"x"}, LookbackDays: 3, MaxResults: 5})

	require.Len(t, papers, 1)
	assert.Equal(t, "2603.00010", papers[0].ID)
}

func TestAPISourceFailedKeywordDoesNotStopOthers(t *testing.T) {
	useAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("search_query"), "all:broken") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, atomFeed(atomEntryXML("2603.00020", "Works", fixedNow.Add(-time.Hour))))
	})

	src := &APISource{Client: testClient(), Logger: zerolog.Nop(), Now: fixedClock}
	papers := src.Search(context.Background(), types.SearchQuery{Keywords: []string{"broken", "fine"}, LookbackDays: 1, MaxResults: 5})

	require.Len(t, papers, 1)
	assert.Equal(t, "2603.00020", papers[0].ID)
}

func TestAPISourceSkipsMalformedEntries(t *testing.T) {
	useAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		bad := `<entry><id>http://arxiv.org/abs/2603.00031v1</id><title>No date</title><published>yesterday</published></entry>`
		noID := `<entry><id></id><title>Orphan</title></entry>`
		fmt.Fprint(w, atomFeed(bad, noID, atomEntryXML("2603.00030", "Good", fixedNow.Add(-time.Hour))))
	})

	src := &APISource{Client: testClient(), Logger: zerolog.Nop(), Now: fixedClock}
	papers := src.Search(context.Background(), types.SearchQuery{Keywords: []string{"x"}, LookbackDays: 1, MaxResults: 5})

	require.Len(t, papers, 1)
	assert.Equal(t, "2603.00030", papers[0].ID)
}

func TestAPISourceKeepsEntriesBeforeTruncation(t *testing.T) {
	useAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		full := atomFeed(atomEntryXML("2603.00040", "Complete", fixedNow.Add(-time.Hour)), "<entry><id>http://arxiv.org/abs/2603.00041")
		fmt.Fprint(w, strings.TrimSuffix(full, "\n</feed>"))
	})

	src := &APISource{Client: testClient(), Logger: zerolog.Nop(), Now: fixedClock}
	papers := src.Search(context.Background(), types.SearchQuery{Keywords: []string{"x"}, LookbackDays: 1, MaxResults: 5})

	require.Len(t, papers, 1)
	assert.Equal(t, "2603.00040", papers[0].ID)
}

func TestAPISourceUnreachable(t *testing.T) {
	orig := arxivAPIBase
	arxivAPIBase = "http://127.0.0.1:1"
	t.Cleanup(func() { arxivAPIBase = orig })

	src := &APISource{Client: testClient(), Logger: zerolog.Nop(), Now: fixedClock}
	papers := src.Search(context.Background(), types.SearchQuery{Keywords: []string{"x"}, LookbackDays: 1, MaxResults: 5})
	assert.Empty(t, papers)
}
