// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// versionSuffix matches a trailing arXiv version such as "v3".
var versionSuffix = regexp.MustCompile(`v\d+$`)

// NormalizeID extracts the canonical arXiv id from any of the link shapes
// the upstream sources emit:
//
//	https://arxiv.org/abs/2507.12345v3   -> 2507.12345
//	https://arxiv.org/pdf/2507.12345v1.pdf -> 2507.12345
//	oai:arXiv.org:2507.12345v2           -> 2507.12345
//	oai:arXiv.org:cs/0501001v2           -> cs/0501001
//
// The version suffix and any query string are removed. It returns "" when
// nothing usable remains.
func NormalizeID(link string) string {
	candidate := strings.TrimSpace(link)
	if candidate == "" {
		return ""
	}

	for _, token := range []string{"/abs/", "/pdf/"} {
		if _, after, ok := strings.Cut(candidate, token); ok {
			candidate = after
			break
		}
	}

	if strings.HasPrefix(candidate, "oai:") || strings.Contains(candidate, "arXiv.org:") {
		candidate = candidate[strings.LastIndex(candidate, ":")+1:]
	}

	candidate, _, _ = strings.Cut(candidate, "?")
	candidate, _, _ = strings.Cut(candidate, "#")
	candidate, _, _ = strings.Cut(candidate, ".pdf")
	candidate = strings.TrimSuffix(candidate, "/")
	candidate = versionSuffix.ReplaceAllString(candidate, "")
	return strings.TrimSpace(candidate)
}

// normalizeWhitespace collapses runs of whitespace, including newlines, into
// single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// authorSeparator splits a single author field that carries several names.
var authorSeparator = regexp.MustCompile(`,| and `)

// splitAuthors expands names that upstream jammed into one field
// ("A. Smith, B. Jones and C. White") into separate entries, keeping order.
func splitAuthors(raw []string) []string {
	var out []string
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		for _, part := range authorSeparator.Split(name, -1) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// accumulator collects papers across keywords or items, dropping repeats by
// id and anything published before the cutoff.
type accumulator struct {
	cutoff time.Time
	seen   map[string]bool
	papers []types.Paper
}

func newAccumulator(cutoff time.Time) *accumulator {
	return &accumulator{cutoff: cutoff, seen: make(map[string]bool)}
}

// add reports whether p was kept.
func (a *accumulator) add(p types.Paper) bool {
	if p.PublishedAt.Before(a.cutoff) {
		return false
	}
	if a.seen[p.ID] {
		return false
	}
	a.seen[p.ID] = true
	a.papers = append(a.papers, p)
	return true
}

// result returns the papers newest first, truncated by the soft cap.
func (a *accumulator) result(maxResults, keywordCount int) []types.Paper {
	out := slices.Clone(a.papers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return softCap(out, maxResults, keywordCount)
}

// softCap truncates to max(len(papers), maxResults*keywordCount). The limit
// is generous on purpose so several keywords matching on one day all survive.
func softCap(papers []types.Paper, maxResults, keywordCount int) []types.Paper {
	limit := max(len(papers), maxResults*max(1, keywordCount))
	if len(papers) > limit {
		return papers[:limit]
	}
	return papers
}
