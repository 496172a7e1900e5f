// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{"https://arxiv.org/abs/2507.12345v3", "2507.12345"},
		{"http://arxiv.org/abs/2507.12345", "2507.12345"},
		{"https://arxiv.org/pdf/2507.12345v1.pdf", "2507.12345"},
		{"https://arxiv.org/pdf/2507.12345", "2507.12345"},
		{"oai:arXiv.org:2507.12345v2", "2507.12345"},
		{"https://arxiv.org/abs/2507.12345v2?context=cs.LG", "2507.12345"},
		{"http://arxiv.org/abs/cs/0501001v1", "cs/0501001"},
		{"oai:arXiv.org:cs/0501001v2", "cs/0501001"},
		{"  2507.12345v10  ", "2507.12345"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			if got := NormalizeID(tt.link); got != tt.want {
				t.Errorf("NormalizeID(%q) = %q, want %q", tt.link, got, tt.want)
			}
		})
	}
}

func TestSplitAuthors(t *testing.T) {
	got := splitAuthors([]string{"Ada Lovelace, Alan Turing and Grace Hopper", "  ", "Edsger Dijkstra"})
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing", "Grace Hopper", "Edsger Dijkstra"}, got)
}

func TestAccumulatorDedupAndCutoff(t *testing.T) {
	cutoff := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	acc := newAccumulator(cutoff)

	assert.True(t, acc.add(types.Paper{ID: "a", PublishedAt: cutoff.Add(time.Hour)}))
	assert.False(t, acc.add(types.Paper{ID: "a", PublishedAt: cutoff.Add(2 * time.Hour)}), "repeat id")
	assert.False(t, acc.add(types.Paper{ID: "old", PublishedAt: cutoff.Add(-time.Second)}), "before cutoff")
	assert.True(t, acc.add(types.Paper{ID: "edge", PublishedAt: cutoff}), "cutoff is inclusive")
	assert.True(t, acc.add(types.Paper{ID: "b", PublishedAt: cutoff.Add(3 * time.Hour)}))

	got := acc.result(5, 1)
	ids := make([]string, len(got))
	for i, p := range got {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"b", "a", "edge"}, ids)
}

func TestAccumulatorResultLeavesInsertionOrder(t *testing.T) {
	cutoff := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	acc := newAccumulator(cutoff)
	acc.add(types.Paper{ID: "older", PublishedAt: cutoff.Add(time.Hour)})
	acc.add(types.Paper{ID: "newer", PublishedAt: cutoff.Add(2 * time.Hour)})

	first := acc.result(5, 1)
	assert.Equal(t, "newer", first[0].ID)
	assert.Equal(t, "older", acc.papers[0].ID, "result sorts a copy")

	acc.add(types.Paper{ID: "newest", PublishedAt: cutoff.Add(3 * time.Hour)})
	second := acc.result(5, 1)
	assert.Equal(t, "newer", first[0].ID, "earlier result unchanged")
	assert.Equal(t, []string{"newest", "newer", "older"}, []string{second[0].ID, second[1].ID, second[2].ID})
}

func TestSoftCapNeverDropsBelowTotal(t *testing.T) {
	papers := make([]types.Paper, 7)
	assert.Len(t, softCap(papers, 2, 1), 7)
	assert.Len(t, softCap(papers, 2, 5), 7)
	assert.Len(t, softCap(papers, 0, 0), 7)
	assert.Empty(t, softCap(nil, 3, 2))
}
