// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"slices"
	"strings"
	"time"
)

// arxivPDFBase is the prefix of every document URL.
const arxivPDFBase = "https://arxiv.org/pdf/"

// Paper is a discovered paper. Adapters construct it once from one upstream
// item; the delivery pipeline derives enriched copies with WithAnalysis and
// WithPreview and never mutates a value after handing it to a channel.
type Paper struct {
	// ID is the canonical arXiv identifier with any version suffix removed
	// (e.g. "2507.12345", "cs/0501001").
	ID string `json:"id" yaml:"id"`

	// Title is whitespace-normalized.
	Title string `json:"title" yaml:"title"`

	// Abstract is whitespace-normalized and HTML-entity-decoded.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// PublishedAt is the publication time in UTC.
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`

	// Categories holds the taxonomy tags reported by the source (e.g. "cs.LG").
	Categories []string `json:"categories" yaml:"categories"`

	// SourceURL is the abstract page link.
	SourceURL string `json:"source_url" yaml:"source_url"`

	// DocumentURL is the PDF link, DocumentURL(ID) for every adapter.
	DocumentURL string `json:"document_url" yaml:"document_url"`

	// Analysis is the analyzer output attached by the pipeline.
	Analysis string `json:"analysis,omitempty" yaml:"analysis,omitempty"`

	// PreviewPath is the first-page preview image owned by the artifact cache.
	PreviewPath string `json:"preview_path,omitempty" yaml:"preview_path,omitempty"`
}

// DocumentURL returns the PDF URL for a canonical arXiv id.
func DocumentURL(id string) string {
	return arxivPDFBase + id + ".pdf"
}

// FileStem returns the id in a form usable as a file name. Legacy ids
// such as "cs/0501001" become "cs_0501001".
func FileStem(id string) string {
	return strings.ReplaceAll(id, "/", "_")
}

// WithAnalysis returns a copy of p carrying the given analysis text.
func (p Paper) WithAnalysis(text string) Paper {
	c := p.clone()
	c.Analysis = text
	return c
}

// WithPreview returns a copy of p carrying the given preview image path.
func (p Paper) WithPreview(path string) Paper {
	c := p.clone()
	c.PreviewPath = path
	return c
}

// HasPreview reports whether a preview image is attached.
func (p Paper) HasPreview() bool {
	return p.PreviewPath != ""
}

func (p Paper) clone() Paper {
	p.Authors = slices.Clone(p.Authors)
	p.Categories = slices.Clone(p.Categories)
	return p
}
