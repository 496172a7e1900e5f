// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the arxiv-digest pipeline:
// the Paper record produced by discovery, the SearchQuery handed to sources,
// the per-paper delivery Outcome, and the per-stage configuration structs.
package types

import (
	"fmt"
	"strings"
)

// SearchQuery holds the parameters of one discovery invocation. It is not
// persisted.
type SearchQuery struct {
	// Keywords are matched with OR semantics, in configured order.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// LookbackDays is the trailing window a paper's publication time must fall in.
	LookbackDays int `json:"lookback_days" yaml:"lookback_days"`

	// MaxResults bounds each upstream request.
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// Validate reports whether the query can be sent to a source.
func (q SearchQuery) Validate() error {
	if q.LookbackDays <= 0 {
		return fmt.Errorf("lookback days must be positive, got %d", q.LookbackDays)
	}
	if q.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive, got %d", q.MaxResults)
	}
	return nil
}

// NormalizedKeywords returns the lower-cased, trimmed, non-empty keywords.
func (q SearchQuery) NormalizedKeywords() []string {
	out := make([]string, 0, len(q.Keywords))
	for _, kw := range q.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
