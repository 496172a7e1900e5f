// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Stage is the furthest point a paper reached in the delivery pipeline.
type Stage int

const (
	StageDiscovered Stage = iota
	StageArtifactReady
	StageSummarized
	StageRendered
	StageDelivered
)

func (s Stage) String() string {
	switch s {
	case StageDiscovered:
		return "discovered"
	case StageArtifactReady:
		return "artifact_ready"
	case StageSummarized:
		return "summarized"
	case StageRendered:
		return "rendered"
	case StageDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// MarshalText lets reports encode stages by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DigestKind records which digest image variant a paper ended up with.
type DigestKind string

const (
	DigestFull   DigestKind = "full"
	DigestSimple DigestKind = "simple"
	DigestNone   DigestKind = "none"
)

// Outcome is the per-paper, per-run delivery record used for the end-of-run
// tally. It is never persisted across runs.
type Outcome struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`
	Title   string `json:"title" yaml:"title"`

	// Stage is the furthest stage reached.
	Stage Stage `json:"stage" yaml:"stage"`

	// Channels maps each attempted channel to whether it delivered.
	Channels map[string]bool `json:"channels" yaml:"channels"`

	// Skipped lists enabled channels that were not attempted for this paper.
	Skipped []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	// PreviewMissing is set when the artifact stage ran in degraded mode.
	PreviewMissing bool `json:"preview_missing,omitempty" yaml:"preview_missing,omitempty"`

	// FallbackAnalysis is set when the analyzer substituted its rule-based summary.
	FallbackAnalysis bool `json:"fallback_analysis,omitempty" yaml:"fallback_analysis,omitempty"`

	Digest DigestKind `json:"digest" yaml:"digest"`

	// Err holds the message of an unhandled per-paper failure.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Delivered reports whether at least one channel delivered the paper.
func (o Outcome) Delivered() bool {
	for _, ok := range o.Channels {
		if ok {
			return true
		}
	}
	return false
}

// Partial reports whether some but not all attempted channels delivered.
func (o Outcome) Partial() bool {
	if !o.Delivered() {
		return false
	}
	for _, ok := range o.Channels {
		if !ok {
			return true
		}
	}
	return len(o.Skipped) > 0
}

// Report is the tally of one pipeline run.
type Report struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Source     string    `json:"source" yaml:"source"`
	Started    time.Time `json:"started" yaml:"started"`
	Finished   time.Time `json:"finished" yaml:"finished"`
	Discovered int       `json:"discovered" yaml:"discovered"`
	Succeeded  int       `json:"succeeded" yaml:"succeeded"`
	Failed     int       `json:"failed" yaml:"failed"`
	Outcomes   []Outcome `json:"outcomes" yaml:"outcomes"`
}

// Duration returns how long the run took.
func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// HasFailures reports whether any paper failed.
func (r Report) HasFailures() bool {
	return r.Failed > 0
}
