// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package deliver sends finished digests to recipients. Each channel reports
// success as a bool and never returns an error: failures are logged and the
// pipeline moves on to the next channel.
package deliver

import (
	"context"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// Channel delivers one paper. digestPath is the rendered digest image, or ""
// when no image could be produced.
type Channel interface {
	Name() string
	Enabled() bool

	// RequiresImage reports whether Send is pointless without a digest image.
	RequiresImage() bool

	Send(ctx context.Context, p types.Paper, digestPath string) bool
}
