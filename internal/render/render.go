// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render draws the shareable digest image for a paper: a title
// card, a metadata column beside the first-page preview, and the analysis
// sections. A text-only variant exists for when the full layout fails.
package render

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/rs/zerolog"

	"github.com/pdiddy/arxiv-digest/internal/analyze"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

const outputDir = "generated_images"

// Canvas geometry in pixels.
const (
	width         = 1080
	height        = 1820
	simpleHeight  = 800
	margin        = 20
	padding       = 20
	radius        = 15
	sectionGap    = 15
	titleHeight   = 120
	middleHeight  = 1200
	infoWidth     = 160
	columnGap     = 20
	analysisTop   = margin + titleHeight + sectionGap + middleHeight + sectionGap
	analysisBoxH  = height - analysisTop - margin
	lineSpacing   = 1.3
	maxTitleLines = 3
	maxAuthors    = 2
)

// Palette.
const (
	colorBackground = "#f8fafc"
	colorCard       = "#ffffff"
	colorHeader     = "#1e293b"
	colorText       = "#475569"
	colorAccent     = "#0ea5e9"
	colorAnalysis   = "#f0fdf4"
	colorBorder     = "#e2e8f0"
	colorBar        = "#f1f5f9"
	colorFooter     = "#d3d3d3"
)

// Renderer draws digest images into {dir}/generated_images.
type Renderer struct {
	dir    string
	faces  faces
	logger zerolog.Logger
	now    func() time.Time
}

// New loads fonts and returns a Renderer writing under cfg.DownloadDir.
func New(cfg types.ArtifactConfig, logger zerolog.Logger) (*Renderer, error) {
	f, err := loadFaces(cfg.FontPaths, logger)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		dir:    filepath.Join(cfg.DownloadDir, outputDir),
		faces:  f,
		logger: logger,
		now:    time.Now,
	}, nil
}

// DigestPath returns the full digest location for id.
func (r *Renderer) DigestPath(id string) string {
	return filepath.Join(r.dir, types.FileStem(id)+"_summary.png")
}

// SimplePath returns the text-only digest location for id.
func (r *Renderer) SimplePath(id string) string {
	return filepath.Join(r.dir, types.FileStem(id)+"_simple.png")
}

// RenderDigest draws the full layout for p. An existing image is reused
// when it was drawn from the same analysis. A missing or unreadable preview
// leaves a placeholder in its slot.
func (r *Renderer) RenderDigest(p types.Paper) (string, error) {
	return r.render(r.DigestPath(p.ID), contentKey(p), width, height, func(dc *gg.Context) {
		r.drawDigest(dc, p)
	})
}

// RenderSimple draws the text-only layout for p. An existing image is
// reused when it was drawn from the same analysis.
func (r *Renderer) RenderSimple(p types.Paper) (string, error) {
	return r.render(r.SimplePath(p.ID), contentKey(p), width, simpleHeight, func(dc *gg.Context) {
		r.drawSimple(dc, p)
	})
}

// contentKey fingerprints the text drawn into a digest. An image rendered
// from the fallback analysis stops matching once the analyzer answers.
func contentKey(p types.Paper) string {
	sum := sha256.Sum256([]byte(p.Title + "\x00" + p.Analysis))
	return hex.EncodeToString(sum[:])
}

func keyPath(out string) string { return out + ".key" }

func (r *Renderer) render(out, key string, w, h int, draw func(dc *gg.Context)) (path string, err error) {
	if info, statErr := os.Stat(out); statErr == nil && !info.IsDir() {
		if stored, readErr := os.ReadFile(keyPath(out)); readErr == nil && string(stored) == key {
			r.logger.Debug().Str("path", out).Msg("digest image cached")
			return out, nil
		}
		r.logger.Debug().Str("path", out).Msg("digest image stale, redrawing")
	}
	defer func() {
		if rec := recover(); rec != nil {
			path, err = "", fmt.Errorf("drawing %s: %v", filepath.Base(out), rec)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", filepath.Dir(out), err)
	}

	dc := gg.NewContext(w, h)
	dc.SetHexColor(colorBackground)
	dc.Clear()
	draw(dc)

	tmp, err := os.CreateTemp(filepath.Dir(out), ".digest-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	encErr := dc.EncodePNG(tmp)
	closeErr := tmp.Close()
	if encErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing %s: %v", filepath.Base(out), firstErr(encErr, closeErr))
	}
	if err := os.Rename(tmpPath, out); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	if err := os.WriteFile(keyPath(out), []byte(key), 0o644); err != nil {
		r.logger.Warn().Err(err).Str("path", out).Msg("recording digest key failed")
	}
	r.logger.Info().Str("path", out).Msg("digest image rendered")
	return out, nil
}

func (r *Renderer) drawDigest(dc *gg.Context, p types.Paper) {
	// Title card.
	y := float64(margin)
	card(dc, margin, y, width-2*margin, titleHeight, colorCard)
	dc.SetFontFace(r.faces.title)
	dc.SetHexColor(colorHeader)
	drawLines(dc, limit(wrap(dc, p.Title, width-2*margin-2*padding), maxTitleLines), margin+padding, y+padding, lineSpacing)
	y += titleHeight + sectionGap

	// Metadata column.
	card(dc, margin, y, infoWidth, middleHeight, colorCard)
	r.drawInfo(dc, p, margin+12, y+padding, infoWidth-24)

	// Preview column.
	px := float64(margin + infoWidth + columnGap)
	pw := float64(width-margin) - px
	card(dc, px, y, pw, middleHeight, colorCard)
	r.drawPreview(dc, p, px, y, pw, middleHeight)
	y += middleHeight + sectionGap

	// Analysis.
	card(dc, margin, y, width-2*margin, float64(analysisBoxH), colorAnalysis)
	dc.SetFontFace(r.faces.subtitle)
	dc.SetHexColor(colorHeader)
	drawLines(dc, []string{"AI Summary"}, margin+padding, y+padding, 1)
	r.drawAnalysis(dc, p.Analysis, margin+padding, y+padding+40, width-2*margin-2*padding, y+float64(analysisBoxH)-padding)
}

func (r *Renderer) drawInfo(dc *gg.Context, p types.Paper, x, y, w float64) {
	field := func(label string, lines []string) {
		dc.SetFontFace(r.faces.small)
		dc.SetHexColor(colorAccent)
		y = drawLines(dc, []string{label}, x, y, 1)
		dc.SetHexColor(colorHeader)
		for _, line := range lines {
			y = drawLines(dc, wrap(dc, line, w), x, y, 1.2)
		}
		y += 18
	}

	field("arXiv ID", []string{p.ID})
	authors := p.Authors
	if len(authors) > maxAuthors {
		authors = append(authors[:maxAuthors:maxAuthors], "et al.")
	}
	field("Authors", authors)
	if !p.PublishedAt.IsZero() {
		field("Published", []string{p.PublishedAt.UTC().Format("2006-01-02")})
	}
	if len(p.Categories) > 0 {
		field("Categories", p.Categories)
	}
}

func (r *Renderer) drawPreview(dc *gg.Context, p types.Paper, x, y, w, h float64) {
	dc.SetHexColor(colorBar)
	dc.DrawRoundedRectangle(x, y, w, 44, radius)
	dc.Fill()
	dc.SetFontFace(r.faces.subtitle)
	dc.SetHexColor(colorHeader)
	drawLines(dc, []string{"First page"}, x+padding, y+10, 1)

	img, err := r.loadPreview(p)
	if err != nil {
		if p.HasPreview() {
			r.logger.Warn().Err(err).Str("paper_id", p.ID).Msg("preview unavailable for digest")
		}
		dc.SetFontFace(r.faces.body)
		dc.SetHexColor(colorText)
		dc.DrawStringAnchored("Preview unavailable", x+w/2, y+h/2, 0.5, 0.5)
		return
	}

	boxW := int(w) - 2*padding
	boxH := int(h) - 50 - 50
	img = imaging.Fit(img, boxW, boxH, imaging.Lanczos)
	b := img.Bounds()
	dc.DrawImage(img, int(x)+(int(w)-b.Dx())/2, int(y)+50)

	footer := "arXiv digest | " + r.now().Format("2006-01-02")
	dc.SetFontFace(r.faces.small)
	dc.SetHexColor(colorFooter)
	dc.DrawStringAnchored(footer, x+w/2, y+h-25, 0.5, 0.5)
}

func (r *Renderer) loadPreview(p types.Paper) (image.Image, error) {
	if !p.HasPreview() {
		return nil, fmt.Errorf("no preview")
	}
	return imaging.Open(p.PreviewPath)
}

// drawAnalysis writes labeled sections from top to bottom and stops when the
// next line would cross bottom.
func (r *Renderer) drawAnalysis(dc *gg.Context, text string, x, y, w, bottom float64) float64 {
	for _, sec := range analyze.ParseSections(text) {
		var lines []string
		dc.SetFontFace(r.faces.body)
		if sec.Label != "" {
			lines = wrap(dc, sec.Label+": "+sec.Body, w)
		} else {
			lines = wrap(dc, sec.Body, w)
		}
		lh := dc.FontHeight() * lineSpacing
		for i, line := range lines {
			if y+lh > bottom {
				return y
			}
			if i == 0 && sec.Label != "" {
				y = r.drawLabeledLine(dc, sec.Label, line, x, y)
				continue
			}
			dc.SetFontFace(r.faces.body)
			dc.SetHexColor(colorText)
			y = drawLines(dc, []string{line}, x, y, lineSpacing)
		}
		y += 6
	}
	return y
}

// drawLabeledLine draws the label prefix of line in bold accent and the rest
// in body text.
func (r *Renderer) drawLabeledLine(dc *gg.Context, label, line string, x, y float64) float64 {
	prefix := label + ": "
	rest := strings.TrimPrefix(line, prefix)
	if rest == line {
		dc.SetHexColor(colorAccent)
		dc.SetFontFace(r.faces.label)
		return drawLines(dc, []string{line}, x, y, lineSpacing)
	}
	dc.SetFontFace(r.faces.label)
	dc.SetHexColor(colorAccent)
	drawLines(dc, []string{prefix}, x, y, lineSpacing)
	pw, _ := dc.MeasureString(prefix)
	dc.SetFontFace(r.faces.body)
	dc.SetHexColor(colorText)
	return drawLines(dc, []string{rest}, x+pw, y, lineSpacing)
}

func (r *Renderer) drawSimple(dc *gg.Context, p types.Paper) {
	dc.SetHexColor(colorBorder)
	dc.DrawRoundedRectangle(margin-2, margin-2, width-2*margin+4, simpleHeight-2*margin+4, radius)
	dc.Fill()
	card(dc, margin, margin, width-2*margin, simpleHeight-2*margin, colorCard)

	x := float64(margin + padding)
	w := float64(width - 2*margin - 2*padding)
	y := float64(margin + 2*padding)

	dc.SetFontFace(r.faces.title)
	dc.SetHexColor(colorHeader)
	y = drawLines(dc, limit(wrap(dc, p.Title, w), maxTitleLines), x, y, lineSpacing) + 20

	info := []string{"arXiv ID: " + p.ID}
	if len(p.Authors) > 0 {
		authors := p.Authors[:min(len(p.Authors), maxAuthors)]
		info = append(info, "Authors: "+strings.Join(authors, ", "))
	}
	if !p.PublishedAt.IsZero() {
		info = append(info, "Published: "+p.PublishedAt.UTC().Format("2006-01-02"))
	}
	dc.SetFontFace(r.faces.body)
	dc.SetHexColor(colorText)
	y = drawLines(dc, info, x, y, lineSpacing) + 30

	if strings.TrimSpace(p.Analysis) == "" {
		return
	}
	dc.SetFontFace(r.faces.subtitle)
	dc.SetHexColor(colorHeader)
	y = drawLines(dc, []string{"AI Summary"}, x, y, 1) + 10
	r.drawAnalysis(dc, p.Analysis, x, y, w, simpleHeight-margin-padding)
}

func card(dc *gg.Context, x, y, w, h float64, fill string) {
	dc.SetRGBA(0, 0, 0, 0.06)
	dc.DrawRoundedRectangle(x+3, y+3, w, h, radius)
	dc.Fill()
	dc.SetHexColor(fill)
	dc.DrawRoundedRectangle(x, y, w, h, radius)
	dc.Fill()
}

// drawLines draws lines top-down starting with the top of the first line at
// y, and returns the y below the last line.
func drawLines(dc *gg.Context, lines []string, x, y, spacing float64) float64 {
	fh := dc.FontHeight()
	for _, line := range lines {
		dc.DrawString(line, x, y+fh)
		y += fh * spacing
	}
	return y
}

// wrap breaks text into lines no wider than w using the current face.
// Words wider than w are split between runes, which also handles scripts
// written without spaces.
func wrap(dc *gg.Context, text string, w float64) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		var line string
		for _, word := range strings.Fields(para) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if tw, _ := dc.MeasureString(candidate); tw <= w {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			for _, part := range splitRunes(dc, word, w) {
				if line != "" {
					lines = append(lines, line)
				}
				line = part
			}
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func splitRunes(dc *gg.Context, word string, w float64) []string {
	if tw, _ := dc.MeasureString(word); tw <= w {
		return []string{word}
	}
	var parts []string
	var cur []rune
	for _, r := range word {
		next := append(cur, r)
		if tw, _ := dc.MeasureString(string(next)); tw > w && len(cur) > 0 {
			parts = append(parts, string(cur))
			cur = []rune{r}
			continue
		}
		cur = next
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}

// limit keeps at most n lines, marking the cut with an ellipsis.
func limit(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	out := append([]string(nil), lines[:n]...)
	out[n-1] = strings.TrimRight(out[n-1], " .,;:") + "..."
	return out
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
