// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact keeps the on-disk document and preview cache. Paths are
// derived from the paper id, and the existence of a file is the cache index:
// a present file is returned as-is and never fetched or rendered again.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/pdiddy/arxiv-digest/internal/httputil"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

const (
	previewDir = "screenshots"
	pdfAccept  = "application/pdf"

	// baseDPI is the native PDF resolution the render scale multiplies.
	baseDPI = 72

	sharpenSigma = 0.6
)

// ErrNoRasterizer is returned when previews are requested but no rasterizer
// was configured.
var ErrNoRasterizer = errors.New("no PDF rasterizer configured")

// Cache fetches documents and renders first-page previews under
// cfg.DownloadDir.
type Cache struct {
	cfg    types.ArtifactConfig
	client *httputil.Client
	raster Rasterizer
	logger zerolog.Logger

	// pageCount is swapped in tests.
	pageCount func(path string) (int, error)
}

// NewCache returns a cache rooted at cfg.DownloadDir. raster may be nil, in
// which case every preview request fails with ErrNoRasterizer.
func NewCache(cfg types.ArtifactConfig, client *httputil.Client, raster Rasterizer, logger zerolog.Logger) *Cache {
	return &Cache{
		cfg:       cfg,
		client:    client,
		raster:    raster,
		logger:    logger,
		pageCount: countPages,
	}
}

// DocumentPath returns {dir}/{id}.pdf.
func (c *Cache) DocumentPath(id string) string {
	return filepath.Join(c.cfg.DownloadDir, types.FileStem(id)+".pdf")
}

// PreviewPath returns {dir}/screenshots/{id}.png.
func (c *Cache) PreviewPath(id string) string {
	return filepath.Join(c.cfg.DownloadDir, previewDir, types.FileStem(id)+".png")
}

// GetOrFetchDocument returns the local document for p, downloading it only
// when it is not already on disk.
func (c *Cache) GetOrFetchDocument(ctx context.Context, p types.Paper) (string, error) {
	path := c.DocumentPath(p.ID)
	if fileExists(path) {
		c.logger.Debug().Str("paper_id", p.ID).Str("path", path).Msg("document cached")
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}

	url := p.DocumentURL
	if url == "" {
		url = types.DocumentURL(p.ID)
	}
	c.logger.Info().Str("paper_id", p.ID).Str("url", url).Msg("downloading document")
	if err := c.client.Download(ctx, url, path, pdfAccept); err != nil {
		return "", fmt.Errorf("downloading %s: %w", p.ID, err)
	}
	return path, nil
}

// GetOrRenderPreview returns the preview for p, rendering the first page of
// docPath when no preview exists yet. The render runs at RenderScale times
// the native resolution and is then fitted into MaxWidth x MaxHeight; images
// already inside that envelope are kept at their rendered size.
func (c *Cache) GetOrRenderPreview(ctx context.Context, docPath string, p types.Paper) (string, error) {
	out := c.PreviewPath(p.ID)
	if fileExists(out) {
		c.logger.Debug().Str("paper_id", p.ID).Str("path", out).Msg("preview cached")
		return out, nil
	}
	if c.raster == nil {
		return "", ErrNoRasterizer
	}

	pages, err := c.pageCount(docPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", docPath, err)
	}
	if pages < 1 {
		return "", fmt.Errorf("document %s has no pages", docPath)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", filepath.Dir(out), err)
	}
	work, err := os.MkdirTemp(filepath.Dir(out), ".render-*")
	if err != nil {
		return "", fmt.Errorf("creating render directory: %w", err)
	}
	defer os.RemoveAll(work)

	raw := filepath.Join(work, "page.png")
	dpi := int(float64(baseDPI) * c.cfg.RenderScale)
	if err := c.raster.RasterizeFirstPage(ctx, docPath, dpi, raw); err != nil {
		return "", err
	}

	img, err := imaging.Open(raw)
	if err != nil {
		return "", fmt.Errorf("reading rendered page: %w", err)
	}
	img = c.fit(img)
	if c.cfg.Sharpen {
		img = imaging.Sharpen(img, sharpenSigma)
	}

	final := filepath.Join(work, "preview.png")
	if err := imaging.Save(img, final); err != nil {
		return "", fmt.Errorf("saving preview: %w", err)
	}
	if err := os.Rename(final, out); err != nil {
		return "", fmt.Errorf("moving preview into place: %w", err)
	}

	b := img.Bounds()
	c.logger.Info().
		Str("paper_id", p.ID).
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Str("rasterizer", c.raster.Name()).
		Msg("preview rendered")
	return out, nil
}

// EnsurePreview returns a preview path for p, fetching and rendering as
// needed. The document is deleted after a successful render; a failed
// deletion is only logged.
func (c *Cache) EnsurePreview(ctx context.Context, p types.Paper) (string, error) {
	if out := c.PreviewPath(p.ID); fileExists(out) {
		return out, nil
	}

	doc, err := c.GetOrFetchDocument(ctx, p)
	if err != nil {
		return "", err
	}
	out, err := c.GetOrRenderPreview(ctx, doc, p)
	if err != nil {
		return "", err
	}
	if err := os.Remove(doc); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn().Err(err).Str("path", doc).Msg("could not remove document after render")
	}
	return out, nil
}

func (c *Cache) fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= c.cfg.MaxWidth && b.Dy() <= c.cfg.MaxHeight {
		return img
	}
	return imaging.Fit(img, c.cfg.MaxWidth, c.cfg.MaxHeight, imaging.Lanczos)
}

// countPages opens path with the PDF reader and returns its page count. The
// reader panics on some malformed files, which is reported as an error.
func countPages(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return r.NumPage(), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
