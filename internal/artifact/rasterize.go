// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	binPdftoppm = "pdftoppm"
	binMutool   = "mutool"
)

// Rasterizer renders one page of a PDF to a PNG file.
type Rasterizer interface {
	// Name returns the tool name ("pdftoppm" or "mutool").
	Name() string

	// RasterizeFirstPage renders page 1 of docPath at dpi into outPath.
	RasterizeFirstPage(ctx context.Context, docPath string, dpi int, outPath string) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// tool implements Rasterizer for one command-line renderer. The tools differ
// only in binary name and argument layout.
type tool struct {
	bin  string
	args func(docPath string, dpi int, outPath string) []string
	exec executor
}

func (t *tool) Name() string { return t.bin }

func (t *tool) available() bool {
	_, err := t.exec.LookPath(t.bin)
	return err == nil
}

func (t *tool) RasterizeFirstPage(ctx context.Context, docPath string, dpi int, outPath string) error {
	out, err := t.exec.Run(ctx, t.bin, t.args(docPath, dpi, outPath)...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("running %s on %s: %w", t.bin, docPath, err)
		}
		return fmt.Errorf("running %s on %s: %w: %s", t.bin, docPath, err, msg)
	}
	return nil
}

// newPdftoppm renders with poppler. pdftoppm appends ".png" to the output
// root itself, so the suffix is stripped here.
func newPdftoppm(exec executor) *tool {
	return &tool{
		bin: binPdftoppm,
		args: func(docPath string, dpi int, outPath string) []string {
			return []string{
				"-f", "1", "-l", "1",
				"-r", strconv.Itoa(dpi),
				"-png", "-singlefile",
				docPath, strings.TrimSuffix(outPath, ".png"),
			}
		},
		exec: exec,
	}
}

func newMutool(exec executor) *tool {
	return &tool{
		bin: binMutool,
		args: func(docPath string, dpi int, outPath string) []string {
			return []string{"draw", "-q", "-F", "png", "-r", strconv.Itoa(dpi), "-o", outPath, docPath, "1"}
		},
		exec: exec,
	}
}

var defaultExec = &osExecutor{}

// DetectRasterizer tries pdftoppm first and falls back to mutool. It
// returns an error if neither is on PATH.
func DetectRasterizer() (Rasterizer, error) {
	return detectRasterizer(defaultExec)
}

func detectRasterizer(exec executor) (Rasterizer, error) {
	for _, t := range []*tool{newPdftoppm(exec), newMutool(exec)} {
		if t.available() {
			return t, nil
		}
	}
	return nil, fmt.Errorf("no PDF rasterizer available: neither %s nor %s found on PATH", binPdftoppm, binMutool)
}
