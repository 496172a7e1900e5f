// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Font sizes in points at 72 DPI, so one point is one pixel.
const (
	sizeTitle    = 30
	sizeSubtitle = 22
	sizeBody     = 18
	sizeSmall    = 14
)

// faces holds every face the layouts draw with.
type faces struct {
	title    font.Face
	subtitle font.Face
	body     font.Face
	label    font.Face
	small    font.Face
}

// loadFaces builds faces from the first configured font that parses, or
// from the embedded Go fonts. A configured font is used for both weights.
func loadFaces(paths []string, logger zerolog.Logger) (faces, error) {
	for _, path := range paths {
		f, err := parseFontFile(path)
		if err != nil {
			logger.Warn().Err(err).Str("font", path).Msg("skipping font")
			continue
		}
		logger.Debug().Str("font", path).Msg("using configured font")
		return newFaces(f, f), nil
	}

	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return faces{}, fmt.Errorf("parsing embedded regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return faces{}, fmt.Errorf("parsing embedded bold font: %w", err)
	}
	return newFaces(regular, bold), nil
}

func parseFontFile(path string) (*truetype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

func newFaces(regular, bold *truetype.Font) faces {
	face := func(f *truetype.Font, size float64) font.Face {
		return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	}
	return faces{
		title:    face(bold, sizeTitle),
		subtitle: face(bold, sizeSubtitle),
		body:     face(regular, sizeBody),
		label:    face(bold, sizeBody),
		small:    face(regular, sizeSmall),
	}
}
