// Copyright 2019 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plot

import (
	"image/color"
	"log"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Config holds the layout settings of a plot.  It is passed by value into
// every drawing operation; nothing about a render is kept between calls.
type Config struct {
	// FontSize is the label font size in pixels.
	FontSize float64
	// Spacing is the padding between labels, ticks and the plot area.
	Spacing float64
	// AnnotationSpace is the height of the exon and variant track below the
	// coverage chart.
	AnnotationSpace float64
	// VariantRadius is the horizontal radius of variant markers.
	VariantRadius float64
	// MinVariantHeight is the smallest vertical radius of a variant marker,
	// keeping rare variants visible.
	MinVariantHeight float64
	// Connectors draws a line between adjacent exon blocks.
	Connectors bool
	// Palette colours variants by consequence.  A nil palette uses
	// DefaultPalette.
	Palette Palette
}

// DefaultConfig returns the settings used by the browser.
func DefaultConfig() Config {
	return Config{
		FontSize:         16,
		Spacing:          6,
		AnnotationSpace:  50,
		VariantRadius:    3,
		MinVariantHeight: 2,
		Palette:          DefaultPalette(),
	}
}

func (cfg Config) palette() Palette {
	if cfg.Palette == nil {
		return DefaultPalette()
	}
	return cfg.Palette
}

var (
	black         = color.RGBA{0x00, 0x00, 0x00, 0xff}
	plotBackdrop  = color.RGBA{0xfa, 0xfa, 0xfa, 0xff}
	majorGridline = color.RGBA{0x50, 0x50, 0x50, 0xff}
	evenGridline  = color.RGBA{0xb0, 0xb0, 0xb0, 0xff}
	oddGridline   = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	coverageLine  = color.RGBA{0x00, 0x66, 0x99, 0xff}
	coverageArea  = color.NRGBA{0x66, 0x99, 0xcc, 0x4c}
	exonFill      = color.RGBA{0x44, 0x77, 0xaa, 0xff}
	utrFill       = color.RGBA{0x99, 0xbb, 0xdd, 0xff}
	connectorLine = color.RGBA{0x80, 0x80, 0x80, 0xff}
)

var (
	regularFont     *opentype.Font
	regularFontOnce sync.Once
)

// newFace returns a label face of the given pixel size.  Faces are not safe
// for concurrent use, so each drawing pass builds its own.
func newFace(size float64) font.Face {
	regularFontOnce.Do(func() {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			log.Printf("Failed to parse label font, using fixed face: %v", err)
			return
		}
		regularFont = f
	})
	if regularFont == nil || size <= 0 {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(regularFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("Failed to create %vpx label face, using fixed face: %v", size, err)
		return basicfont.Face7x13
	}
	return face
}
