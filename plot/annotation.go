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
	"fmt"
	"image/color"
	"math"
	"strconv"

	"github.com/freqbrowser/covplot/internal/genomics"
)

// variantAlpha keeps overlapping variant markers distinguishable.
const variantAlpha = 0xb3

// DrawAnnotation draws the exon track and the variant markers along the
// bottom of s.  hit is cleared first, then every exon and variant within
// the X range is painted onto it in a colour drawn from colors, and that
// colour is registered in hash with a description of the feature.  Features
// outside the X range are skipped and consume no colour.
func (p *Plotter) DrawAnnotation(s, hit *Surface, colors ColorSource, hash ColorHash, variants []genomics.Variant, margins Margins, axes Axes, exons []genomics.Exon) {
	hit.Clear()

	cfg := p.cfg
	sp := cfg.Spacing
	h := float64(s.Height())
	pw, _ := margins.plotSize(s)

	top, bottom := h-cfg.AnnotationSpace+sp/2, h-sp/2
	if bottom <= top || pw <= 0 {
		return
	}
	mid := (top + bottom) / 2

	span := axes.X.span()
	project := func(pos int) float64 {
		return margins.Left + pw*float64(pos-axes.X.Start)/span
	}

	prev := math.NaN()
	for _, exon := range exons {
		if exon.Start > exon.Stop || exon.Stop < axes.X.Start || exon.Start > axes.X.Stop {
			continue
		}
		x0 := project(max(exon.Start, axes.X.Start))
		x1 := project(min(exon.Stop, axes.X.Stop))
		if x1-x0 < 1 {
			x1 = x0 + 1
		}

		y0, y1, fill := top, bottom, color.Color(exonFill)
		if exon.IsUTR() {
			quarter := (bottom - top) / 4
			y0, y1, fill = top+quarter, bottom-quarter, utrFill
		}

		if cfg.Connectors && !math.IsNaN(prev) && x0 > prev {
			s.Line(prev, mid, x0, mid, 1, connectorLine)
		}
		s.FillRect(x0, y0, x1-x0, y1-y0, fill)
		s.StrokeRect(x0, y0, x1-x0, y1-y0, 1, black)
		prev = x1

		if c, ok := colors.Next(); ok {
			hit.FillRect(x0, y0, x1-x0, y1-y0, c)
			hash.Register(c, exon.String())
		}
	}

	palette := cfg.palette()
	half := (bottom - top) / 2
	for _, variant := range variants {
		if !axes.X.Contains(variant.Pos) {
			continue
		}
		x := project(variant.Pos)
		freq := math.Max(0, math.Min(variant.AlleleFreq, 1))
		ry := math.Max(cfg.MinVariantHeight, freq*half)

		fill := palette.Color(variant.MajorConsequence)
		s.FillEllipse(x, mid, cfg.VariantRadius, ry, color.NRGBA{fill.R, fill.G, fill.B, variantAlpha})

		if c, ok := colors.Next(); ok {
			hit.FillEllipse(x, mid, cfg.VariantRadius, ry, c)
			hash.Register(c, describeVariant(variant))
		}
	}
}

func describeVariant(variant genomics.Variant) string {
	consequence := NormalizeConsequence(variant.MajorConsequence)
	if consequence == "" {
		consequence = "unknown consequence"
	}
	position := strconv.Itoa(variant.Pos)
	if variant.Chrom != "" {
		position = variant.Chrom + "-" + position
	}
	description := fmt.Sprintf("%s\nPosition: %s\nRef/Alt: %s/%s",
		consequence, position, variant.Ref, variant.Alt)
	if variant.HGVS != "" {
		description += "\nHGVS: " + variant.HGVS
	}
	if variant.RSID != "" {
		description += "\nrsID: " + variant.RSID
	}
	return description + fmt.Sprintf("\nFrequency: %.4f", variant.AlleleFreq)
}
