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

// Package plot renders coverage and annotation charts for a genomic region
// onto raster surfaces.
//
// A render pass draws a grid with labelled axes, a coverage line and area
// chart and an annotation track holding the exon structure and the variants
// of the region.  Alongside the visible image every exon and variant is
// painted in a unique flat colour onto a hit surface of the same size, and
// the colour is recorded in a ColorHash.  Identifying the feature under a
// pixel is then a single pixel read and map lookup, independent of how many
// features were drawn.
package plot

import (
	"io"

	"github.com/freqbrowser/covplot/internal/genomics"
)

// Plotter draws charts using a fixed Config.  It keeps no state between
// calls and is safe for concurrent use.
type Plotter struct {
	cfg Config
}

// New returns a Plotter using cfg.
func New(cfg Config) *Plotter {
	return &Plotter{cfg: cfg}
}

// Input is everything a render pass depends on.
type Input struct {
	Region     genomics.Region
	Coverage   []genomics.CoveragePoint
	Variants   []genomics.Variant
	Metric     Metric
	IncludeUTR bool
	Width      int
	Height     int
}

// Render is the result of one render pass.  Image, Hit and Colors are
// consistent with each other and are never modified after Render returns.
type Render struct {
	Generation uint64
	Axes       Axes
	Margins    Margins
	Image      *Surface
	Hit        *Surface
	Colors     ColorHash
	// Points are the coverage points drawn, in pixel space.
	Points []Point
}

// Render performs a complete render pass for in on new surfaces.
func (p *Plotter) Render(in Input) *Render {
	r := &Render{
		Axes:   ComputeAxes(in.Region, in.Metric.IsFraction(), in.IncludeUTR),
		Image:  NewSurface(in.Width, in.Height),
		Hit:    NewHitSurface(in.Width, in.Height),
		Colors: make(ColorHash),
	}

	face := newFace(p.cfg.FontSize)
	r.Margins = p.drawGrid(r.Image, face, r.Axes, in.Region)
	r.Points = p.PlotData(r.Image, in.Coverage, r.Axes, r.Margins, in.Metric)
	p.DrawAnnotation(r.Image, r.Hit, &Sequence{}, r.Colors, in.Variants, r.Margins, r.Axes, in.Region.Exons)

	return r
}

// HitTest returns the description of the feature drawn at (x, y).
func (r *Render) HitTest(x, y int) (string, bool) {
	return HitTest(r.Hit, r.Colors, x, y)
}

// WritePNG encodes the chart as PNG.
func (r *Render) WritePNG(w io.Writer) error {
	return r.Image.WritePNG(w)
}

// WriteHitPNG encodes the hit surface as PNG.
func (r *Render) WriteHitPNG(w io.Writer) error {
	return r.Hit.WritePNG(w)
}
