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
	"math"
	"strconv"

	"github.com/freqbrowser/covplot/internal/genomics"
	"golang.org/x/image/font"
)

// Margins are the pixel insets between the surface edges and the plot area.
// The bottom margin includes the position labels and the annotation track.
type Margins struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// plotSize returns the width and height of the plot area of s.
func (m Margins) plotSize(s *Surface) (float64, float64) {
	return float64(s.Width()) - m.Left - m.Right, float64(s.Height()) - m.Top - m.Bottom
}

// DrawGrid clears s and draws the header, the labelled coverage axis, the
// plot backdrop with its gridlines and the position labels.  It returns the
// margins to use for PlotData and DrawAnnotation on the same surface.
func (p *Plotter) DrawGrid(s *Surface, axes Axes, region genomics.Region) Margins {
	return p.drawGrid(s, newFace(p.cfg.FontSize), axes, region)
}

func (p *Plotter) drawGrid(s *Surface, face font.Face, axes Axes, region genomics.Region) Margins {
	cfg := p.cfg
	w, h := float64(s.Width()), float64(s.Height())
	fs, sp := cfg.FontSize, cfg.Spacing

	s.Clear()

	labels := make([]string, len(axes.Y))
	var l float64
	for i, v := range axes.Y {
		labels[i] = axes.label(v)
		l = math.Max(l, measureText(face, labels[i]))
	}

	margins := Margins{
		Left:   l + sp,
		Top:    fs + sp,
		Bottom: fs + sp + cfg.AnnotationSpace,
	}
	pw, ph := margins.plotSize(s)

	var step float64
	if len(axes.Y) > 1 {
		step = ph / float64(len(axes.Y)-1)
	}
	row := func(i int) float64 {
		return margins.Top + ph - step*float64(i)
	}
	baseline := h - cfg.AnnotationSpace - sp/2
	offset := centerOffset(face)

	if region.Chrom != "" {
		text := "Chrom " + region.Chrom
		s.Text(face, w/2-measureText(face, text)/2, fs+sp/2, text, black)
	}

	for i, label := range labels {
		s.Text(face, l-measureText(face, label), row(i)+offset, label, black)
	}

	start, stop := strconv.Itoa(axes.X.Start), strconv.Itoa(axes.X.Stop)
	s.Text(face, l+sp/2, baseline, start, black)
	s.Text(face, w-measureText(face, stop)-sp/2, baseline, stop, black)

	s.FillRect(margins.Left, margins.Top, pw, ph, plotBackdrop)
	s.Line(margins.Left, margins.Top, margins.Left, h-margins.Bottom+sp/2, 1, black)

	for i, v := range axes.Y {
		y := row(i)
		s.Line(l+sp*0.5, y, l+sp*1.5, y, 1, black)

		width, c := 0.5, oddGridline
		switch {
		case i == 0:
			width, c = 1, black
		case axes.major(v):
			c = majorGridline
		case i%2 == 0:
			c = evenGridline
		}
		s.Line(l+sp*1.5, y, w-margins.Right, y, width, c)
	}

	n := verticalSplits(pw, measureText(face, stop))
	span := axes.X.span()
	for i := 1; i <= n; i++ {
		x := margins.Left + float64(i)*pw/float64(n)
		s.Line(x, margins.Top, x, margins.Top+ph+sp*0.5, 0.5, evenGridline)

		if i != n {
			label := strconv.Itoa(axes.X.Start + int(math.Floor(float64(i)*span/float64(n))))
			s.Text(face, x-measureText(face, label)/2, baseline, label, black)
		}
	}

	return margins
}

// verticalSplits returns how many vertical gridlines fit without their
// labels overlapping.
func verticalSplits(plotWidth, labelWidth float64) int {
	if labelWidth <= 0 {
		return 1
	}
	n := int(math.Floor(plotWidth/labelWidth/2)) - 1
	if n < 1 {
		return 1
	}
	return n
}

// centerOffset returns the baseline offset that vertically centres digits
// on a line.
func centerOffset(face font.Face) float64 {
	m := face.Metrics()
	height := m.CapHeight
	if height <= 0 {
		height = m.Ascent
	}
	return float64(height) / 64 / 2
}
