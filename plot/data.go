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

	"github.com/freqbrowser/covplot/internal/genomics"
)

// PlotData draws the coverage line and the translucent area beneath it.
// Points must be sorted by position; points outside the X range or without
// a value for metric are skipped.  It returns the drawn points in pixel
// space.
func (p *Plotter) PlotData(s *Surface, points []genomics.CoveragePoint, axes Axes, margins Margins, metric Metric) []Point {
	projected := Project(s, points, axes, margins, metric)
	if len(projected) == 0 {
		return nil
	}

	bottom := float64(s.Height()) - margins.Bottom
	if len(projected) == 1 {
		pt := projected[0]
		s.FillRect(pt.X-0.5, pt.Y, 1, bottom-pt.Y, coverageArea)
		s.FillRect(pt.X-1, pt.Y-1, 2, 2, coverageLine)
		return projected
	}

	area := make([]Point, 0, len(projected)+2)
	area = append(area, Point{projected[0].X, bottom})
	area = append(area, projected...)
	area = append(area, Point{projected[len(projected)-1].X, bottom})
	s.FillPolygon(area, coverageArea)
	s.Polyline(projected, 1, coverageLine)

	return projected
}

// Project maps coverage points onto the plot area of s without drawing
// them.  Values are clamped to the Y scale.
func Project(s *Surface, points []genomics.CoveragePoint, axes Axes, margins Margins, metric Metric) []Point {
	pw, ph := margins.plotSize(s)
	yMin, yMax, ySpan := axes.yMin(), axes.yMax(), axes.ySpan()
	span := axes.X.span()

	var projected []Point
	for _, point := range points {
		if !axes.X.Contains(point.Pos) {
			continue
		}
		v, ok := metric.Value(point)
		if !ok || math.IsNaN(v) {
			continue
		}
		v = math.Max(yMin, math.Min(v, yMax))
		projected = append(projected, Point{
			X: margins.Left + pw*float64(point.Pos-axes.X.Start)/span,
			Y: margins.Top + ph*(1-(v-yMin)/ySpan),
		})
	}
	return projected
}
