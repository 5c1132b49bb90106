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
	"strconv"

	"github.com/freqbrowser/covplot/internal/genomics"
)

const axisSteps = 10

// Range is an inclusive span of genomic positions.
type Range struct {
	Start int `json:"start"`
	Stop  int `json:"stop"`
}

// span returns the width of the range, never less than one base.
func (r Range) span() float64 {
	if r.Stop <= r.Start {
		return 1
	}
	return float64(r.Stop - r.Start)
}

// Contains reports whether pos lies within the range.
func (r Range) Contains(pos int) bool {
	return pos >= r.Start && pos <= r.Stop
}

// Axes describes the plotted window: the genomic X range and the Y tick
// values from bottom to top.
type Axes struct {
	X        Range     `json:"x"`
	Y        []float64 `json:"y"`
	Fraction bool      `json:"fraction"`
}

// ComputeAxes derives the axes for region.  Fractional metrics get ticks
// 0.0 to 1.0, others 0 to 100.  When includeUTR is false the start moves to
// the stop of the first UTR exon and the stop to the start of the last one.
// Exons of other types may precede or overlap them, as the backend lists
// exon, CDS and UTR features together.
func ComputeAxes(region genomics.Region, fraction, includeUTR bool) Axes {
	axes := Axes{
		X:        Range{Start: region.Start, Stop: region.Stop},
		Y:        make([]float64, axisSteps+1),
		Fraction: fraction,
	}
	for i := range axes.Y {
		if fraction {
			axes.Y[i] = float64(i) / axisSteps
		} else {
			axes.Y[i] = float64(i * axisSteps)
		}
	}

	if !includeUTR {
		x := axes.X
		for _, exon := range region.Exons {
			if exon.IsUTR() {
				x.Start = exon.Stop
				break
			}
		}
		for i := len(region.Exons) - 1; i >= 0; i-- {
			if exon := region.Exons[i]; exon.IsUTR() {
				x.Stop = exon.Start
				break
			}
		}
		if x.Start < x.Stop {
			axes.X = x
		}
	}
	return axes
}

func (axes Axes) yMin() float64 {
	if len(axes.Y) == 0 {
		return 0
	}
	return axes.Y[0]
}

func (axes Axes) yMax() float64 {
	if len(axes.Y) == 0 {
		return 1
	}
	return axes.Y[len(axes.Y)-1]
}

// ySpan returns the height of the Y scale, never zero.
func (axes Axes) ySpan() float64 {
	if span := axes.yMax() - axes.yMin(); span > 0 {
		return span
	}
	return 1
}

// major reports whether tick value v gets the stronger gridline: multiples of
// 50 on count scales and of 0.5 on fractional ones.
func (axes Axes) major(v float64) bool {
	unit := 50.0
	if axes.Fraction {
		unit = 0.5
	}
	q := v / unit
	return q == float64(int(q))
}

func (axes Axes) label(v float64) string {
	if axes.Fraction {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', 0, 64)
}
