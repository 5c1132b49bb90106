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
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const ellipseSegments = 64

// Point is a position in pixel space.
type Point struct {
	X, Y float64
}

// Surface is a raster drawing target.  A surface created by NewSurface draws
// anti-aliased shapes blended over its contents.  A hit surface, created by
// NewHitSurface, writes every covered pixel with exactly the requested
// colour so that pixels can be mapped back to the shape that painted them.
type Surface struct {
	img  *image.RGBA
	flat bool
	z    *vector.Rasterizer
}

// NewSurface returns a transparent surface of the given size.
func NewSurface(width, height int) *Surface {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// NewHitSurface returns a transparent, non anti-aliased surface.
func NewHitSurface(width, height int) *Surface {
	s := NewSurface(width, height)
	s.flat = true
	return s
}

// Image returns the surface's pixels.
func (s *Surface) Image() *image.RGBA { return s.img }

// Width returns the width of the surface in pixels.
func (s *Surface) Width() int { return s.img.Bounds().Dx() }

// Height returns the height of the surface in pixels.
func (s *Surface) Height() int { return s.img.Bounds().Dy() }

// At returns the colour of the pixel at (x, y).  Pixels outside the surface
// are transparent.
func (s *Surface) At(x, y int) color.RGBA {
	return s.img.RGBAAt(x, y)
}

// Clear resets every pixel to transparent.
func (s *Surface) Clear() {
	draw.Draw(s.img, s.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// WritePNG encodes the surface as PNG.
func (s *Surface) WritePNG(w io.Writer) error {
	return png.Encode(w, s.img)
}

// FillRect fills the rectangle with top-left corner (x, y).
func (s *Surface) FillRect(x, y, w, h float64, c color.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	s.fill([]Point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}, c)
}

// StrokeRect outlines the rectangle with lines of the given width.
func (s *Surface) StrokeRect(x, y, w, h, width float64, c color.Color) {
	s.Line(x, y, x+w, y, width, c)
	s.Line(x+w, y, x+w, y+h, width, c)
	s.Line(x+w, y+h, x, y+h, width, c)
	s.Line(x, y+h, x, y, width, c)
}

// Line draws a segment of the given width.
func (s *Surface) Line(x0, y0, x1, y1, width float64, c color.Color) {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 || width <= 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	s.fill([]Point{
		{x0 + nx, y0 + ny},
		{x1 + nx, y1 + ny},
		{x1 - nx, y1 - ny},
		{x0 - nx, y0 - ny},
	}, c)
}

// Polyline draws connected segments through points.
func (s *Surface) Polyline(points []Point, width float64, c color.Color) {
	for i := 1; i < len(points); i++ {
		s.Line(points[i-1].X, points[i-1].Y, points[i].X, points[i].Y, width, c)
	}
}

// FillPolygon fills the polygon through points.  Hit surfaces only support
// convex polygons.
func (s *Surface) FillPolygon(points []Point, c color.Color) {
	s.fill(points, c)
}

// FillEllipse fills the axis-aligned ellipse centred on (cx, cy).
func (s *Surface) FillEllipse(cx, cy, rx, ry float64, c color.Color) {
	if rx <= 0 || ry <= 0 {
		return
	}
	points := make([]Point, ellipseSegments)
	for i := range points {
		a := 2 * math.Pi * float64(i) / ellipseSegments
		points[i] = Point{cx + rx*math.Cos(a), cy + ry*math.Sin(a)}
	}
	s.fill(points, c)
}

// Text draws text with its left end of the baseline at (x, y).
func (s *Surface) Text(face font.Face, x, y float64, text string, c color.Color) {
	d := font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
	}
	d.DrawString(text)
}

// measureText returns the advance width of text in pixels.
func measureText(face font.Face, text string) float64 {
	return float64(font.MeasureString(face, text)) / 64
}

func (s *Surface) fill(points []Point, c color.Color) {
	if len(points) < 3 || s.img.Bounds().Empty() {
		return
	}
	if s.flat {
		s.fillFlat(points, color.RGBAModel.Convert(c).(color.RGBA))
		return
	}

	w, h := s.Width(), s.Height()
	if s.z == nil {
		s.z = vector.NewRasterizer(w, h)
	} else {
		s.z.Reset(w, h)
	}
	s.z.DrawOp = draw.Over

	clamp := func(p Point) (float32, float32) {
		return float32(math.Max(0, math.Min(p.X, float64(w)))),
			float32(math.Max(0, math.Min(p.Y, float64(h))))
	}
	s.z.MoveTo(clamp(points[0]))
	for _, p := range points[1:] {
		s.z.LineTo(clamp(p))
	}
	s.z.ClosePath()
	s.z.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{})
}

// fillFlat sets every pixel whose centre lies inside the convex polygon.
func (s *Surface) fillFlat(points []Point, c color.RGBA) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	r := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY))).Intersect(s.img.Bounds())

	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if insideConvex(points, float64(x)+0.5, float64(y)+0.5) {
				s.img.SetRGBA(x, y, c)
			}
		}
	}
}

func insideConvex(points []Point, x, y float64) bool {
	var pos, neg bool
	for i, a := range points {
		b := points[(i+1)%len(points)]
		cross := (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
		switch {
		case cross > 0:
			pos = true
		case cross < 0:
			neg = true
		}
		if pos && neg {
			return false
		}
	}
	return true
}
