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
)

const colorBase = 255

// MaxKeyColors is the number of distinct colours a Sequence can produce.
// Features beyond it are drawn but cannot be hit.
const MaxKeyColors = colorBase*colorBase*colorBase - 1

// ColorSource yields the colours used to key features on a hit surface.
type ColorSource interface {
	// Next returns a colour not returned before by this source, or false
	// once the source is exhausted.
	Next() (color.RGBA, bool)
}

// Sequence is a ColorSource counting upwards from 1 to MaxKeyColors.  The
// zero value is ready to use; every render pass should start with a fresh
// Sequence.
type Sequence struct {
	n int
}

// Next returns the colour for the next integer in the sequence.
func (s *Sequence) Next() (color.RGBA, bool) {
	if s.n >= MaxKeyColors {
		return color.RGBA{}, false
	}
	s.n++
	return KeyColor(s.n), true
}

// KeyColor maps n to a colour by decomposing it into base-255 digits.  The
// mapping is injective for 0 <= n <= MaxKeyColors.
func KeyColor(n int) color.RGBA {
	return color.RGBA{
		R: uint8(n % colorBase),
		G: uint8(n / colorBase % colorBase),
		B: uint8(n / (colorBase * colorBase) % colorBase),
		A: 0xff,
	}
}

// ColorKey formats c as rgb(r,g,b).
func ColorKey(c color.RGBA) string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// ColorHash maps hit surface colour keys to feature descriptions.
type ColorHash map[string]string

// Register records description for features painted in c.
func (h ColorHash) Register(c color.RGBA, description string) {
	h[ColorKey(c)] = description
}

// Lookup returns the description registered for key.
func (h ColorHash) Lookup(key string) (string, bool) {
	description, ok := h[key]
	return description, ok
}

// HitTest reads the pixel at (x, y) of hit and looks its colour up in hash.
// Transparent pixels were never painted and always miss.
func HitTest(hit *Surface, hash ColorHash, x, y int) (string, bool) {
	c := hit.At(x, y)
	if c.A == 0 {
		return "", false
	}
	return hash.Lookup(ColorKey(c))
}
