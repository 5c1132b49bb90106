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
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// UnknownConsequence is the colour of variants whose consequence is not in
// the palette.
var UnknownConsequence = color.RGBA{0x99, 0x99, 0x99, 0xff}

var (
	lossOfFunction = color.RGBA{0xd4, 0x3f, 0x3a, 0xff}
	missense       = color.RGBA{0xf0, 0xad, 0x4e, 0xff}
	synonymous     = color.RGBA{0x5c, 0xb8, 0x5c, 0xff}
	untranslated   = color.RGBA{0x5b, 0xc0, 0xde, 0xff}
)

// Palette maps a variant's major consequence to its marker colour.  Keys are
// stored case folded in display form (see NormalizeConsequence).
type Palette map[string]color.RGBA

// DefaultPalette returns the browser's consequence colours.
func DefaultPalette() Palette {
	palette := make(Palette)
	for c, terms := range map[color.RGBA][]string{
		lossOfFunction: {
			"transcript_ablation", "splice_acceptor_variant", "splice_donor_variant",
			"stop_gained", "frameshift_variant", "stop_lost", "start_lost",
		},
		missense: {
			"initiator_codon_variant", "inframe_insertion", "inframe_deletion",
			"missense_variant", "protein_altering_variant",
		},
		synonymous: {
			"splice_region_variant", "incomplete_terminal_codon_variant",
			"stop_retained_variant", "synonymous_variant", "coding_sequence_variant",
		},
		untranslated: {"5_prime_UTR_variant", "3_prime_UTR_variant"},
	} {
		for _, term := range terms {
			palette.Set(term, c)
		}
	}
	return palette
}

// Set assigns c to consequence.
func (p Palette) Set(consequence string, c color.RGBA) {
	p[paletteKey(consequence)] = c
}

// Color returns the colour of consequence, or UnknownConsequence.
func (p Palette) Color(consequence string) color.RGBA {
	if c, ok := p[paletteKey(consequence)]; ok {
		return c
	}
	return UnknownConsequence
}

func paletteKey(consequence string) string {
	return cases.Fold().String(NormalizeConsequence(consequence))
}

// NormalizeConsequence converts a VEP term such as 5_prime_UTR_variant into
// the browser's display form (5'UTR).  Display forms are returned unchanged.
func NormalizeConsequence(consequence string) string {
	s := strings.TrimSpace(consequence)
	s = strings.Replace(s, "_variant", "", -1)
	s = strings.Replace(s, "_prime_", "'", -1)
	s = strings.Replace(s, "_", " ", -1)
	return s
}

// ParseHexColor parses #rgb or #rrggbb.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %v", s, err)
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}, nil
}
