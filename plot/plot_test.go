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
	"bytes"
	"image/color"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/freqbrowser/covplot/internal/genomics"
)

const (
	testWidth  = 800
	testHeight = 300
)

var testRegion = genomics.Region{
	Chrom: "1",
	Start: 1000,
	Stop:  2000,
	Exons: []genomics.Exon{
		{Type: "UTR", Start: 1000, Stop: 1050},
		{Type: "exon", Start: 1050, Stop: 1980},
		{Type: "UTR", Start: 1980, Stop: 2000},
	},
}

func TestComputeAxes_IncludeUTR(t *testing.T) {
	axes := ComputeAxes(testRegion, false, true)
	if got, want := axes.X, (Range{1000, 2000}); got != want {
		t.Errorf("Wrong X range: got %v, want %v", got, want)
	}
}

// ADH6 as listed by the browser backend: exon, CDS and UTR features sorted
// by start, with the gene-level exon preceding the leading UTR.
var adh6 = genomics.Region{
	Chrom: "4",
	Start: 100123795,
	Stop:  100140694,
	Exons: []genomics.Exon{
		{Type: "exon", Start: 100123796, Stop: 100125400},
		{Type: "UTR", Start: 100123796, Stop: 100125378},
		{Type: "CDS", Start: 100125379, Stop: 100125400},
		{Type: "exon", Start: 100126082, Stop: 100126220},
		{Type: "CDS", Start: 100126082, Stop: 100126220},
		{Type: "exon", Start: 100140292, Stop: 100140403},
		{Type: "CDS", Start: 100140292, Stop: 100140309},
		{Type: "UTR", Start: 100140310, Stop: 100140403},
	},
}

func TestComputeAxes_ExcludeUTR(t *testing.T) {
	testCases := []struct {
		name   string
		region genomics.Region
		exons  []genomics.Exon
		want   Range
	}{
		{"both ends", testRegion, testRegion.Exons, Range{1050, 1980}},
		{"leading only", testRegion, []genomics.Exon{{Type: "UTR", Start: 1000, Stop: 1100}, {Type: "exon", Start: 1100, Stop: 2000}}, Range{1100, 2000}},
		{"trailing only", testRegion, []genomics.Exon{{Type: "exon", Start: 1000, Stop: 1900}, {Type: "UTR", Start: 1900, Stop: 2000}}, Range{1000, 1900}},
		{"outermost UTRs only", testRegion, []genomics.Exon{{Type: "UTR", Start: 1000, Stop: 1010}, {Type: "exon", Start: 1010, Stop: 1500}, {Type: "UTR", Start: 1500, Stop: 1510}, {Type: "exon", Start: 1510, Stop: 1990}, {Type: "UTR", Start: 1990, Stop: 2000}}, Range{1010, 1990}},
		{"interleaved features", adh6, adh6.Exons, Range{100125378, 100140310}},
		{"no exons", testRegion, nil, Range{1000, 2000}},
		{"single UTR would invert", testRegion, []genomics.Exon{{Type: "UTR", Start: 1000, Stop: 2000}}, Range{1000, 2000}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			region := tc.region
			region.Exons = tc.exons
			if got := ComputeAxes(region, false, false).X; got != tc.want {
				t.Errorf("Wrong X range: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestComputeAxes_Ticks(t *testing.T) {
	fraction := []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	count := []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	if got := ComputeAxes(testRegion, true, true).Y; !reflect.DeepEqual(got, fraction) {
		t.Errorf("Wrong fractional ticks: got %v, want %v", got, fraction)
	}
	if got := ComputeAxes(testRegion, false, true).Y; !reflect.DeepEqual(got, count) {
		t.Errorf("Wrong count ticks: got %v, want %v", got, count)
	}
}

func TestDrawGrid_Idempotent(t *testing.T) {
	p := New(DefaultConfig())
	s := NewSurface(testWidth, testHeight)
	axes := ComputeAxes(testRegion, false, true)

	first := p.DrawGrid(s, axes, testRegion)
	before := append([]byte(nil), s.Image().Pix...)
	second := p.DrawGrid(s, axes, testRegion)

	if first != second {
		t.Errorf("Margins changed between draws: %v then %v", first, second)
	}
	if !bytes.Equal(before, s.Image().Pix) {
		t.Error("Second DrawGrid produced a different image")
	}
}

func TestDrawGrid_Margins(t *testing.T) {
	cfg := DefaultConfig()
	m := New(cfg).DrawGrid(NewSurface(testWidth, testHeight), ComputeAxes(testRegion, false, true), testRegion)

	if got, want := m.Top, cfg.FontSize+cfg.Spacing; got != want {
		t.Errorf("Wrong top margin: got %v, want %v", got, want)
	}
	if got, want := m.Bottom, cfg.FontSize+cfg.Spacing+cfg.AnnotationSpace; got != want {
		t.Errorf("Wrong bottom margin: got %v, want %v", got, want)
	}
	if m.Left <= cfg.Spacing {
		t.Errorf("Left margin %v leaves no room for labels", m.Left)
	}
}

func TestRender_MidpointPixel(t *testing.T) {
	r := New(DefaultConfig()).Render(Input{
		Region:   genomics.Region{Start: 1000, Stop: 2000},
		Coverage: []genomics.CoveragePoint{{Pos: 1500, Mean: 45}},
		Metric:   Aggregate(Mean),
		Width:    testWidth,
		Height:   testHeight,
	})
	if len(r.Points) != 1 {
		t.Fatalf("Wrong number of points: got %d, want 1", len(r.Points))
	}

	m := r.Margins
	plotWidth := testWidth - m.Left - m.Right
	plotHeight := testHeight - m.Top - m.Bottom
	if got, want := r.Points[0].X, m.Left+plotWidth*0.5; math.Abs(got-want) > 1e-9 {
		t.Errorf("Wrong X: got %v, want %v", got, want)
	}
	if got, want := r.Points[0].Y, m.Top+plotHeight*(1-45.0/100); math.Abs(got-want) > 1e-9 {
		t.Errorf("Wrong Y: got %v, want %v", got, want)
	}
}

func TestProject(t *testing.T) {
	s := NewSurface(testWidth, testHeight)
	axes := ComputeAxes(genomics.Region{Start: 1000, Stop: 2000}, true, true)
	m := Margins{Left: 40, Top: 20, Bottom: 70}
	points := []genomics.CoveragePoint{
		{Pos: 900, Over: map[int]float64{20: 0.5}},
		{Pos: 1000, Over: map[int]float64{20: 1.5}},
		{Pos: 1200},
		{Pos: 2000, Over: map[int]float64{20: -1}},
		{Pos: 2100, Over: map[int]float64{20: 0.5}},
	}

	got := Project(s, points, axes, m, OverThreshold(20))
	want := []Point{{40, 20}, {testWidth, testHeight - 70}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Wrong projection: got %v, want %v", got, want)
	}
}

func TestPlotData_Empty(t *testing.T) {
	s := NewSurface(testWidth, testHeight)
	blank := append([]byte(nil), s.Image().Pix...)

	if got := New(DefaultConfig()).PlotData(s, nil, ComputeAxes(testRegion, false, true), Margins{}, Aggregate(Mean)); got != nil {
		t.Errorf("Drew points for empty input: %v", got)
	}
	if !bytes.Equal(blank, s.Image().Pix) {
		t.Error("Surface modified for empty input")
	}
}

func TestPlotData_DegenerateSpan(t *testing.T) {
	region := genomics.Region{Start: 500, Stop: 500}
	r := New(DefaultConfig()).Render(Input{
		Region:   region,
		Coverage: []genomics.CoveragePoint{{Pos: 500, Mean: 10}},
		Width:    testWidth,
		Height:   testHeight,
	})
	for _, p := range r.Points {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			t.Errorf("Non-finite point %v", p)
		}
	}
}

func TestDrawAnnotation_VariantOutsideRange(t *testing.T) {
	p := New(DefaultConfig())
	s, hit := NewSurface(testWidth, testHeight), NewHitSurface(testWidth, testHeight)
	hash := make(ColorHash)
	axes := ComputeAxes(genomics.Region{Start: 1000, Stop: 2000}, false, true)
	m := p.DrawGrid(s, axes, genomics.Region{})

	p.DrawAnnotation(s, hit, &Sequence{}, hash, []genomics.Variant{{Pos: 2500, AlleleFreq: 0.5}}, m, axes, nil)

	if len(hash) != 0 {
		t.Errorf("Registered colours for a variant outside the range: %v", hash)
	}
	for i := 3; i < len(hit.Image().Pix); i += 4 {
		if hit.Image().Pix[i] != 0 {
			t.Fatal("Hit surface painted for a variant outside the range")
		}
	}
}

func TestRender_HitTest(t *testing.T) {
	cfg := DefaultConfig()
	variant := genomics.Variant{
		Chrom: "1", Pos: 1500, Ref: "A", Alt: "G", HGVS: "p.Lys12Glu",
		MajorConsequence: "missense_variant", AlleleFreq: 0.25,
	}
	r := New(cfg).Render(Input{
		Region:     testRegion,
		Variants:   []genomics.Variant{variant},
		IncludeUTR: true,
		Width:      testWidth,
		Height:     testHeight,
	})
	if got, want := len(r.Colors), len(testRegion.Exons)+1; got != want {
		t.Fatalf("Wrong number of registered features: got %d, want %d", got, want)
	}

	pw := testWidth - r.Margins.Left - r.Margins.Right
	x := int(r.Margins.Left + pw*0.5)
	y := int(testHeight - cfg.AnnotationSpace/2)

	got, ok := r.HitTest(x, y)
	if !ok {
		t.Fatalf("No feature at (%d, %d)", x, y)
	}
	for _, want := range []string{"missense", "Position: 1-1500", "Ref/Alt: A/G", "HGVS: p.Lys12Glu", "Frequency: 0.2500"} {
		if !strings.Contains(got, want) {
			t.Errorf("Description %q does not contain %q", got, want)
		}
	}

	// The exon block beside the variant.
	if got, ok := r.HitTest(x+20, y); !ok || got != "exon: 1050-1980" {
		t.Errorf("Wrong exon hit: got %q (%v), want %q", got, ok, "exon: 1050-1980")
	}
}

func TestDrawAnnotation_ReusedSurfaces(t *testing.T) {
	cfg := DefaultConfig()
	p := New(cfg)
	s, hit := NewSurface(testWidth, testHeight), NewHitSurface(testWidth, testHeight)
	region := genomics.Region{Start: 1000, Stop: 2000}
	axes := ComputeAxes(region, false, true)

	pass := func(pos int) ColorHash {
		hash := make(ColorHash)
		m := p.DrawGrid(s, axes, region)
		p.DrawAnnotation(s, hit, &Sequence{}, hash, []genomics.Variant{{Pos: pos, AlleleFreq: 0.5}}, m, axes, nil)
		return hash
	}
	m := p.DrawGrid(s, axes, region)
	pw := testWidth - m.Left - m.Right
	y := int(testHeight - cfg.AnnotationSpace/2)
	xAt := func(pos int) int { return int(m.Left + pw*float64(pos-1000)/1000) }

	pass(1100)
	hash := pass(1900)

	if description, ok := HitTest(hit, hash, xAt(1100), y); ok {
		t.Errorf("Pixel of the previous pass matched %q", description)
	}
	if _, ok := HitTest(hit, hash, xAt(1900), y); !ok {
		t.Error("No feature under the variant of the current pass")
	}
}

func TestDescribeVariant_Position(t *testing.T) {
	testCases := []struct {
		variant genomics.Variant
		want    string
	}{
		{genomics.Variant{Chrom: "4", Pos: 1100}, "Position: 4-1100\n"},
		{genomics.Variant{Pos: 1100}, "Position: 1100\n"},
	}
	for _, tc := range testCases {
		if got := describeVariant(tc.variant); !strings.Contains(got, tc.want) {
			t.Errorf("describeVariant(%+v): got %q, want it to contain %q", tc.variant, got, tc.want)
		}
	}
}

func TestRender_HitTestMiss(t *testing.T) {
	r := New(DefaultConfig()).Render(Input{Region: testRegion, Width: testWidth, Height: testHeight})
	if description, ok := r.HitTest(1, 1); ok {
		t.Errorf("Unpainted pixel matched %q", description)
	}
}

func TestKeyColor_Unique(t *testing.T) {
	seen := make(map[string]int)
	for n := 1; n <= 1000; n++ {
		key := ColorKey(KeyColor(n))
		if prev, ok := seen[key]; ok {
			t.Fatalf("Colour %s generated for both %d and %d", key, prev, n)
		}
		seen[key] = n
	}
}

func TestKeyColor_Digits(t *testing.T) {
	testCases := []struct {
		n    int
		want string
	}{
		{1, "rgb(1,0,0)"},
		{255, "rgb(0,1,0)"},
		{255*255 + 2*255 + 3, "rgb(3,2,1)"},
	}
	for _, tc := range testCases {
		if got := ColorKey(KeyColor(tc.n)); got != tc.want {
			t.Errorf("KeyColor(%d): got %s, want %s", tc.n, got, tc.want)
		}
	}
}

func TestSequence_StartsAtOne(t *testing.T) {
	var s Sequence
	c, ok := s.Next()
	if !ok {
		t.Fatal("Fresh sequence is exhausted")
	}
	if got, want := ColorKey(c), "rgb(1,0,0)"; got != want {
		t.Errorf("Wrong first colour: got %s, want %s", got, want)
	}
}

func TestSequence_StopsAtLimit(t *testing.T) {
	s := Sequence{n: MaxKeyColors - 1}
	c, ok := s.Next()
	if !ok {
		t.Fatal("Sequence exhausted before its last colour")
	}
	if got, want := ColorKey(c), "rgb(254,254,254)"; got != want {
		t.Errorf("Wrong last colour: got %s, want %s", got, want)
	}
	for i := 0; i < 2; i++ {
		if c, ok := s.Next(); ok {
			t.Errorf("Sequence continued past its limit with %s", ColorKey(c))
		}
	}
}

type exhaustedColors struct{}

func (exhaustedColors) Next() (color.RGBA, bool) { return color.RGBA{}, false }

func TestDrawAnnotation_ExhaustedColors(t *testing.T) {
	p := New(DefaultConfig())
	s, hit := NewSurface(testWidth, testHeight), NewHitSurface(testWidth, testHeight)
	hash := make(ColorHash)
	axes := ComputeAxes(testRegion, false, true)
	m := p.DrawGrid(s, axes, testRegion)

	p.DrawAnnotation(s, hit, exhaustedColors{}, hash, []genomics.Variant{{Pos: 1500, AlleleFreq: 0.5}}, m, axes, testRegion.Exons)

	if len(hash) != 0 {
		t.Errorf("Registered features without key colours: %v", hash)
	}
	for i := 3; i < len(hit.Image().Pix); i += 4 {
		if hit.Image().Pix[i] != 0 {
			t.Fatal("Hit surface painted without key colours")
		}
	}
}

func TestParseMetric(t *testing.T) {
	testCases := []struct {
		input    string
		want     Metric
		fraction bool
	}{
		{"", Aggregate(Mean), false},
		{"mean", Aggregate(Mean), false},
		{"Median", Aggregate(Median), false},
		{"20", OverThreshold(20), true},
		{"over_50", OverThreshold(50), true},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseMetric(tc.input)
			if err != nil {
				t.Fatalf("ParseMetric failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Wrong metric: got %v, want %v", got, tc.want)
			}
			if got.IsFraction() != tc.fraction {
				t.Errorf("Wrong fraction flag: got %v, want %v", got.IsFraction(), tc.fraction)
			}
		})
	}

	for _, input := range []string{"max", "-5", "over_x"} {
		if _, err := ParseMetric(input); err == nil {
			t.Errorf("ParseMetric(%q) succeeded, want error", input)
		}
	}
}

func TestMetric_Value(t *testing.T) {
	point := genomics.CoveragePoint{Pos: 1, Mean: 3, Median: 2, Over: map[int]float64{10: 0.7}}
	testCases := []struct {
		metric Metric
		want   float64
		ok     bool
	}{
		{Aggregate(Mean), 3, true},
		{Aggregate(Median), 2, true},
		{Aggregate("max"), 0, false},
		{OverThreshold(10), 0.7, true},
		{OverThreshold(20), 0, false},
	}
	for _, tc := range testCases {
		got, ok := tc.metric.Value(point)
		if got != tc.want || ok != tc.ok {
			t.Errorf("%v: got (%v, %v), want (%v, %v)", tc.metric, got, ok, tc.want, tc.ok)
		}
	}
}

func TestPalette_Color(t *testing.T) {
	p := DefaultPalette()
	if got, want := p.Color("missense_variant"), p.Color("missense"); got != want {
		t.Errorf("VEP and display forms differ: %v != %v", got, want)
	}
	if got, want := p.Color("5_prime_UTR_variant"), p.Color("5'UTR"); got != want {
		t.Errorf("VEP and display forms differ: %v != %v", got, want)
	}
	if got, want := p.Color("Missense"), p.Color("missense"); got != want {
		t.Errorf("Consequence lookup is case sensitive: %v != %v", got, want)
	}
	if got := p.Color("intron_variant"); got != UnknownConsequence {
		t.Errorf("Unknown consequence coloured %v", got)
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#0a0B0c")
	if err != nil {
		t.Fatalf("ParseHexColor failed: %v", err)
	}
	if c.R != 0x0a || c.G != 0x0b || c.B != 0x0c || c.A != 0xff {
		t.Errorf("Wrong colour: %v", c)
	}
	if c, _ := ParseHexColor("#fff"); c.R != 0xff || c.B != 0xff {
		t.Errorf("Wrong short colour: %v", c)
	}
	for _, s := range []string{"", "#12", "#zzzzzz"} {
		if _, err := ParseHexColor(s); err == nil {
			t.Errorf("ParseHexColor(%q) succeeded, want error", s)
		}
	}
}

func TestView_StaleGeneration(t *testing.T) {
	view := NewView(New(DefaultConfig()))
	if _, _, err := view.HitTest(1, 0, 0); err != ErrStaleRender {
		t.Errorf("Hit test before first render: got %v, want %v", err, ErrStaleRender)
	}

	in := Input{Region: testRegion, Width: testWidth, Height: testHeight}
	first := view.Update(in)
	second := view.Update(in)

	if _, _, err := view.HitTest(first.Generation, 0, 0); err != ErrStaleRender {
		t.Errorf("Hit test against replaced render: got %v, want %v", err, ErrStaleRender)
	}
	if _, _, err := view.HitTest(second.Generation, 0, 0); err != nil {
		t.Errorf("Hit test against current render failed: %v", err)
	}
}
