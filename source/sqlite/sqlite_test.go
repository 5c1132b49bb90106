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

package sqlite

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/freqbrowser/covplot/internal/genomics"
	"github.com/freqbrowser/covplot/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Source {
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

func loadTrack(t *testing.T) *source.Track {
	f, err := os.Open("../testdata/demo/1-1000-2000.json")
	require.NoError(t, err)
	defer f.Close()
	track, err := source.Decode(f)
	require.NoError(t, err)
	return track
}

func TestInsertAndTrack(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	want := loadTrack(t)
	require.NoError(t, s.Insert(ctx, "demo", "1-1000-2000", want))

	got, err := s.Track(ctx, "demo", "1-1000-2000")
	require.NoError(t, err)

	assert.Equal(t, want.Region.Chrom, got.Region.Chrom)
	assert.Equal(t, want.Region.Start, got.Region.Start)
	assert.Equal(t, want.Region.Stop, got.Region.Stop)
	assert.ElementsMatch(t, want.Region.Exons, got.Region.Exons)
	assert.Equal(t, want.Coverage, got.Coverage)
	assert.Len(t, got.Variants, len(want.Variants))
}

func TestInsert_Replaces(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	track := &source.Track{
		Region:   genomics.Region{Chrom: "2", Start: 10, Stop: 20, Exons: []genomics.Exon{{Type: "CDS", Start: 10, Stop: 20}}},
		Coverage: []genomics.CoveragePoint{{Pos: 15, Mean: 3, Over: map[int]float64{1: 1}}},
		Variants: []genomics.Variant{{Chrom: "2", Pos: 12, Ref: "A", Alt: "C", AlleleFreq: 0.1}},
	}
	require.NoError(t, s.Insert(ctx, "demo", "x", track))
	track.Coverage[0].Mean = 7
	track.Variants[0].AlleleFreq = 0.2
	require.NoError(t, s.Insert(ctx, "demo", "x", track))

	got, err := s.Track(ctx, "demo", "x")
	require.NoError(t, err)
	assert.Len(t, got.Region.Exons, 1)
	require.Len(t, got.Coverage, 1)
	assert.Equal(t, 7.0, got.Coverage[0].Mean)
	require.Len(t, got.Variants, 1)
	assert.Equal(t, 0.2, got.Variants[0].AlleleFreq)
}

func TestTrack_OnlyRegionData(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	wide := &source.Track{
		Region: genomics.Region{Chrom: "3", Start: 0, Stop: 1000},
		Coverage: []genomics.CoveragePoint{
			{Pos: 50, Mean: 1}, {Pos: 500, Mean: 2}, {Pos: 900, Mean: 3},
		},
	}
	require.NoError(t, s.Insert(ctx, "demo", "wide", wide))
	require.NoError(t, s.Insert(ctx, "demo", "narrow", &source.Track{
		Region: genomics.Region{Chrom: "3", Start: 400, Stop: 600},
	}))

	got, err := s.Track(ctx, "demo", "narrow")
	require.NoError(t, err)
	require.Len(t, got.Coverage, 1)
	assert.Equal(t, 500, got.Coverage[0].Pos)
}

func TestTrack_Errors(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	_, err := s.Track(ctx, "demo", "missing")
	assert.True(t, errors.Is(err, source.ErrNotFound), "got %v", err)

	_, err = s.Track(ctx, "demo", "../x")
	assert.True(t, errors.Is(err, source.ErrInvalidID), "got %v", err)
}
