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

package bam

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRead struct {
	pos   int // 0-based
	cigar string
	flags sam.Flags
}

// writeBAM encodes reads aligned to a single reference named chrom.
func writeBAM(t *testing.T, chrom string, reads []testRead) []byte {
	ref, err := sam.NewReference(chrom, "", "", 10000, nil, nil)
	require.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := bam.NewWriter(&buf, header, 1)
	require.NoError(t, err)
	for i, read := range reads {
		cigar, err := sam.ParseCigar([]byte(read.cigar))
		require.NoError(t, err)
		_, length := cigar.Lengths()
		seq := []byte(strings.Repeat("A", length))
		record, err := sam.NewRecord(string(rune('a'+i)), ref, nil, read.pos, -1, 0, 60, cigar, seq, nil, nil)
		require.NoError(t, err)
		record.Flags = read.flags
		require.NoError(t, w.Write(record))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestAddRecord(t *testing.T) {
	testCases := []struct {
		name  string
		pos   int
		cigar sam.Cigar
		want  []int
	}{
		{
			"match",
			1,
			sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 3)},
			[]int{0, 1, 1, 1, 0, 0},
		},
		{
			"deletion leaves a gap",
			0,
			sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 2), sam.NewCigarOp(sam.CigarDeletion, 2), sam.NewCigarOp(sam.CigarEqual, 2)},
			[]int{1, 1, 0, 0, 1, 1},
		},
		{
			"clips and insertions do not consume reference",
			2,
			sam.Cigar{sam.NewCigarOp(sam.CigarSoftClipped, 4), sam.NewCigarOp(sam.CigarMatch, 1), sam.NewCigarOp(sam.CigarInsertion, 3), sam.NewCigarOp(sam.CigarMismatch, 1)},
			[]int{0, 0, 1, 1, 0, 0},
		},
		{
			"clipped to the window",
			4,
			sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 10)},
			[]int{0, 0, 0, 0, 1, 1},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			depth := make([]int, 6)
			addRecord(depth, &sam.Record{Pos: tc.pos, Cigar: tc.cigar}, 1)
			assert.Equal(t, tc.want, depth)
		})
	}
}

func TestDepth(t *testing.T) {
	data := writeBAM(t, "chr1", []testRead{
		{pos: 99, cigar: "10M"},
		{pos: 104, cigar: "10M"},
		{pos: 99, cigar: "10M", flags: sam.Duplicate},
		{pos: 99, cigar: "10M", flags: sam.Secondary},
		{pos: 99, cigar: "10M", flags: sam.QCFail},
	})

	depth, err := Depth(bytes.NewReader(data), "1", 100, 115)
	require.NoError(t, err)
	want := []int{1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1, 0}
	assert.Equal(t, want, depth)
}

func TestDepth_OtherChromosome(t *testing.T) {
	data := writeBAM(t, "2", []testRead{{pos: 0, cigar: "5M"}})
	depth, err := Depth(bytes.NewReader(data), "1", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 0}, depth)
}

func TestDepth_Errors(t *testing.T) {
	_, err := Depth(strings.NewReader("not a bam file"), "1", 1, 5)
	assert.Error(t, err)

	_, err = Depth(bytes.NewReader(writeBAM(t, "1", nil)), "1", 5, 1)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	points := Summarize([][]int{
		{0, 10, 30},
		{5, 20, 100},
		{1, 30, 100},
		{2, 40, 0},
	}, 1000)
	require.Len(t, points, 3)

	first := points[0]
	assert.Equal(t, 1000, first.Pos)
	assert.Equal(t, 2.0, first.Mean)
	assert.Equal(t, 1.5, first.Median)
	assert.Equal(t, 0.5, first.Over[1])
	assert.Equal(t, 0.0, first.Over[5])
	assert.Equal(t, 0.0, first.Over[10])

	second := points[1]
	assert.Equal(t, 1001, second.Pos)
	assert.Equal(t, 25.0, second.Mean)
	assert.Equal(t, 25.0, second.Median)
	assert.Equal(t, 0.75, second.Over[10])
	assert.Equal(t, 0.25, second.Over[30])

	third := points[2]
	assert.Equal(t, 57.5, third.Mean)
	assert.Equal(t, 0.5, third.Over[50])
	assert.Equal(t, 0.0, third.Over[100])
}

func TestSummarize_Empty(t *testing.T) {
	assert.Nil(t, Summarize(nil, 1))
	assert.Empty(t, Summarize([][]int{{1, 2}, {}}, 1))
}

func TestCoverage(t *testing.T) {
	samples := []io.Reader{
		bytes.NewReader(writeBAM(t, "1", []testRead{{pos: 0, cigar: "3M"}})),
		bytes.NewReader(writeBAM(t, "1", []testRead{{pos: 1, cigar: "3M"}, {pos: 1, cigar: "1M"}})),
	}
	points, err := Coverage(samples, "1", 1, 4)
	require.NoError(t, err)
	require.Len(t, points, 4)

	var means []float64
	for _, point := range points {
		means = append(means, point.Mean)
	}
	assert.Equal(t, []float64{0.5, 1.5, 1, 0.5}, means)
}
