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

// Package bam computes per-base coverage summaries from aligned reads, one
// BAM stream per sample.
package bam

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/freqbrowser/covplot/internal/genomics"
)

// skipped are the record flags that exclude a read from the depth.
const skipped = sam.Unmapped | sam.Secondary | sam.QCFail | sam.Duplicate

// Depth returns the read depth on chrom at each position from start to stop
// inclusive.  Positions are 1-based, as in regions.
func Depth(r io.Reader, chrom string, start, stop int) ([]int, error) {
	if start > stop {
		return nil, fmt.Errorf("invalid range %d-%d", start, stop)
	}
	br, err := bam.NewReader(r, 1)
	if err != nil {
		return nil, fmt.Errorf("opening BAM: %v", err)
	}
	defer br.Close()

	depth := make([]int, stop-start+1)
	for {
		record, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %v", err)
		}
		if record.Flags&skipped != 0 || record.Ref == nil || !sameChrom(record.Ref.Name(), chrom) {
			continue
		}
		addRecord(depth, record, start)
	}
	return depth, nil
}

func sameChrom(a, b string) bool {
	return strings.TrimPrefix(a, "chr") == strings.TrimPrefix(b, "chr")
}

// addRecord counts the aligned bases of record into depth, whose first
// element is position start.
func addRecord(depth []int, record *sam.Record, start int) {
	ref := record.Pos // 0-based
	for _, op := range record.Cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			for i := 0; i < n; i++ {
				if j := ref + i + 1 - start; j >= 0 && j < len(depth) {
					depth[j]++
				}
			}
		}
		ref += n * op.Type().Consumes().Reference
	}
}

// Coverage reads every sample concurrently and summarizes their depths on
// chrom from start to stop.
func Coverage(samples []io.Reader, chrom string, start, stop int) ([]genomics.CoveragePoint, error) {
	depths := make([][]int, len(samples))
	errs := make([]error, len(samples))

	var wg sync.WaitGroup
	for i, r := range samples {
		wg.Add(1)
		go func(i int, r io.Reader) {
			defer wg.Done()
			depths[i], errs[i] = Depth(r, chrom, start, stop)
		}(i, r)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("sample %d: %v", i, err)
		}
	}
	return Summarize(depths, start), nil
}

// Summarize turns per-sample depths, each starting at position start, into
// one coverage point per position.  The fraction for each threshold in
// genomics.CoverageThresholds counts samples with a greater depth.
func Summarize(depths [][]int, start int) []genomics.CoveragePoint {
	if len(depths) == 0 {
		return nil
	}
	length := len(depths[0])
	for _, sample := range depths[1:] {
		length = min(length, len(sample))
	}

	n := float64(len(depths))
	values := make([]int, len(depths))
	points := make([]genomics.CoveragePoint, 0, length)
	for i := 0; i < length; i++ {
		total := 0
		for s, sample := range depths {
			values[s] = sample[i]
			total += sample[i]
		}
		sort.Ints(values)

		point := genomics.CoveragePoint{
			Pos:    start + i,
			Mean:   float64(total) / n,
			Median: median(values),
			Over:   make(map[int]float64, len(genomics.CoverageThresholds)),
		}
		for _, threshold := range genomics.CoverageThresholds {
			// values is sorted, so the samples above threshold form its tail.
			below := sort.SearchInts(values, threshold+1)
			point.Over[threshold] = float64(len(values)-below) / n
		}
		points = append(points, point)
	}
	return points
}

func median(sorted []int) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}
