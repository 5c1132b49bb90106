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

// Package genomics contains definitions related to Genomic data.
package genomics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Exon types as reported by the browser backend.
const (
	ExonCoding = "exon"
	ExonCDS    = "CDS"
	ExonUTR    = "UTR"
)

var errMalformedRegion = errors.New("expected chrom-start[-stop]")

// Exon is a sub-interval of a region.  Start and Stop are inclusive.
type Exon struct {
	Type  string `json:"type"`
	Start int    `json:"start"`
	Stop  int    `json:"stop"`
}

// IsUTR reports whether the exon is an untranslated region.
func (exon Exon) IsUTR() bool {
	return exon.Type == ExonUTR
}

func (exon Exon) String() string {
	return fmt.Sprintf("%s: %d-%d", exon.Type, exon.Start, exon.Stop)
}

// Region defines a region of genomic interest.
type Region struct {
	// Chrom is a display label only; it is never interpreted.
	Chrom string `json:"chrom"`
	// Start and Stop are the inclusive bounds (in base pairs) of the region.
	Start int `json:"start"`
	Stop  int `json:"stop"`
	// Exons holds the exon structure of the region, ordered by position.
	Exons []Exon `json:"exons,omitempty"`
}

func (region Region) String() string {
	return fmt.Sprintf("%s-%d-%d", region.Chrom, region.Start, region.Stop)
}

// ParseRegion parses a region identifier of the form chrom-start-stop or
// chrom:start-stop.  A missing stop is treated as a single base region.
func ParseRegion(id string) (Region, error) {
	if i := strings.Index(id, ":"); i >= 0 {
		id = id[:i] + "-" + id[i+1:]
	}
	parts := strings.Split(id, "-")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return Region{}, fmt.Errorf("parsing region %q: %v", id, errMalformedRegion)
	}

	region := Region{Chrom: strings.TrimPrefix(parts[0], "chr")}

	start, err := strconv.Atoi(parts[1])
	if err != nil {
		return Region{}, fmt.Errorf("parsing start: %v", err)
	}
	region.Start, region.Stop = start, start

	if len(parts) == 3 {
		stop, err := strconv.Atoi(parts[2])
		if err != nil {
			return Region{}, fmt.Errorf("parsing stop: %v", err)
		}
		region.Stop = stop
	}

	if region.Start > region.Stop {
		return Region{}, fmt.Errorf("%s: start > stop", region)
	}
	return region, nil
}
