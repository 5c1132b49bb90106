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

// Package source defines where plotted tracks come from.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"sort"
	"strings"

	"github.com/freqbrowser/covplot/internal/genomics"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrNotFound is returned when a dataset has no such track.
	ErrNotFound = errors.New("track not found")
	// ErrInvalidID is returned for dataset or item identifiers that could
	// escape the source's namespace.
	ErrInvalidID = errors.New("invalid dataset or item ID")
	// ErrUnauthorized is returned when the source rejected the credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the credentials do not grant access.
	ErrForbidden = errors.New("forbidden")
)

// Track is everything needed to plot one gene, transcript or region.
type Track struct {
	Region   genomics.Region          `json:"region"`
	Coverage []genomics.CoveragePoint `json:"coverage"`
	Variants []genomics.Variant       `json:"variants"`
}

// Source resolves a dataset item (a gene, transcript or region identifier)
// to its track.
type Source interface {
	Track(ctx context.Context, dataset, item string) (*Track, error)
}

// NewSourceFunc returns the Source that should serve an incoming request,
// allowing sources to depend on the caller's credentials.
type NewSourceFunc func(*http.Request) (Source, error)

// Static returns a NewSourceFunc that always returns s.
func Static(s Source) NewSourceFunc {
	return func(*http.Request) (Source, error) { return s, nil }
}

// ValidID reports whether id is usable as a dataset or item identifier.
func ValidID(id string) bool {
	return id != "" && !strings.HasPrefix(id, ".") && !strings.ContainsAny(id, `/\`)
}

// CheckIDs returns ErrInvalidID unless both identifiers are valid.
func CheckIDs(dataset, item string) error {
	if !ValidID(dataset) || !ValidID(item) {
		return fmt.Errorf("%q/%q: %w", dataset, item, ErrInvalidID)
	}
	return nil
}

const trackSchema = `{
	"type": "object",
	"required": ["region"],
	"properties": {
		"region": {
			"type": "object",
			"required": ["start", "stop"],
			"properties": {
				"chrom": {"type": "string"},
				"start": {"type": "integer", "minimum": 0},
				"stop": {"type": "integer", "minimum": 0},
				"exons": {
					"type": ["array", "null"],
					"items": {
						"type": "object",
						"required": ["type", "start", "stop"],
						"properties": {
							"type": {"type": "string"},
							"start": {"type": "integer"},
							"stop": {"type": "integer"}
						}
					}
				}
			}
		},
		"coverage": {
			"type": ["array", "null"],
			"items": {
				"type": "object",
				"required": ["pos"],
				"properties": {"pos": {"type": "integer"}}
			}
		},
		"variants": {
			"type": ["array", "null"],
			"items": {
				"type": "object",
				"required": ["pos"],
				"properties": {
					"pos": {"type": "integer"},
					"alleleFreq": {"type": ["number", "null"], "minimum": 0, "maximum": 1}
				}
			}
		}
	}
}`

var schema = jsonschema.MustCompileString("track.schema.json", trackSchema)

// Decode reads a JSON track document, validates it and sorts its coverage
// points by position.
func Decode(r io.Reader) (*Track, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading track: %v", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing track: %v", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validating track: %v", err)
	}

	var track Track
	if err := json.Unmarshal(data, &track); err != nil {
		return nil, fmt.Errorf("decoding track: %v", err)
	}
	if track.Region.Start > track.Region.Stop {
		return nil, fmt.Errorf("%s: start > stop", track.Region)
	}
	sort.SliceStable(track.Coverage, func(i, j int) bool {
		return track.Coverage[i].Pos < track.Coverage[j].Pos
	})
	return &track, nil
}
