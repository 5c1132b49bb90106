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

package genomics

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CoverageThresholds lists the read depths for which the browser stores the
// fraction of samples covered, in the order of its coverage arrays.
var CoverageThresholds = []int{1, 5, 10, 15, 20, 25, 30, 50, 100}

const overPrefix = "over_"

// CoveragePoint holds coverage statistics for a single position.
type CoveragePoint struct {
	Pos    int
	Mean   float64
	Median float64
	// Over maps a read depth threshold to the fraction of samples whose
	// coverage exceeds it.
	Over map[int]float64
}

// UnmarshalJSON accepts over_<N> keys, bare numeric keys and the browser's
// coverage array form alongside pos, mean and median.
func (point *CoveragePoint) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*point = CoveragePoint{}
	for key, raw := range fields {
		switch key {
		case "pos":
			var pos float64
			if err := json.Unmarshal(raw, &pos); err != nil {
				return fmt.Errorf("parsing pos: %v", err)
			}
			point.Pos = int(pos)
		case "mean":
			if err := unmarshalNullable(raw, &point.Mean); err != nil {
				return fmt.Errorf("parsing mean: %v", err)
			}
		case "median":
			if err := unmarshalNullable(raw, &point.Median); err != nil {
				return fmt.Errorf("parsing median: %v", err)
			}
		case "coverage":
			var values []float64
			if err := json.Unmarshal(raw, &values); err != nil {
				return fmt.Errorf("parsing coverage: %v", err)
			}
			for i, value := range values {
				if i >= len(CoverageThresholds) {
					break
				}
				point.setOver(CoverageThresholds[i], value)
			}
		default:
			threshold, err := strconv.Atoi(strings.TrimPrefix(key, overPrefix))
			if err != nil {
				continue
			}
			var value float64
			if err := unmarshalNullable(raw, &value); err != nil {
				return fmt.Errorf("parsing %s: %v", key, err)
			}
			point.setOver(threshold, value)
		}
	}
	return nil
}

// MarshalJSON writes thresholds as over_<N> keys.
func (point CoveragePoint) MarshalJSON() ([]byte, error) {
	fields := map[string]interface{}{
		"pos":    point.Pos,
		"mean":   point.Mean,
		"median": point.Median,
	}
	for threshold, value := range point.Over {
		fields[overPrefix+strconv.Itoa(threshold)] = value
	}
	return json.Marshal(fields)
}

func (point *CoveragePoint) setOver(threshold int, value float64) {
	if point.Over == nil {
		point.Over = make(map[int]float64)
	}
	point.Over[threshold] = value
}

func unmarshalNullable(raw json.RawMessage, v *float64) error {
	if string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
