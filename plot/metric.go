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
	"strconv"
	"strings"

	"github.com/freqbrowser/covplot/internal/genomics"
)

// Aggregate statistic names.
const (
	Mean   = "mean"
	Median = "median"
)

type metricKind int

const (
	aggregateMetric metricKind = iota
	overThresholdMetric
)

// Metric selects the coverage statistic that is plotted.  It is either a
// named aggregate (Aggregate) or the fraction of samples covered above a read
// depth (OverThreshold).  The zero value is the mean.
type Metric struct {
	kind      metricKind
	name      string
	threshold int
}

// Aggregate returns a metric plotting the named per-position aggregate.
func Aggregate(name string) Metric {
	return Metric{kind: aggregateMetric, name: name}
}

// OverThreshold returns a metric plotting the fraction of samples with
// coverage above depth.
func OverThreshold(depth int) Metric {
	return Metric{kind: overThresholdMetric, threshold: depth}
}

// ParseMetric parses "mean", "median" or a read depth such as "20".  An empty
// string selects the mean.
func ParseMetric(s string) (Metric, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", Mean:
		return Aggregate(Mean), nil
	case Median:
		return Aggregate(Median), nil
	}
	depth, err := strconv.Atoi(strings.TrimPrefix(s, "over_"))
	if err != nil || depth < 0 {
		return Metric{}, fmt.Errorf("unknown coverage metric %q", s)
	}
	return OverThreshold(depth), nil
}

// IsFraction reports whether the metric's values lie in [0,1].
func (m Metric) IsFraction() bool {
	return m.kind == overThresholdMetric
}

// Value returns the metric's value at point.  It returns false when the point
// carries no such statistic.
func (m Metric) Value(point genomics.CoveragePoint) (float64, bool) {
	if m.kind == overThresholdMetric {
		v, ok := point.Over[m.threshold]
		return v, ok
	}
	switch m.name {
	case "", Mean:
		return point.Mean, true
	case Median:
		return point.Median, true
	}
	return 0, false
}

func (m Metric) String() string {
	if m.kind == overThresholdMetric {
		return strconv.Itoa(m.threshold)
	}
	if m.name == "" {
		return Mean
	}
	return m.name
}
