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

// Variant is a point change annotated with its most severe predicted
// consequence and its frequency in the cohort.
type Variant struct {
	Chrom            string  `json:"chrom"`
	Pos              int     `json:"pos"`
	Ref              string  `json:"ref"`
	Alt              string  `json:"alt"`
	HGVS             string  `json:"HGVS,omitempty"`
	RSID             string  `json:"rsid,omitempty"`
	MajorConsequence string  `json:"majorConsequence"`
	AlleleFreq       float64 `json:"alleleFreq"`
}
