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
	"errors"
	"sync"
)

// ErrStaleRender is returned when a hit test names a render that has been
// replaced.
var ErrStaleRender = errors.New("render has been replaced")

// View owns the current render of one chart.  Each Update replaces the
// previous render wholesale; hit tests must name the generation they were
// issued against so a pointer event can never read a newer or older hit
// surface than the image it was made on.
type View struct {
	plotter *Plotter

	mu         sync.RWMutex
	current    *Render
	generation uint64
}

// NewView returns an empty view drawing with plotter.
func NewView(plotter *Plotter) *View {
	return &View{plotter: plotter}
}

// Update renders in and makes it the current render.
func (v *View) Update(in Input) *Render {
	r := v.plotter.Render(in)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	r.Generation = v.generation
	v.current = r
	return r
}

// HitTest looks up the feature at (x, y) in the render of the given
// generation.
func (v *View) HitTest(generation uint64, x, y int) (string, bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.current == nil || v.current.Generation != generation {
		return "", false, ErrStaleRender
	}
	description, ok := v.current.HitTest(x, y)
	return description, ok, nil
}
