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

package api

import (
	"sync"

	"github.com/freqbrowser/covplot/plot"
)

// renderCache keeps the most recent renders by ID, evicting the oldest once
// full.
type renderCache struct {
	mu      sync.Mutex
	limit   int
	order   []string
	renders map[string]*plot.Render
}

func newRenderCache(limit int) *renderCache {
	if limit < 1 {
		limit = 1
	}
	return &renderCache{limit: limit, renders: make(map[string]*plot.Render)}
}

func (cache *renderCache) add(id string, render *plot.Render) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if _, ok := cache.renders[id]; !ok {
		cache.order = append(cache.order, id)
	}
	cache.renders[id] = render

	for len(cache.order) > cache.limit {
		delete(cache.renders, cache.order[0])
		cache.order = cache.order[1:]
	}
}

func (cache *renderCache) get(id string) (*plot.Render, bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	render, ok := cache.renders[id]
	return render, ok
}

