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

// Package file serves tracks stored as JSON documents in a directory, laid
// out as <root>/<dataset>/<item>.json.
package file

import (
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/freqbrowser/covplot/source"
)

const extension = ".json"

// Source reads tracks from a directory and caches them.  Tracks returned
// are shared between callers and must not be modified.
type Source struct {
	root string

	mu    sync.RWMutex
	cache map[string]*source.Track

	// generations counts evictions per path; a read only caches its track
	// if no eviction happened while it was decoding.
	generations map[string]uint64
	watcher     *fsnotify.Watcher
}

// New returns a Source reading from root.
func New(root string) *Source {
	return &Source{
		root:        root,
		cache:       make(map[string]*source.Track),
		generations: make(map[string]uint64),
	}
}

// Track returns the track stored for item in dataset.
func (s *Source) Track(ctx context.Context, dataset, item string) (*source.Track, error) {
	if err := source.CheckIDs(dataset, item); err != nil {
		return nil, err
	}
	path := filepath.Join(s.root, dataset, item+extension)

	s.mu.RLock()
	track, ok := s.cache[path]
	generation := s.generations[path]
	s.mu.RUnlock()
	if ok {
		return track, nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s/%s: %w", dataset, item, source.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening track: %v", err)
	}
	defer f.Close()

	track, err = source.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}

	s.store(path, generation, track)
	return track, nil
}

// store caches track unless path was evicted since generation was read.
func (s *Source) store(path string, generation uint64, track *source.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[path] == generation {
		s.cache[path] = track
	}
}

// Watch evicts cached tracks when their files change.  It watches the root
// directory and every dataset directory below it, including ones created
// later.
func (s *Source) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %v", err)
	}
	if err := watcher.Add(s.root); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %v", s.root, err)
	}

	entries, err := ioutil.ReadDir(s.root)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("listing %s: %v", s.root, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := watcher.Add(filepath.Join(s.root, entry.Name())); err != nil {
				watcher.Close()
				return fmt.Errorf("watching dataset %s: %v", entry.Name(), err)
			}
		}
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	go s.watch(watcher)
	return nil
}

// Close stops watching.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

func (s *Source) watch(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 && filepath.Dir(event.Name) == filepath.Clean(s.root) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						log.Printf("Failed to watch new dataset %s: %v", event.Name, err)
					}
				}
			}
			if filepath.Ext(event.Name) == extension {
				s.evict(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Track watcher error: %v", err)
		}
	}
}

func (s *Source) evict(path string) {
	path = filepath.Clean(path)
	s.mu.Lock()
	delete(s.cache, path)
	s.generations[path]++
	s.mu.Unlock()
}
