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

package file

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/freqbrowser/covplot/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTrack = `{
	"region": {"chrom": "22", "start": 100, "stop": 200},
	"coverage": [{"pos": 150, "mean": 20}],
	"variants": [{"chrom": "22", "pos": 120, "ref": "A", "alt": "T", "majorConsequence": "missense", "alleleFreq": 0.5}]
}`

func setupRoot(t *testing.T) string {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "demo"), 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "demo", "22-100-200.json"), []byte(testTrack), 0644))
	return root
}

func (s *Source) cached(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[filepath.Clean(path)]
	return ok
}

func TestTrack(t *testing.T) {
	s := New(setupRoot(t))

	track, err := s.Track(context.Background(), "demo", "22-100-200")
	require.NoError(t, err)
	assert.Equal(t, "22", track.Region.Chrom)
	assert.Len(t, track.Coverage, 1)
	assert.Len(t, track.Variants, 1)

	again, err := s.Track(context.Background(), "demo", "22-100-200")
	require.NoError(t, err)
	assert.True(t, track == again, "second read was not served from the cache")
}

func TestTrack_Errors(t *testing.T) {
	s := New(setupRoot(t))
	ctx := context.Background()

	_, err := s.Track(ctx, "demo", "missing")
	assert.True(t, errors.Is(err, source.ErrNotFound), "got %v", err)

	_, err = s.Track(ctx, "..", "demo")
	assert.True(t, errors.Is(err, source.ErrInvalidID), "got %v", err)
}

func TestStore_SkipsEvictedReads(t *testing.T) {
	root := setupRoot(t)
	path := filepath.Join(root, "demo", "22-100-200.json")
	s := New(root)

	// A read that started before the file changed must not repopulate the
	// cache with what it decoded.
	s.store(path, 0, &source.Track{})
	require.True(t, s.cached(path))
	s.evict(path)
	s.store(path, 0, &source.Track{})
	assert.False(t, s.cached(path))

	track, err := s.Track(context.Background(), "demo", "22-100-200")
	require.NoError(t, err)
	assert.Equal(t, "22", track.Region.Chrom)
	assert.True(t, s.cached(path))
}

func TestWatch_EvictsChangedTracks(t *testing.T) {
	root := setupRoot(t)
	path := filepath.Join(root, "demo", "22-100-200.json")

	s := New(root)
	require.NoError(t, s.Watch())
	defer s.Close()

	_, err := s.Track(context.Background(), "demo", "22-100-200")
	require.NoError(t, err)
	require.True(t, s.cached(path))

	require.NoError(t, ioutil.WriteFile(path, []byte(testTrack), 0644))
	assert.Eventually(t, func() bool { return !s.cached(path) }, 5*time.Second, 10*time.Millisecond)
}
