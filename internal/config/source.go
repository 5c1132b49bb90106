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

package config

import (
	"fmt"
	"log"

	"github.com/freqbrowser/covplot/source"
	"github.com/freqbrowser/covplot/source/file"
	"github.com/freqbrowser/covplot/source/gcs"
	"github.com/freqbrowser/covplot/source/sqlite"
)

// Open returns the configured track source and a function releasing it.
// With forwardCredentials set a gcs source reads with the bearer token of
// each request; otherwise it reads anonymously or with the application
// default credentials, as Credentials selects.
func (s SourceConfig) Open(forwardCredentials bool) (source.NewSourceFunc, func() error, error) {
	noop := func() error { return nil }

	switch s.Type {
	case SourceDirectory:
		src := file.New(s.Directory)
		if !s.Watch {
			return source.Static(src), noop, nil
		}
		if err := src.Watch(); err != nil {
			return nil, nil, fmt.Errorf("watching %s: %v", s.Directory, err)
		}
		log.Printf("Watching %s for track changes", s.Directory)
		return source.Static(src), src.Close, nil

	case SourceGCS:
		switch {
		case forwardCredentials:
			return gcs.NewSourceFromBearerToken(s.Bucket, s.Prefix), noop, nil
		case s.Credentials == CredentialsDefault:
			return gcs.NewDefaultSource(s.Bucket, s.Prefix), noop, nil
		case s.Credentials == "" || s.Credentials == CredentialsPublic:
			return gcs.NewPublicSource(s.Bucket, s.Prefix), noop, nil
		}
		return nil, nil, fmt.Errorf("unknown gcs credentials %q", s.Credentials)

	case SourceSQLite:
		src, err := sqlite.Open(s.Database)
		if err != nil {
			return nil, nil, err
		}
		return source.Static(src), src.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown source type %q", s.Type)
}
