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

// Package gcs serves tracks stored as JSON objects in Google Cloud Storage,
// named <prefix><dataset>/<item>.json.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/freqbrowser/covplot/source"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var errMissingOrInvalidToken = errors.New("missing or invalid token")

// Source reads tracks from a bucket.
type Source struct {
	client *storage.Client
	bucket string
	prefix string
}

// New returns a Source reading objects below prefix in bucket.
func New(client *storage.Client, bucket, prefix string) *Source {
	return &Source{client, bucket, prefix}
}

// Track returns the track stored for item in dataset.
func (s *Source) Track(ctx context.Context, dataset, item string) (*source.Track, error) {
	if err := source.CheckIDs(dataset, item); err != nil {
		return nil, err
	}
	name := s.prefix + dataset + "/" + item + ".json"

	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, storageError(name, err)
	}
	defer r.Close()

	track, err := source.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("gs://%s/%s: %v", s.bucket, name, err)
	}
	return track, nil
}

// NewDefaultSource returns a source.NewSourceFunc whose sources use the
// application default credentials.  The storage client is created once and
// shared.
func NewDefaultSource(bucket, prefix string) source.NewSourceFunc {
	return sharedClient(bucket, prefix)
}

// NewPublicSource returns a NewSourceFunc whose sources do not use any form
// of client authorization.  They can only read publicly-readable objects.
func NewPublicSource(bucket, prefix string) source.NewSourceFunc {
	return sharedClient(bucket, prefix, option.WithoutAuthentication())
}

// NewSourceFromBearerToken returns a NewSourceFunc whose sources read with
// the OAuth2 bearer token found in the request.  Each source owns a client
// for that token and closes it after its read.
func NewSourceFromBearerToken(bucket, prefix string) source.NewSourceFunc {
	return func(req *http.Request) (source.Source, error) {
		fields := strings.Split(req.Header.Get("Authorization"), " ")
		if len(fields) != 2 || fields[0] != "Bearer" {
			return nil, fmt.Errorf("%v: %w", errMissingOrInvalidToken, source.ErrUnauthorized)
		}

		token := oauth2.Token{
			TokenType:   fields[0],
			AccessToken: fields[1],
		}
		client, err := storage.NewClient(req.Context(), option.WithTokenSource(oauth2.StaticTokenSource(&token)))
		if err != nil {
			return nil, fmt.Errorf("creating client with token source: %v", err)
		}
		return requestSource{New(client, bucket, prefix)}, nil
	}
}

// requestSource serves a single read with a client created for one request.
type requestSource struct {
	*Source
}

func (s requestSource) Track(ctx context.Context, dataset, item string) (*source.Track, error) {
	defer func() {
		if err := s.client.Close(); err != nil {
			log.Printf("Failed to close storage client: %v", err)
		}
	}()
	return s.Source.Track(ctx, dataset, item)
}

func sharedClient(bucket, prefix string, opts ...option.ClientOption) source.NewSourceFunc {
	var (
		once sync.Once
		src  source.Source
		err  error
	)
	return func(*http.Request) (source.Source, error) {
		once.Do(func() {
			var client *storage.Client
			client, err = storage.NewClient(context.Background(), opts...)
			if err != nil {
				err = fmt.Errorf("creating storage client: %v", err)
				return
			}
			src = New(client, bucket, prefix)
		})
		return src, err
	}
}

func storageError(name string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%s: %w", name, source.ErrNotFound)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", name, source.ErrNotFound)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %v: %w", name, err, source.ErrUnauthorized)
		case http.StatusForbidden:
			return fmt.Errorf("%s: %v: %w", name, err, source.ErrForbidden)
		}
	}
	return fmt.Errorf("opening %s: %v", name, err)
}
