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

// Package analytics provides functions for sending anonymous plot service
// usage to Google Analytics.
package analytics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultEndpoint  = "https://www.google-analytics.com"
	defaultBatchSize = 20 // The maximum number supported by batch endpoint.

	// PlotCategory is the event category used by the plot API.
	PlotCategory = "Plot"
)

// Hit represents a single analytics event (called a 'hit').
type Hit map[string]string

// Event generates a new event typed hit.  The label may be empty and the
// value may be nil but category and action are required.
func Event(category, action, label string, value *int64) Hit {
	hit := Hit{
		"t":  "event",
		"ec": category,
		"ea": action,
	}
	if label != "" {
		hit["el"] = label
	}
	if value != nil {
		hit["ev"] = strconv.FormatInt(*value, 10)
	}
	return hit
}

// RenderEvent records a rendered plot of dataset.  The value is the number
// of pixels rendered.
func RenderEvent(dataset string, width, height int) Hit {
	pixels := int64(width) * int64(height)
	return Event(PlotCategory, "Plot Rendered", dataset, &pixels)
}

// HitTestEvent records a hit-test query and whether it found a feature.
func HitTestEvent(found bool) Hit {
	if found {
		return Event(PlotCategory, "Hit Test", "feature", nil)
	}
	return Event(PlotCategory, "Hit Test", "miss", nil)
}

// Client defines a type for communicating with Google Analytics.  To create a
// properly initialized Client instance, use NewClient.
type Client struct {
	propertyID string
	clientID   string
	endpoint   string
	batchSize  int
	http       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient makes the client upload hits through c.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) { client.http = c }
}

// WithEndpoint replaces the analytics server address.
func WithEndpoint(endpoint string) Option {
	return func(client *Client) { client.endpoint = endpoint }
}

// NewClient returns a Client that sends hits to analytics using the provided
// IDs.
func NewClient(propertyID, clientID string, opts ...Option) *Client {
	client := &Client{
		propertyID: propertyID,
		clientID:   clientID,
		endpoint:   defaultEndpoint,
		batchSize:  defaultBatchSize,
		http:       http.DefaultClient,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Send attempts to upload the provided hits to the analytics server.
func (client *Client) Send(hits []Hit) error {
	if len(hits) > 0 {
		if err := client.upload(hits); err != nil {
			return fmt.Errorf("uploading hits: %v", err)
		}
	}
	return nil
}

// Track returns a function suitable for TrackingHandler and Middleware that
// sends hits in the background and logs failures.
func (client *Client) Track() func([]Hit) {
	return func(hits []Hit) {
		if len(hits) == 0 {
			return
		}
		go func() {
			if err := client.Send(hits); err != nil {
				log.Printf("Failed to send %d hits to analytics: %v", len(hits), err)
			}
		}()
	}
}

func (client *Client) upload(hits []Hit) error {
	for start := 0; start < len(hits); start += client.batchSize {
		end := min(start+client.batchSize, len(hits))

		var body bytes.Buffer
		for _, hit := range hits[start:end] {
			payload := url.Values{
				"v":   []string{"1"},
				"tid": []string{client.propertyID},
				"cid": []string{client.clientID},
			}
			for key, value := range hit {
				payload.Add(key, value)
			}
			body.WriteString(payload.Encode())
			body.WriteByte('\n')
		}

		if err := client.post(&body); err != nil {
			return err
		}
	}
	return nil
}

func (client *Client) post(body io.Reader) error {
	request, err := http.NewRequest(http.MethodPost, client.endpoint+"/batch", body)
	if err != nil {
		return fmt.Errorf("creating request: %v", err)
	}
	response, err := client.http.Do(request)
	if err != nil {
		return fmt.Errorf("sending request: %v", err)
	}
	defer response.Body.Close()
	io.Copy(ioutil.Discard, response.Body)

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response status: %v", response.Status)
	}
	return nil
}

type contextKey int

var (
	hitsKey = contextKey(1)
)

// TrackingHandler returns a new http.Handler which wraps the provided
// handler.  The wrapper prepares the incoming request's context for use with
// the TrackerFromContext function.  When the underlying handler completes,
// the track function is invoked with any hits accumulated during the request.
func TrackingHandler(handler http.Handler, track func([]Hit)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var hits []Hit
		ctx := context.WithValue(req.Context(), hitsKey, &hits)
		handler.ServeHTTP(w, req.WithContext(ctx))
		track(hits)
	})
}

// Middleware is the gin equivalent of TrackingHandler.
func Middleware(track func([]Hit)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var hits []Hit
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), hitsKey, &hits))
		c.Next()
		track(hits)
	}
}

// TrackerFromContext is intended to be used with contexts that are generated
// by TrackingHandler or Middleware.  It returns a function that buffers hits
// to be delivered to the track function provided in the original call.
func TrackerFromContext(ctx context.Context) func(Hit) {
	if hits, ok := ctx.Value(hitsKey).(*[]Hit); ok {
		return func(hit Hit) { *hits = append(*hits, hit) }
	}
	return func(Hit) {}
}
