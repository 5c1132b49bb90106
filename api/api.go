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

// Package api implements the HTTP interface of the coverage plot service.
//
// Plots are rendered on request and kept, together with their hit surfaces,
// under a render ID so that later hit-test queries are answered against
// exactly the image the client is showing.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/freqbrowser/covplot/analytics"
	"github.com/freqbrowser/covplot/plot"
	"github.com/freqbrowser/covplot/source"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RenderIDHeader carries the ID of a rendered plot.
	RenderIDHeader = "X-Render-Id"

	defaultWidth  = 1000
	defaultHeight = 300
	maxWidth      = 4096
	maxHeight     = 2048

	// DefaultCacheSize is the number of renders kept for hit testing.
	DefaultCacheSize = 256
)

var (
	errUnknownRender    = errors.New("unknown or expired render")
	errOutsideWhitelist = errors.New("dataset is not served")
)

// Server provides the plot API.  Must be created with NewServer.
type Server struct {
	newSource source.NewSourceFunc
	whitelist map[string]bool
	renders   *renderCache

	mu      sync.RWMutex
	plotter *plot.Plotter
}

// NewServer returns a new Server that reads tracks from the sources
// returned by newSource and draws them with plotter.
func NewServer(newSource source.NewSourceFunc, plotter *plot.Plotter) *Server {
	return &Server{
		newSource: newSource,
		whitelist: make(map[string]bool),
		renders:   newRenderCache(DefaultCacheSize),
		plotter:   plotter,
	}
}

// Whitelist adds datasets to the set of datasets which the server is allowed
// to read.  If Whitelist is never called for a given Server then all
// datasets are served.
func (server *Server) Whitelist(datasets []string) {
	for _, dataset := range datasets {
		server.whitelist[dataset] = true
	}
}

// SetPlotter replaces the plotter used for subsequent renders.  Renders
// already cached keep the settings they were drawn with.
func (server *Server) SetPlotter(plotter *plot.Plotter) {
	server.mu.Lock()
	server.plotter = plotter
	server.mu.Unlock()
}

// SetCacheSize changes the number of renders kept for hit testing.  It must
// be called before the server handles requests.
func (server *Server) SetCacheSize(size int) {
	server.renders = newRenderCache(size)
}

func (server *Server) currentPlotter() *plot.Plotter {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return server.plotter
}

// Export registers the plot API endpoints with router.
func (server *Server) Export(router gin.IRouter) {
	router.Use(forwardOrigin)
	router.GET("/axes/:dataset/:item", server.serveAxes)
	router.GET("/plot/:dataset/:item", server.servePlot)
	router.GET("/hit/:render", server.serveHit)
	router.GET("/hitmap/:render", server.serveHitmap)
	router.GET("/colors/:render", server.serveColors)
}

type plotRequest struct {
	track      *source.Track
	dataset    string
	metric     plot.Metric
	includeUTR bool
}

func (server *Server) parsePlotRequest(c *gin.Context) (*plotRequest, error) {
	dataset, item := c.Param("dataset"), c.Param("item")
	if err := source.CheckIDs(dataset, item); err != nil {
		return nil, newInvalidInputError("parsing track ID", err)
	}
	if err := server.checkWhitelist(dataset); err != nil {
		return nil, newPermissionDeniedError("checking whitelist", err)
	}

	metric, err := plot.ParseMetric(c.Query("metric"))
	if err != nil {
		return nil, newInvalidInputError("parsing metric", err)
	}
	includeUTR, err := parseBool(c.Query("utr"))
	if err != nil {
		return nil, newInvalidInputError("parsing utr", err)
	}

	src, err := server.newSource(c.Request)
	if err != nil {
		return nil, newSourceError("creating source", err)
	}
	track, err := src.Track(c.Request.Context(), dataset, item)
	if err != nil {
		return nil, newSourceError("reading track", err)
	}
	return &plotRequest{track, dataset, metric, includeUTR}, nil
}

func (server *Server) serveAxes(c *gin.Context) {
	request, err := server.parsePlotRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}
	axes := plot.ComputeAxes(request.track.Region, request.metric.IsFraction(), request.includeUTR)
	c.JSON(http.StatusOK, axes)
}

func (server *Server) servePlot(c *gin.Context) {
	track := analytics.TrackerFromContext(c.Request.Context())

	width, err := parseDimension(c.Query("width"), defaultWidth, maxWidth)
	if err != nil {
		writeError(c, newInvalidInputError("parsing width", err))
		return
	}
	height, err := parseDimension(c.Query("height"), defaultHeight, maxHeight)
	if err != nil {
		writeError(c, newInvalidInputError("parsing height", err))
		return
	}

	request, err := server.parsePlotRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}

	render := server.currentPlotter().Render(plot.Input{
		Region:     request.track.Region,
		Coverage:   request.track.Coverage,
		Variants:   request.track.Variants,
		Metric:     request.metric,
		IncludeUTR: request.includeUTR,
		Width:      width,
		Height:     height,
	})

	var buf bytes.Buffer
	if err := render.WritePNG(&buf); err != nil {
		writeError(c, fmt.Errorf("encoding plot: %v", err))
		return
	}

	id := uuid.New().String()
	server.renders.add(id, render)
	track(analytics.RenderEvent(request.dataset, width, height))

	c.Header(RenderIDHeader, id)
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (server *Server) serveHit(c *gin.Context) {
	render, err := server.lookupRender(c)
	if err != nil {
		writeError(c, err)
		return
	}

	x, err := strconv.Atoi(c.Query("x"))
	if err != nil {
		writeError(c, newInvalidInputError("parsing x", err))
		return
	}
	y, err := strconv.Atoi(c.Query("y"))
	if err != nil {
		writeError(c, newInvalidInputError("parsing y", err))
		return
	}

	description, ok := render.HitTest(x, y)
	analytics.TrackerFromContext(c.Request.Context())(analytics.HitTestEvent(ok))
	c.JSON(http.StatusOK, gin.H{
		"hit":         ok,
		"description": description,
	})
}

func (server *Server) serveHitmap(c *gin.Context) {
	render, err := server.lookupRender(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := render.WriteHitPNG(&buf); err != nil {
		writeError(c, fmt.Errorf("encoding hit surface: %v", err))
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (server *Server) serveColors(c *gin.Context) {
	render, err := server.lookupRender(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, render.Colors)
}

func (server *Server) lookupRender(c *gin.Context) (*plot.Render, error) {
	id := c.Param("render")
	if _, err := uuid.Parse(id); err != nil {
		return nil, newInvalidInputError("parsing render ID", err)
	}
	render, ok := server.renders.get(id)
	if !ok {
		return nil, newNotFoundError("looking up render", fmt.Errorf("%s: %w", id, errUnknownRender))
	}
	return render, nil
}

func (server *Server) checkWhitelist(dataset string) error {
	if len(server.whitelist) == 0 || server.whitelist[dataset] {
		return nil
	}
	return fmt.Errorf("%s: %w", dataset, errOutsideWhitelist)
}

func parseDimension(value string, fallback, limit int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n <= 0 || n > limit {
		return 0, fmt.Errorf("%d is outside 1-%d", n, limit)
	}
	return n, nil
}

func parseBool(value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(strings.ToLower(value))
}
