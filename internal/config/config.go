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

// Package config loads the plot service configuration from TOML, YAML or
// JSON files and reloads it when the file changes.
package config

import (
	"errors"
	"fmt"

	"github.com/freqbrowser/covplot/plot"
)

// Source types.
const (
	SourceDirectory = "dir"
	SourceGCS       = "gcs"
	SourceSQLite    = "sqlite"
)

// Credentials of a gcs source that does not forward the caller's token.
const (
	CredentialsPublic  = "public"
	CredentialsDefault = "default"
)

// Config holds the complete service configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" json:"server" yaml:"server"`
	Source    SourceConfig    `toml:"source" json:"source" yaml:"source"`
	Plot      PlotConfig      `toml:"plot" json:"plot" yaml:"plot"`
	Analytics AnalyticsConfig `toml:"analytics" json:"analytics" yaml:"analytics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `toml:"port" json:"port" yaml:"port"`
	// Datasets restricts the datasets served.  Empty serves all.
	Datasets  []string `toml:"datasets" json:"datasets" yaml:"datasets"`
	CacheSize int      `toml:"cache_size" json:"cache_size" yaml:"cache_size"`
}

// SourceConfig selects where tracks are read from.
type SourceConfig struct {
	Type      string `toml:"type" json:"type" yaml:"type"`
	Directory string `toml:"directory" json:"directory" yaml:"directory"`
	// Watch evicts cached tracks of a directory source when files change.
	Watch    bool   `toml:"watch" json:"watch" yaml:"watch"`
	Bucket   string `toml:"bucket" json:"bucket" yaml:"bucket"`
	Prefix   string `toml:"prefix" json:"prefix" yaml:"prefix"`
	Database string `toml:"database" json:"database" yaml:"database"`
	// Credentials is "public" for anonymous reads or "default" for the
	// application default credentials of a gcs source.  Empty means public.
	Credentials string `toml:"credentials" json:"credentials" yaml:"credentials"`
}

// PlotConfig holds the drawing settings.  Colors maps variant consequences
// to hex colours and overrides the default palette.
type PlotConfig struct {
	FontSize         float64           `toml:"font_size" json:"font_size" yaml:"font_size"`
	Spacing          float64           `toml:"spacing" json:"spacing" yaml:"spacing"`
	AnnotationSpace  float64           `toml:"annotation_space" json:"annotation_space" yaml:"annotation_space"`
	VariantRadius    float64           `toml:"variant_radius" json:"variant_radius" yaml:"variant_radius"`
	MinVariantHeight float64           `toml:"min_variant_height" json:"min_variant_height" yaml:"min_variant_height"`
	Connectors       bool              `toml:"connectors" json:"connectors" yaml:"connectors"`
	Colors           map[string]string `toml:"colors" json:"colors" yaml:"colors"`
}

// AnalyticsConfig enables anonymous usage tracking.
type AnalyticsConfig struct {
	Enabled    bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	PropertyID string `toml:"property_id" json:"property_id" yaml:"property_id"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	defaults := plot.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Port:      8080,
			CacheSize: 256,
		},
		Source: SourceConfig{
			Type:      SourceDirectory,
			Directory: "data",
		},
		Plot: PlotConfig{
			FontSize:         defaults.FontSize,
			Spacing:          defaults.Spacing,
			AnnotationSpace:  defaults.AnnotationSpace,
			VariantRadius:    defaults.VariantRadius,
			MinVariantHeight: defaults.MinVariantHeight,
			Connectors:       defaults.Connectors,
		},
		Analytics: AnalyticsConfig{
			PropertyID: "UA-103022118-1",
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.CacheSize < 1 {
		errs = append(errs, errors.New("server.cache_size must be positive"))
	}

	switch c.Source.Type {
	case SourceDirectory:
		if c.Source.Directory == "" {
			errs = append(errs, errors.New("source.directory is required for a directory source"))
		}
	case SourceGCS:
		if c.Source.Bucket == "" {
			errs = append(errs, errors.New("source.bucket is required for a gcs source"))
		}
		switch c.Source.Credentials {
		case "", CredentialsPublic, CredentialsDefault:
		default:
			errs = append(errs, fmt.Errorf("unknown source.credentials %q", c.Source.Credentials))
		}
	case SourceSQLite:
		if c.Source.Database == "" {
			errs = append(errs, errors.New("source.database is required for a sqlite source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source.type %q", c.Source.Type))
	}

	if c.Plot.FontSize <= 0 {
		errs = append(errs, errors.New("plot.font_size must be positive"))
	}
	if c.Plot.Spacing < 0 || c.Plot.AnnotationSpace < 0 || c.Plot.VariantRadius < 0 || c.Plot.MinVariantHeight < 0 {
		errs = append(errs, errors.New("plot sizes must not be negative"))
	}
	if _, err := c.Plot.ToPlotConfig(); err != nil {
		errs = append(errs, err)
	}

	if c.Analytics.Enabled && c.Analytics.PropertyID == "" {
		errs = append(errs, errors.New("analytics.property_id is required when analytics is enabled"))
	}
	return errors.Join(errs...)
}

// ToPlotConfig converts the settings into a plot.Config, applying colour
// overrides on top of the default palette.
func (p PlotConfig) ToPlotConfig() (plot.Config, error) {
	cfg := plot.DefaultConfig()
	cfg.FontSize = p.FontSize
	cfg.Spacing = p.Spacing
	cfg.AnnotationSpace = p.AnnotationSpace
	cfg.VariantRadius = p.VariantRadius
	cfg.MinVariantHeight = p.MinVariantHeight
	cfg.Connectors = p.Connectors

	for consequence, hex := range p.Colors {
		c, err := plot.ParseHexColor(hex)
		if err != nil {
			return plot.Config{}, fmt.Errorf("plot.colors.%s: %w", consequence, err)
		}
		cfg.Palette.Set(consequence, c)
	}
	return cfg, nil
}
