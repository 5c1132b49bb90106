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

// Package cli implements the covplot command line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/freqbrowser/covplot/internal/config"
	"github.com/freqbrowser/covplot/plot"
	"github.com/freqbrowser/covplot/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Execute runs the command line tool.  It is called by main.main.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

// NewRootCommand returns the covplot command with all subcommands.  Flags
// may also be set through COVPLOT_ environment variables, e.g.
// COVPLOT_DIRECTORY.
func NewRootCommand() *cobra.Command {
	settings := viper.New()
	settings.SetEnvPrefix("covplot")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	root := &cobra.Command{
		Use:           "covplot",
		Short:         "Render coverage and annotation plots of genomic regions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "TOML, YAML or JSON configuration file")
	flags.String("source", config.SourceDirectory, "track source: dir, gcs or sqlite")
	flags.StringP("directory", "d", "data", "directory that contains <dataset>/<item>.json tracks")
	flags.String("bucket", "", "GCS bucket that contains tracks")
	flags.String("prefix", "", "object name prefix of tracks in the bucket")
	flags.String("credentials", config.CredentialsPublic, "credentials of a gcs source: public or default")
	flags.String("db", "", "SQLite database that contains tracks")
	for _, name := range []string{"config", "source", "directory", "bucket", "prefix", "credentials", "db"} {
		settings.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newRenderCommand(settings),
		newAxesCommand(settings),
		newHitCommand(settings),
		newDepthCommand(),
		newImportCommand(settings),
	)
	return root
}

// loadConfig merges the configuration file, if any, with flags and
// environment variables.  Flags left at their defaults do not override the
// file.
func loadConfig(settings *viper.Viper) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := settings.GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	overrides := []struct {
		key   string
		value *string
	}{
		{"source", &cfg.Source.Type},
		{"directory", &cfg.Source.Directory},
		{"bucket", &cfg.Source.Bucket},
		{"prefix", &cfg.Source.Prefix},
		{"credentials", &cfg.Source.Credentials},
		{"db", &cfg.Source.Database},
	}
	// Without a file every flag applies, defaults included.
	fromFile := settings.GetString("config") != ""
	for _, o := range overrides {
		if !fromFile || settings.IsSet(o.key) {
			*o.value = settings.GetString(o.key)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openTrack resolves dataset and item through the configured source.
func openTrack(ctx context.Context, cfg *config.Config, dataset, item string) (*source.Track, error) {
	newSource, closeSource, err := cfg.Source.Open(false)
	if err != nil {
		return nil, err
	}
	defer closeSource()

	src, err := newSource(nil)
	if err != nil {
		return nil, err
	}
	return src.Track(ctx, dataset, item)
}

// plotFlags are shared by commands that lay out a plot.
type plotFlags struct {
	metric     string
	includeUTR bool
	width      int
	height     int
}

func (f *plotFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.metric, "metric", "m", plot.Mean, "coverage metric: mean, median or a depth threshold such as 20")
	cmd.Flags().BoolVar(&f.includeUTR, "utr", false, "include leading and trailing UTRs in the X range")
	cmd.Flags().IntVar(&f.width, "width", 1000, "image width in pixels")
	cmd.Flags().IntVar(&f.height, "height", 300, "image height in pixels")
}

func (f *plotFlags) input(track *source.Track) (plot.Input, error) {
	metric, err := plot.ParseMetric(f.metric)
	if err != nil {
		return plot.Input{}, err
	}
	if f.width <= 0 || f.height <= 0 {
		return plot.Input{}, fmt.Errorf("invalid size %dx%d", f.width, f.height)
	}
	return plot.Input{
		Region:     track.Region,
		Coverage:   track.Coverage,
		Variants:   track.Variants,
		Metric:     metric,
		IncludeUTR: f.includeUTR,
		Width:      f.width,
		Height:     f.height,
	}, nil
}

func createFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %v", path, err)
	}
	return f.Close()
}
