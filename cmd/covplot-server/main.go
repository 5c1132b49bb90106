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

// This binary provides the coverage plot server.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/freqbrowser/covplot/analytics"
	"github.com/freqbrowser/covplot/api"
	"github.com/freqbrowser/covplot/internal/config"
	"github.com/freqbrowser/covplot/plot"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/profile"
)

var (
	configFile = flag.String("config", "", "TOML, YAML or JSON configuration file; reloaded when it changes")

	port      = flag.Int("port", 8080, "HTTP service port")
	cacheSize = flag.Int("cache_size", api.DefaultCacheSize, "number of renders kept for hit testing")

	secure    = flag.Bool("secure", false, "serve in HTTPS-only mode and forward client bearer tokens")
	httpsCert = flag.String("https_cert", "", "HTTPS certificate file")
	httpsKey  = flag.String("https_key", "", "HTTPS key file")

	sourceType = flag.String("source", config.SourceDirectory, "track source: dir, gcs or sqlite")
	directory  = flag.String("directory", "data", "directory that contains <dataset>/<item>.json tracks")
	watch      = flag.Bool("watch", false, "reload tracks of the directory source when they change")
	bucket     = flag.String("bucket", "", "GCS bucket that contains tracks")
	prefix     = flag.String("prefix", "", "object name prefix of tracks in the bucket")
	creds      = flag.String("credentials", config.CredentialsPublic, "credentials of a gcs source outside secure mode: public or default")
	database   = flag.String("db", "", "SQLite database that contains tracks")
	datasets   = flag.String("datasets", "", "if set, restricts reads to a comma-separated list of datasets")

	profileMode = flag.String("profile", "", "write a cpu or mem profile to the working directory")

	// Enable or disable anonymous usage tracking.
	//
	// If enabled, anonymous information about requests handled by the server is
	// logged to Google via Google Analytics.
	//
	// This information helps determine how well the software is performing and
	// where improvements should be made.  No user identifying information is
	// ever sent.
	trackUsage = flag.Bool("track_usage", false, "anonymous usage tracking")
)

func main() {
	flag.Parse()

	if *secure && (*httpsCert == "" || *httpsKey == "") {
		log.Fatalf("You must specify both -https_cert and -https_key in secure mode.")
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		log.Fatalf("Unknown profile mode %q", *profileMode)
	}

	cfg, loader := loadConfig()

	plotCfg, err := cfg.Plot.ToPlotConfig()
	if err != nil {
		log.Fatalf("Invalid plot settings: %v", err)
	}

	newSource, closeSource, err := cfg.Source.Open(*secure)
	if err != nil {
		log.Fatalf("Failed to open %s source: %v", cfg.Source.Type, err)
	}
	defer closeSource()

	server := api.NewServer(newSource, plot.New(plotCfg))
	server.SetCacheSize(cfg.Server.CacheSize)
	if len(cfg.Server.Datasets) > 0 {
		server.Whitelist(cfg.Server.Datasets)
	}

	if loader != nil {
		loader.OnChange(func(cfg *config.Config) {
			plotCfg, err := cfg.Plot.ToPlotConfig()
			if err != nil {
				log.Printf("Ignoring reloaded plot settings: %v", err)
				return
			}
			server.SetPlotter(plot.New(plotCfg))
			log.Printf("Reloaded plot settings from %s", *configFile)
		})
		if err := loader.Watch(); err != nil {
			log.Fatalf("Failed to watch %s: %v", *configFile, err)
		}
		defer loader.Close()
		go func() {
			for err := range loader.Errors() {
				log.Printf("Config reload failed: %v", err)
			}
		}()
	}

	router := gin.Default()
	if cfg.Analytics.Enabled {
		log.Printf("Enabling anonymous usage tracking")

		client := analytics.NewClient(cfg.Analytics.PropertyID, uuid.New().String())
		router.Use(analytics.Middleware(client.Track()))
	}
	server.Export(router)

	address := fmt.Sprintf(":%d", cfg.Server.Port)
	if *secure {
		if err := http.ListenAndServeTLS(address, *httpsCert, *httpsKey, router); err != nil {
			log.Fatalf("HTTPS server returned an error: %v", err)
		}
	} else {
		if err := http.ListenAndServe(address, router); err != nil {
			log.Fatalf("HTTP server returned an error: %v", err)
		}
	}
}

// loadConfig returns the configuration file's contents, or the command-line
// flags when no file was given.
func loadConfig() (*config.Config, *config.Loader) {
	if *configFile != "" {
		loader := config.NewLoader(*configFile)
		cfg, err := loader.Load()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if *trackUsage {
			cfg.Analytics.Enabled = true
		}
		return cfg, loader
	}

	cfg := config.DefaultConfig()
	cfg.Server.Port = *port
	cfg.Server.CacheSize = *cacheSize
	if *datasets != "" {
		cfg.Server.Datasets = strings.Split(*datasets, ",")
	}
	cfg.Source = config.SourceConfig{
		Type:      *sourceType,
		Directory: *directory,
		Watch:     *watch,
		Bucket:    *bucket,
		Prefix:    *prefix,
		Database:  *database,

		Credentials: *creds,
	}
	cfg.Analytics.Enabled = *trackUsage
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}
	return cfg, nil
}
