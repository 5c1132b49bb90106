// Package covplot serves the plot API on App Engine, reading tracks from the
// bucket named by TRACK_BUCKET with the caller's bearer token.
package covplot

import (
	"net/http"
	"os"
	"strings"

	"github.com/freqbrowser/covplot/api"
	"github.com/freqbrowser/covplot/plot"
	"github.com/freqbrowser/covplot/source"
	"github.com/freqbrowser/covplot/source/gcs"
	"github.com/gin-gonic/gin"
	"google.golang.org/appengine"
)

func init() {
	newSource := gcs.NewSourceFromBearerToken(os.Getenv("TRACK_BUCKET"), os.Getenv("TRACK_PREFIX"))
	server := api.NewServer(appEngineSource(newSource), plot.New(plot.DefaultConfig()))
	if list := os.Getenv("DATASET_WHITELIST"); list != "" {
		server.Whitelist(strings.Split(list, ","))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	server.Export(router)
	http.Handle("/", router)
}

func appEngineSource(newSource source.NewSourceFunc) source.NewSourceFunc {
	return func(req *http.Request) (source.Source, error) {
		return newSource(req.WithContext(appengine.NewContext(req)))
	}
}
