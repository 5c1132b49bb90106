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

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/freqbrowser/covplot/internal/genomics"
	"github.com/freqbrowser/covplot/source"
	"github.com/freqbrowser/covplot/source/bam"
	"github.com/freqbrowser/covplot/source/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDepthCommand() *cobra.Command {
	var (
		out         string
		annotations string
	)
	cmd := &cobra.Command{
		Use:   "depth <region> <sample.bam>...",
		Short: "Summarize the read depth of samples over a region into a track",
		Long: `Compute per-base coverage of a region from one BAM file per sample and
write a track whose coverage holds the mean, the median and the fraction of
samples reaching each depth threshold.`,
		Example: "  covplot depth 22-46615715-46615880 a.bam b.bam -o data/demo/22-46615715-46615880.json",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			region, err := genomics.ParseRegion(args[0])
			if err != nil {
				return err
			}

			track := &source.Track{Region: region}
			if annotations != "" {
				annotated, err := readTrack(annotations)
				if err != nil {
					return err
				}
				track.Region.Exons = annotated.Region.Exons
				track.Variants = annotated.Variants
			}

			var samples []io.Reader
			for _, path := range args[1:] {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				samples = append(samples, f)
			}

			track.Coverage, err = bam.Coverage(samples, region.Chrom, region.Start, region.Stop)
			if err != nil {
				return err
			}

			write := func(w io.Writer) error { return json.NewEncoder(w).Encode(track) }
			if out == "" {
				return write(cmd.OutOrStdout())
			}
			return createFile(out, write)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output track file; standard output if empty")
	cmd.Flags().StringVar(&annotations, "annotations", "", "track file whose exons and variants are copied into the output")
	return cmd
}

func newImportCommand(settings *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dataset> <track.json>...",
		Short: "Load track files into a SQLite database",
		Long: `Load track files into the SQLite database given by --db.  Each track is
stored under its file name without the .json extension.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := settings.GetString("db")
			if path == "" {
				return fmt.Errorf("no database given, use --db")
			}
			db, err := sqlite.Open(path)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Init(cmd.Context()); err != nil {
				return err
			}

			dataset := args[0]
			for _, name := range args[1:] {
				track, err := readTrack(name)
				if err != nil {
					return err
				}
				item := strings.TrimSuffix(filepath.Base(name), ".json")
				if err := db.Insert(cmd.Context(), dataset, item, track); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s/%s\n", dataset, item)
			}
			return nil
		},
	}
}

func readTrack(path string) (*source.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	track, err := source.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return track, nil
}
