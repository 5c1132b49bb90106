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
	"strconv"

	"github.com/freqbrowser/covplot/plot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRenderCommand(settings *viper.Viper) *cobra.Command {
	var (
		flags  plotFlags
		out    string
		hitmap string
		colors string
	)
	cmd := &cobra.Command{
		Use:     "render <dataset> <item>",
		Short:   "Render the plot of a dataset item to a PNG file",
		Example: "  covplot render SweGen 22-46615715-46615880 -o plot.png --metric 20",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(settings)
			if err != nil {
				return err
			}
			plotCfg, err := cfg.Plot.ToPlotConfig()
			if err != nil {
				return err
			}
			track, err := openTrack(cmd.Context(), cfg, args[0], args[1])
			if err != nil {
				return err
			}
			in, err := flags.input(track)
			if err != nil {
				return err
			}

			render := plot.New(plotCfg).Render(in)
			if err := createFile(out, render.WritePNG); err != nil {
				return err
			}
			if hitmap != "" {
				if err := createFile(hitmap, render.WriteHitPNG); err != nil {
					return err
				}
			}
			if colors != "" {
				if err := createFile(colors, func(w io.Writer) error {
					return json.NewEncoder(w).Encode(render.Colors)
				}); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d coverage points, %d features\n", out, len(render.Points), len(render.Colors))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "plot.png", "output PNG file")
	cmd.Flags().StringVar(&hitmap, "hitmap", "", "also write the hit surface to this PNG file")
	cmd.Flags().StringVar(&colors, "colors", "", "also write the feature colour hash to this JSON file")
	return cmd
}

func newAxesCommand(settings *viper.Viper) *cobra.Command {
	var flags plotFlags
	cmd := &cobra.Command{
		Use:   "axes <dataset> <item>",
		Short: "Print the plot axes of a dataset item as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(settings)
			if err != nil {
				return err
			}
			track, err := openTrack(cmd.Context(), cfg, args[0], args[1])
			if err != nil {
				return err
			}
			in, err := flags.input(track)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plot.ComputeAxes(in.Region, in.Metric.IsFraction(), in.IncludeUTR))
		},
	}
	flags.register(cmd)
	return cmd
}

func newHitCommand(settings *viper.Viper) *cobra.Command {
	var flags plotFlags
	cmd := &cobra.Command{
		Use:   "hit <dataset> <item> <x> <y>",
		Short: "Describe the feature drawn at a pixel of the plot",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("parsing x: %v", err)
			}
			y, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("parsing y: %v", err)
			}

			cfg, err := loadConfig(settings)
			if err != nil {
				return err
			}
			plotCfg, err := cfg.Plot.ToPlotConfig()
			if err != nil {
				return err
			}
			track, err := openTrack(cmd.Context(), cfg, args[0], args[1])
			if err != nil {
				return err
			}
			in, err := flags.input(track)
			if err != nil {
				return err
			}

			view := plot.NewView(plot.New(plotCfg))
			render := view.Update(in)
			description, ok, err := view.HitTest(render.Generation, x, y)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no feature")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), description)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
