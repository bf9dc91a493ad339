package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jstittsworth/bet-analytics/internal/features"
)

type featuresOutput struct {
	*features.FeatureSet
	Transformed []float64 `json:"transformed,omitempty"`
}

func (a *cli) newFeaturesCmd() *cobra.Command {
	var (
		opts      features.ExtractOptions
		transform string
		params    features.TransformParams
		clipMin   float64
		clipMax   float64
	)

	cmd := &cobra.Command{
		Use:   "features <file>",
		Short: "Extract features from a numeric series",
		Long: `Read a series from a file (a JSON array or one number per line, "-" for
stdin) and print its feature set.

Examples:
  analytics features points.json
  cat points.txt | analytics features - --transform standardize`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			series, err := readSeries(r)
			if err != nil {
				return err
			}

			svc := features.NewFeatureEngineeringService(a.logger)
			fs, err := svc.Extract(series, opts)
			if err != nil {
				return err
			}
			out := featuresOutput{FeatureSet: fs}

			if cmd.Flags().Changed("clip-min") {
				params.ClipMin = &clipMin
			}
			if cmd.Flags().Changed("clip-max") {
				params.ClipMax = &clipMax
			}
			out.Transformed, err = svc.Transformer().Apply(transform, series, params)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().IntVar(&opts.Window, "window", 0, "Rolling window size")
	cmd.Flags().IntVar(&opts.MaxLag, "max-lag", 0, "Largest lag checked for seasonality")
	cmd.Flags().Float64Var(&opts.SmoothingAlpha, "alpha", 0, "Exponential smoothing factor")
	cmd.Flags().StringVar(&transform, "transform", "", "Also emit a transformed series: minmax, standardize, log1p, lag, clip")
	cmd.Flags().IntVar(&params.Lag, "lag", 1, "Shift used by the lag transform")
	cmd.Flags().Float64Var(&clipMin, "clip-min", 0, "Lower bound for the clip transform")
	cmd.Flags().Float64Var(&clipMax, "clip-max", 0, "Upper bound for the clip transform")
	return cmd
}

// readSeries accepts a JSON array or whitespace separated numbers
func readSeries(r io.Reader) ([]float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var series []float64
		if err := json.Unmarshal(trimmed, &series); err != nil {
			return nil, fmt.Errorf("parse series: %w", err)
		}
		return series, nil
	}

	var series []float64
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		v, err := strconv.ParseFloat(strings.TrimSuffix(scanner.Text(), ","), 64)
		if err != nil {
			return nil, fmt.Errorf("parse series: %w", err)
		}
		series = append(series, v)
	}
	return series, scanner.Err()
}
