// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"time"

	"github.com/awcullen/uacore/internal/report"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Browse every node below Objects and read the value of every variable",
	Long: `Browse every node below the Objects folder and read the value of every variable.
The report is printed, and saved when an output file is given. The extension of the
file selects the format: .json, .yaml, .yml or .txt.

Examples:
  uascan scan
  uascan scan -o scan_results.json
  uascan scan -o scan_results.yaml --quiet`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringP("output", "o", "", "save the report to this file")
	scanCmd.Flags().BoolP("quiet", "q", false, "do not print the report")
	viper.BindPFlag("scan.output", scanCmd.Flags().Lookup("output"))
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, stop := signalContext()
	defer stop()

	output := viper.GetString("scan.output")
	if output != "" {
		if _, err := report.FormatOf(output); err != nil {
			return err
		}
	}

	c, err := dial(ctx, logger)
	if err != nil {
		return err
	}
	defer closeClient(c)

	start := time.Now()
	res, err := c.Scan(ctx)
	if err != nil {
		return errors.Wrap(err, "error scanning")
	}
	logger.Info().
		Int("objects", len(res.Objects)).
		Int("variables", len(res.Variables)).
		Int("methods", len(res.Methods)).
		Dur("elapsed", time.Since(start)).
		Msg("Scan complete.")

	r := report.New(c.EndpointURL(), res, start)
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		if err := r.Encode(cmd.OutOrStdout(), report.FormatText); err != nil {
			return err
		}
	}
	if output != "" {
		if err := r.Save(output); err != nil {
			return err
		}
		logger.Info().Str("file", output).Msg("Scan results saved.")
	}
	return nil
}
