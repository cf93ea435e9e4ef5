package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	types "github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/modules/twin/steps"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <payload.json|->",
		Short: "Normalize an analysis payload and print the vector and warnings",
		Long: `Run the analysis ingestor on a payload file (or stdin with "-").

Examples:
  twinctl ingest scan.json
  cat scan.json | twinctl ingest - --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			modelVersion, _ := cmd.Flags().GetString("model-version")

			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			res, err := steps.Ingest(raw, steps.IngestOptions{DefaultModelVersion: modelVersion})
			if err != nil {
				return err
			}
			mood := steps.ClassifyMood(steps.MoodInput{Vector: res.Vector})

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]any{
					"vector":        res.Vector,
					"regions":       res.Regions,
					"model_version": res.ModelVersion,
					"confidence":    res.Confidence,
					"skin_mood":     mood,
					"warnings":      res.Warnings,
				})
			}
			for _, d := range types.Dimensions {
				fmt.Fprintf(out, "%-20s %6.2f\n", d, res.Vector.Get(d))
			}
			fmt.Fprintf(out, "skin_mood: %s\nregions: %d\n", mood, len(res.Regions))
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			return nil
		},
	}
	cmd.Flags().String("model-version", "unknown", "Model version when the payload has none")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}
