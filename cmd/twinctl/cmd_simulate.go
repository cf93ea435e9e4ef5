package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	types "github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/modules/twin/steps"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Project a vector forward under scenario changes",
		Long: `Project a base vector forward with no history (zero slopes) plus the
shifts and slope modifiers from an adjustment table.

Examples:
  twinctl simulate --table adjustments.yaml --set hydration_index=35 \
    --change routine:add_moisturizer --horizon 30
  twinctl simulate --table adjustments.yaml --change environment:high_uv:2 --timeline --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tablePath, _ := cmd.Flags().GetString("table")
			sets, _ := cmd.Flags().GetStringArray("set")
			changeArgs, _ := cmd.Flags().GetStringArray("change")
			horizon, _ := cmd.Flags().GetInt("horizon")
			timeline, _ := cmd.Flags().GetBool("timeline")
			jsonOut, _ := cmd.Flags().GetBool("json")

			table := steps.EmptyAdjustmentTable()
			if tablePath != "" {
				raw, err := readInput(cmd, tablePath)
				if err != nil {
					return err
				}
				if table, err = steps.ParseAdjustmentTable(raw); err != nil {
					return fmt.Errorf("%s: %w", tablePath, err)
				}
			}
			base, err := parseVector(sets)
			if err != nil {
				return err
			}
			changes, err := parseChanges(changeArgs)
			if err != nil {
				return err
			}

			proj, err := steps.Project(steps.ProjectInput{
				BaseVector:      base,
				BaseTakenAt:     time.Now().UTC().Truncate(24 * time.Hour),
				Table:           table,
				Changes:         changes,
				HorizonDays:     horizon,
				IncludeTimeline: timeline,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]any{
					"adjustment_version": table.Version,
					"expected_vector":    proj.ExpectedVector,
					"expected_mood":      proj.ExpectedMood,
					"final_confidence":   proj.FinalConfidence,
					"trends":             proj.Trends,
					"timeline":           proj.Timeline,
					"warnings":           proj.Warnings,
				})
			}
			fmt.Fprintf(out, "table %s, horizon %d days\n", table.Version, horizon)
			for _, d := range types.Dimensions {
				fmt.Fprintf(out, "%-20s %6.2f -> %6.2f  %s\n", d, base.Get(d), proj.ExpectedVector.Get(d), proj.Trends[d])
			}
			fmt.Fprintf(out, "expected_mood: %s\nfinal_confidence: %.2f\n", proj.ExpectedMood, proj.FinalConfidence)
			for _, w := range proj.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			return nil
		},
	}
	cmd.Flags().String("table", "", "Adjustment table YAML")
	cmd.Flags().StringArray("set", nil, "Base dimension value, e.g. hydration_index=35 (repeatable)")
	cmd.Flags().StringArray("change", nil, "Scenario change kind:key[:magnitude] (repeatable)")
	cmd.Flags().Int("horizon", 30, "Days to project (1-365)")
	cmd.Flags().Bool("timeline", false, "Include the per-day timeline")
	return cmd
}

func parseVector(sets []string) (types.SkinStateVector, error) {
	v := types.NeutralVector()
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		if !ok {
			return v, fmt.Errorf("--set %q: want dimension=value", s)
		}
		d, ok := types.ParseDimension(name)
		if !ok {
			return v, fmt.Errorf("--set %q: unknown dimension", s)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return v, fmt.Errorf("--set %q: %w", s, err)
		}
		v.Set(d, types.ClampScore(f))
	}
	return v, nil
}

func parseChanges(args []string) ([]types.ScenarioChange, error) {
	out := make([]types.ScenarioChange, 0, len(args))
	for _, a := range args {
		parts := strings.Split(a, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("--change %q: want kind:key[:magnitude]", a)
		}
		ch := types.ScenarioChange{Kind: types.ChangeKind(strings.ToLower(parts[0])), Key: parts[1]}
		if ch.Kind != types.ChangeEnvironment && ch.Kind != types.ChangeRoutine {
			return nil, fmt.Errorf("--change %q: kind must be environment or routine", a)
		}
		if len(parts) == 3 {
			m, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				return nil, fmt.Errorf("--change %q: %w", a, err)
			}
			ch.Magnitude = m
		}
		out = append(out, ch)
	}
	return out, nil
}
