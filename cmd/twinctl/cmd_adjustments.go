package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/skintwin-backend/internal/modules/twin/steps"
)

func newAdjustmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjustments",
		Short: "Work with scenario adjustment tables",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <table.yaml>",
		Short: "Parse and validate an adjustment table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			table, err := steps.ParseAdjustmentTable(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), table)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: version %s, %d entries\n", table.Version, len(table.Entries))
			return nil
		},
	})
	return cmd
}
