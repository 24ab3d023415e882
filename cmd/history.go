// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [schema-id]",
	Short: "Print a schema's append-only change log, or the most recent changes across all schemas if no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		ctx := context.Background()
		var entries []*entryRow
		if len(args) == 1 {
			h, err := engine.ChangeHistory(ctx, args[0])
			if err != nil {
				return err
			}
			for _, e := range h {
				entries = append(entries, &entryRow{e.SchemaID, string(e.ChangeType), e.Actor, e.OccurredAt.String()})
			}
		} else {
			h, err := engine.RecentChanges(ctx, historyLimit)
			if err != nil {
				return err
			}
			for _, e := range h {
				entries = append(entries, &entryRow{e.SchemaID, string(e.ChangeType), e.Actor, e.OccurredAt.String()})
			}
		}

		table := pterm.TableData{{"SCHEMA", "CHANGE", "ACTOR", "OCCURRED_AT"}}
		for _, e := range entries {
			table = append(table, []string{e.schemaID, e.changeType, e.actor, e.occurredAt})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	},
}

type entryRow struct {
	schemaID, changeType, actor, occurredAt string
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of recent changes to show when no schema id is given")
	rootCmd.AddCommand(historyCmd)
}
