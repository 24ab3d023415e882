// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var migrationsCmd = &cobra.Command{
	Use:   "migrations <to-schema-id>",
	Short: "List migrations generated against a schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		recs, err := engine.ListMigrations(context.Background(), args[0])
		if err != nil {
			return err
		}

		table := pterm.TableData{{"NAME", "FROM", "TO", "BREAKING", "STATUS"}}
		for _, r := range recs {
			table = append(table, []string{r.Name, r.FromVersion, r.ToVersion, boolStr(r.IsBreaking), string(r.Status)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	},
}

func boolStr(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	rootCmd.AddCommand(migrationsCmd)
}
