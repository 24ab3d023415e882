// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var listModelID string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List schema versions, optionally filtered to one model",
	RunE: func(_ *cobra.Command, _ []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		recs, err := engine.ListSchemas(context.Background(), listModelID)
		if err != nil {
			return err
		}

		table := pterm.TableData{{"ID", "MODEL", "VERSION", "STATUS", "TABLE"}}
		for _, r := range recs {
			table = append(table, []string{r.ID, r.ModelID, r.Version, string(r.Status), r.TableName})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	},
}

func init() {
	listCmd.Flags().StringVar(&listModelID, "model", "", "Restrict to one model_id")
	rootCmd.AddCommand(listCmd)
}
