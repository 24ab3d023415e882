// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var migrateFromSchemaID string

var migrateCmd = &cobra.Command{
	Use:   "migrate <to-schema-id>",
	Short: "Generate a forward/rollback migration script pair transitioning from one schema version to another (omit --from for an initial CREATE TABLE)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cc *cobra.Command, args []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		rec, err := engine.GenerateMigration(context.Background(), migrateFromSchemaID, args[0])
		if err != nil {
			return err
		}

		breaking := ""
		if rec.IsBreaking {
			breaking = pterm.Red(" [BREAKING]")
		}
		fmt.Fprintf(cc.OutOrStdout(), "-- %s%s\n\n-- forward\n%s\n\n-- rollback\n%s\n",
			rec.Name, breaking, rec.ForwardSQL, rec.RollbackSQL)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFromSchemaID, "from", "", "Source schema id (omit for an initial CREATE)")
	rootCmd.AddCommand(migrateCmd)
}
