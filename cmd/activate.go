// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/forgemodel/forge-model/cmd/flags"
)

var activateCmd = &cobra.Command{
	Use:   "activate <schema-id>",
	Short: "Activate a draft or deprecated schema, demoting any prior active version of the same model",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		rec, err := engine.ActivateSchema(context.Background(), args[0], flags.Actor())
		if err != nil {
			return err
		}
		pterm.Success.Printfln("%s v%s is now active (schema %s)", rec.ModelID, rec.Version, rec.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(activateCmd)
}
