// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/forgemodel/forge-model/cmd/flags"
)

var deprecateCmd = &cobra.Command{
	Use:   "deprecate <schema-id>",
	Short: "Transition an active schema to deprecated",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		rec, err := engine.DeprecateSchema(context.Background(), args[0], flags.Actor())
		if err != nil {
			return err
		}
		pterm.Success.Printfln("%s v%s is now deprecated", rec.ModelID, rec.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deprecateCmd)
}
