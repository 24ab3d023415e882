// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/forgemodel/forge-model/cmd/flags"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <schema-id>",
	Short: "Permanently delete a draft or deprecated schema with no live dependents",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		if err := engine.DeleteSchema(context.Background(), args[0], flags.Actor()); err != nil {
			return err
		}
		pterm.Success.Printfln("deleted schema %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
