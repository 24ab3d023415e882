// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/forgemodel/forge-model/cmd/flags"
	"github.com/forgemodel/forge-model/pkg/lifecycle"
)

var createCmd = &cobra.Command{
	Use:   "create <definition-file>",
	Short: "Validate and persist a schema definition as a new draft version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cc *cobra.Command, args []string) error {
		def, err := loadDefinition(args[0])
		if err != nil {
			return err
		}

		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		spinner, _ := pterm.DefaultSpinner.Start("creating schema " + def.ModelID + " v" + def.Version)

		rec, err := engine.CreateSchema(context.Background(), def, flags.Actor())
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}

		spinner.Success()
		w := lifecycle.NewWriter(cc.OutOrStdout(), outputFormat(flags.OutputJSON()))
		return w.Write(rec)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
