// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/forgemodel/forge-model/cmd/flags"
	"github.com/forgemodel/forge-model/pkg/lifecycle"
)

var showCmd = &cobra.Command{
	Use:   "show <schema-id>",
	Short: "Print a stored schema record and its definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cc *cobra.Command, args []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		rec, err := engine.GetSchema(context.Background(), args[0])
		if err != nil {
			return err
		}

		w := lifecycle.NewWriter(cc.OutOrStdout(), outputFormat(flags.OutputJSON()))
		return w.Write(rec)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
