// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var ddlCmd = &cobra.Command{
	Use:   "ddl <schema-id>",
	Short: "Emit the CREATE TABLE/TYPE/INDEX/CONSTRAINT/COMMENT statements for a stored schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cc *cobra.Command, args []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		stmts, err := engine.EmitDDL(context.Background(), args[0])
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			fmt.Fprintln(cc.OutOrStdout(), string(stmt))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ddlCmd)
}
