// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/forgemodel/forge-model/pkg/forgeerr"
	"github.com/forgemodel/forge-model/pkg/validator"
)

var validateStrict bool

var validateCmd = &cobra.Command{
	Use:   "validate <definition-file>",
	Short: "Validate a schema definition without storing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		def, err := loadDefinition(args[0])
		if err != nil {
			return err
		}

		mode := validator.Lenient
		if validateStrict {
			mode = validator.Strict
		}

		if err := validator.Validate(def, mode); err != nil {
			var invalid forgeerr.InvalidDefinition
			if asInvalidDefinition(err, &invalid) {
				for _, e := range invalid.Errors {
					pterm.Error.Println(e.Error())
				}
				return fmt.Errorf("%d validation error(s)", len(invalid.Errors))
			}
			pterm.Error.Println(err.Error())
			return err
		}

		pterm.Success.Printfln("%s v%s is valid", def.ModelID, def.Version)
		return nil
	},
}

func asInvalidDefinition(err error, target *forgeerr.InvalidDefinition) bool {
	if inv, ok := err.(forgeerr.InvalidDefinition); ok {
		*target = inv
		return true
	}
	return false
}

func init() {
	validateCmd.Flags().BoolVar(&validateStrict, "strict", true, "Aggregate every validation error instead of stopping at the first")
	rootCmd.AddCommand(validateCmd)
}
