// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/forgemodel/forge-model/pkg/lifecycle"
	"github.com/forgemodel/forge-model/pkg/validator"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Watch a directory of schema definition files and validate each one on save",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		w, err := lifecycle.NewWatcher(args[0], watchDebounce)
		if err != nil {
			return fatalf("watch %s: %v", args[0], err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pterm.Info.Printfln("watching %s for changes (ctrl-c to stop)", args[0])

		onChange := func(events []lifecycle.WatchEvent) {
			for _, ev := range events {
				def, err := loadDefinition(ev.Path)
				if err != nil {
					pterm.Error.Printfln("%s: %v", ev.Path, err)
					continue
				}
				if err := engine.ValidateDefinition(def, validator.Strict); err != nil {
					pterm.Error.Printfln("%s: %v", ev.Path, err)
					continue
				}
				pterm.Success.Printfln("%s: valid", ev.Path)
			}
		}

		if err := w.Run(ctx, onChange); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "Debounce window for batching rapid filesystem events")
	rootCmd.AddCommand(watchCmd)
}
