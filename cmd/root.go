// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forgemodel/forge-model/cmd/flags"
	"github.com/forgemodel/forge-model/pkg/lifecycle"
	"github.com/forgemodel/forge-model/pkg/store"
	"github.com/forgemodel/forge-model/pkg/store/bolt"
	"github.com/forgemodel/forge-model/pkg/store/postgres"
)

// Version is set at build time via -ldflags.
var Version = "development"

func init() {
	viper.SetEnvPrefix("FORGEMODEL")
	viper.AutomaticEnv()

	viper.SetConfigName(".forge-model")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // an absent config file is not an error

	flags.RegisterPersistent(rootCmd)
}

var rootCmd = &cobra.Command{
	Use:     "forge-model",
	Short:   "Schema lifecycle engine: validate, persist, diff and generate DDL/migrations for forge-model schema definitions",
	Version: Version,
	SilenceUsage: true,
}

// Execute runs the CLI, returning the first error encountered.
func Execute() error {
	return rootCmd.Execute()
}

// openStore opens the repository backend selected by --backend/FORGEMODEL_BACKEND.
func openStore() (store.SchemaStore, error) {
	switch flags.Backend() {
	case "postgres":
		conn, err := sql.Open("postgres", flags.PostgresURL())
		if err != nil {
			return nil, fmt.Errorf("open postgres connection: %w", err)
		}
		s := postgres.New(conn, nil)
		if err := s.EnsureSchema(context.Background()); err != nil {
			return nil, fmt.Errorf("bootstrap repository schema: %w", err)
		}
		return s, nil
	case "bolt", "":
		s, err := bolt.Open(flags.BoltPath(), nil)
		if err != nil {
			return nil, fmt.Errorf("open bolt store at %s: %w", flags.BoltPath(), err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want postgres or bolt)", flags.Backend())
	}
}

// newEngine opens a store and wraps it in a lifecycle.Engine wired to the
// CLI's pterm logger.
func newEngine() (*lifecycle.Engine, store.SchemaStore, error) {
	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return lifecycle.New(s, lifecycle.WithLogger(lifecycle.NewLogger())), s, nil
}

func fatalf(format string, args ...any) error {
	pterm.Error.Printfln(format, args...)
	return fmt.Errorf(format, args...)
}
