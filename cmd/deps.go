// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Dependency resolver queries: execution order, dependents, impact and graph validity",
}

var depsOrderCmd = &cobra.Command{
	Use:   "order <schema-id>...",
	Short: "Print a dependency-respecting activation/execution order for the given schema ids",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		order, err := engine.ExecutionOrder(context.Background(), args)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(order, " -> "))
		return nil
	},
}

var depsRecursive bool

var depsDependentsCmd = &cobra.Command{
	Use:   "dependents <schema-id>",
	Short: "List schemas that depend on the given schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		deps, err := engine.Dependents(context.Background(), args[0], depsRecursive)
		if err != nil {
			return err
		}
		for _, d := range deps {
			fmt.Println(d)
		}
		return nil
	},
}

var depsCanDeleteCmd = &cobra.Command{
	Use:   "can-delete <schema-id>",
	Short: "Report whether a schema is safe to delete, and the blocking dependents if not",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		ok, dependents, err := engine.CanDelete(context.Background(), args[0])
		if err != nil {
			return err
		}
		if ok {
			pterm.Success.Printfln("%s has no live dependents", args[0])
			return nil
		}
		pterm.Warning.Printfln("%s is depended on by: %s", args[0], strings.Join(dependents, ", "))
		return nil
	},
}

var depsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the full dependency graph: a cycle-free ordering over all active schemas, with every edge bound to an active record",
	RunE: func(_ *cobra.Command, _ []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		report, err := engine.ValidateGraph(context.Background())
		if err != nil {
			return err
		}
		if report.OK() {
			pterm.Success.Println("dependency graph is valid")
			return nil
		}
		for _, issue := range report.Issues {
			if issue.SchemaID != "" {
				pterm.Error.Printfln("%s (%s): %s", issue.SchemaID, issue.Field, issue.Message)
			} else {
				pterm.Error.Println(issue.Message)
			}
		}
		return fmt.Errorf("dependency graph has %d issue(s)", len(report.Issues))
	},
}

var depsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dependency graph statistics",
	RunE: func(_ *cobra.Command, _ []string) error {
		engine, s, err := newEngine()
		if err != nil {
			return fatalf("%v", err)
		}
		defer s.Close()

		stats, err := engine.Statistics(context.Background())
		if err != nil {
			return err
		}
		pterm.Println(pterm.Sprintf(
			"nodes: %d  edges: %d  roots: %d  leaves: %d  max fan-in: %d (%s)  max fan-out: %d (%s)  avg fan-in: %.2f  avg fan-out: %.2f",
			stats.NodeCount, stats.EdgeCount, stats.RootCount, stats.LeafCount,
			stats.MaxFanIn, stats.MostDependedOn, stats.MaxFanOut, stats.MostDependent,
			stats.AvgFanIn, stats.AvgFanOut,
		))
		return nil
	},
}

func init() {
	depsDependentsCmd.Flags().BoolVar(&depsRecursive, "recursive", false, "Include transitive dependents")
	depsCmd.AddCommand(depsOrderCmd, depsDependentsCmd, depsCanDeleteCmd, depsValidateCmd, depsStatsCmd)
	rootCmd.AddCommand(depsCmd)
}
