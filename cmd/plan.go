package cmd

import (
	"fmt"
	"strings"

	"github.com/ethpandaops/fleetdw/pkg/engine"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var planDOT bool

//nolint:gochecknoglobals // Cobra commands are typically global
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the stages of a load",
	Long:  `Prints the load stages grouped by level. Stages on the same level may run in any order.`,
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().BoolVar(&planDOT, "dot", false, "print the stage graph in Graphviz DOT format")
}

func runPlan(cmd *cobra.Command, _ []string) error {
	config, err := setup(cmd)
	if err != nil {
		return err
	}

	service, err := engine.NewService(logger, config)
	if err != nil {
		return err
	}

	graph, err := service.Plan()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if planDOT {
		_, err := fmt.Fprint(out, graph.GenerateDOTFormat())

		return err
	}

	for i, level := range graph.Levels() {
		if _, err := fmt.Fprintf(out, "%d: %s\n", i, strings.Join(level, ", ")); err != nil {
			return err
		}
	}

	return nil
}
