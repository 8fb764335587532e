package cmd

import (
	"github.com/ethpandaops/fleetdw/pkg/engine"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	scheduleCron       string
	scheduleRunOnStart bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run warehouse loads on a cron schedule",
	Long: `Starts a long-running process that performs a load on every tick of
the configured cron expression. Metrics and health endpoints are served
while the scheduler runs.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression overriding the config")
	scheduleCmd.Flags().BoolVar(&scheduleRunOnStart, "run-on-start", false, "run a load immediately")
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	config, err := setup(cmd)
	if err != nil {
		return err
	}

	if scheduleCron != "" {
		config.Schedule.Cron = scheduleCron
	}

	if scheduleRunOnStart {
		config.Schedule.RunOnStart = true
	}

	service, err := engine.NewService(logger, config)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	return service.Schedule(ctx)
}
