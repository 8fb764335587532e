package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/fleetdw/pkg/engine"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	runClean   bool
	runNoClean bool
	runReset   bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single warehouse load",
	Long: `Extracts every source, optionally cleans the records, rebuilds the
dimensions and fact tables, and records the run in the ETL_Runs ledger.`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runClean, "clean", false, "apply business-rule cleaning regardless of config")
	runCmd.Flags().BoolVar(&runNoClean, "no-clean", false, "skip business-rule cleaning regardless of config")
	runCmd.Flags().BoolVar(&runReset, "reset", false, "drop the whole warehouse, including the run ledger, before loading")
	runCmd.MarkFlagsMutuallyExclusive("clean", "no-clean")
}

// signalContext returns a context canceled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.WithField("signal", sig.String()).Info("Shutting down")
			cancel()
		case <-ctx.Done():
		}

		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func runLoad(cmd *cobra.Command, _ []string) error {
	config, err := setup(cmd)
	if err != nil {
		return err
	}

	switch {
	case runClean:
		config.Cleaning.Enabled = true
	case runNoClean:
		config.Cleaning.Enabled = false
	}

	if cmd.Flags().Changed("reset") {
		config.Warehouse.Reset = runReset
	}

	service, err := engine.NewService(logger, config)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	summary, err := service.Run(ctx)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"run_id":    summary.RunID,
		"fact_rows": summary.TotalFactRows(),
		"skipped":   summary.TotalSkipped(),
	}).Info("Done")

	return nil
}
