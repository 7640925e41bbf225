package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetops/core/model"
)

var simInput model.SimulationInput

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one simulation against the configured store and print the result",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&simInput.NumDrivers, "drivers", "n", 1, "number of available drivers")
	simulateCmd.Flags().StringVarP(&simInput.StartTime, "start", "s", "09:00", "route start time (HH:MM)")
	simulateCmd.Flags().Float64VarP(&simInput.MaxHoursPerDriver, "max-hours", "m", 8, "maximum hours per driver")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	res, err := svc.Simulate(ctx, simInput)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
