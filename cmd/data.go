package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetops/core/store"
)

var (
	dataDir      string
	clearHistory bool
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage operational data",
}

var dataLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replace drivers, routes and orders with the CSV files of a directory",
	RunE:  runDataLoad,
}

var dataClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete drivers, routes and orders",
	RunE:  runDataClear,
}

func init() {
	dataLoadCmd.Flags().StringVarP(&dataDir, "dir", "d", "", "directory holding drivers.csv, routes.csv and orders.csv (defaults to import.dir)")
	dataClearCmd.Flags().BoolVar(&clearHistory, "history", false, "also delete stored simulation results")
	dataCmd.AddCommand(dataLoadCmd, dataClearCmd)
	rootCmd.AddCommand(dataCmd)
}

func runDataLoad(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	rep, err := svc.LoadData(ctx, dataDir)
	if err != nil {
		return err
	}
	for _, fr := range []struct {
		name string
		n, s int
	}{
		{rep.Drivers.File, rep.Drivers.Loaded, rep.Drivers.Skipped},
		{rep.Routes.File, rep.Routes.Loaded, rep.Routes.Skipped},
		{rep.Orders.File, rep.Orders.Loaded, rep.Orders.Skipped},
	} {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d loaded, %d skipped\n", fr.name, fr.n, fr.s)
	}
	return nil
}

func runDataClear(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if clearHistory {
		err = store.ClearAll(ctx, svc.Store)
	} else {
		err = store.ClearOperationalData(ctx, svc.Store)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "data cleared")
	return nil
}
