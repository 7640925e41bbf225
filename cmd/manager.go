package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetops/api"
	"github.com/kilianp07/fleetops/config"
	"github.com/kilianp07/fleetops/core/store"
)

var managerCmd = &cobra.Command{
	Use:   "manager",
	Short: "Manage dashboard accounts",
}

var managerCreateCmd = &cobra.Command{
	Use:   "create <username> <password>",
	Short: "Create a manager account; an existing username is left untouched",
	Args:  cobra.ExactArgs(2),
	RunE:  runManagerCreate,
}

func init() {
	managerCmd.AddCommand(managerCreateCmd)
	rootCmd.AddCommand(managerCmd)
}

func runManagerCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := store.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Type, err)
	}
	defer st.Close()

	auth, err := api.NewAuthenticator(cfg.Auth, st)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	m, err := auth.Register(ctx, args[0], args[1])
	if errors.Is(err, api.ErrUsernameTaken) {
		fmt.Fprintf(cmd.OutOrStdout(), "manager %s already exists\n", args[0])
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "manager %s created\n", m.Username)
	return nil
}
