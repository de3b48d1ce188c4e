package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/onlinecourse/catalog/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the PostgreSQL schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		if rt.pool == nil {
			return errors.New("migrate requires STORE_DRIVER=postgres")
		}

		if err := database.Migrate(cmd.Context(), rt.pool); err != nil {
			return err
		}
		rt.log.Info("schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
