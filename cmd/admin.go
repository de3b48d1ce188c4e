package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/onlinecourse/catalog/internal/auth"
	"github.com/onlinecourse/catalog/internal/metrics"
	"github.com/onlinecourse/catalog/internal/service"
)

var (
	adminLoginID  string
	adminPassword string
	teacherName   string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register an admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := adminPassword
		if password == "" {
			password = os.Getenv("ADMIN_PASSWORD")
		}

		rt, err := setupPersistent(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		tokens := auth.NewTokenManager(rt.cfg.JWTSecret, rt.cfg.JWTIssuer, rt.cfg.TokenTTL)
		admin, err := service.NewAccountService(rt.store, tokens, rt.log).CreateAdmin(cmd.Context(), adminLoginID, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin %q created with id %d\n", admin.LoginID, admin.ID)
		return nil
	},
}

var teacherCmd = &cobra.Command{
	Use:   "teacher",
	Short: "Manage teachers",
}

var teacherCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a teacher",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setupPersistent(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		catalog := service.NewCatalogService(rt.store, rt.log, metrics.New(prometheus.NewRegistry()))
		t, err := catalog.CreateTeacher(cmd.Context(), teacherName)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "teacher %q created with id %d\n", t.Name, t.ID)
		return nil
	},
}

// setupPersistent refuses the in-memory store, where records would vanish on exit.
func setupPersistent(cmd *cobra.Command) (*app, error) {
	rt, err := setup(cmd.Context())
	if err != nil {
		return nil, err
	}
	if rt.pool == nil {
		rt.Close()
		return nil, errors.New(cmd.CommandPath() + " requires STORE_DRIVER=postgres")
	}
	return rt, nil
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminLoginID, "login-id", "", "admin login id")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (defaults to $ADMIN_PASSWORD)")
	_ = adminCreateCmd.MarkFlagRequired("login-id")

	teacherCreateCmd.Flags().StringVar(&teacherName, "name", "", "teacher display name")
	_ = teacherCreateCmd.MarkFlagRequired("name")

	adminCmd.AddCommand(adminCreateCmd)
	teacherCmd.AddCommand(teacherCreateCmd)
	rootCmd.AddCommand(adminCmd, teacherCmd)
}
