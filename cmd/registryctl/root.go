package main

import (
	"github.com/spf13/cobra"

	"go-rail-employee-registry/internal/bootstrap"
	"go-rail-employee-registry/internal/config"
)

var envFiles []string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "registryctl",
		Short:        "Employee registry maintenance tools",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", config.DefaultEnvFiles, "Env files to load when present")
	cmd.AddCommand(newImportCmd(), newExportCmd(), newReportCmd(), newHashPasswordCmd())
	return cmd
}

// openApp loads configuration and opens the registry. An unavailable store
// is an error here; there is nothing useful a command can do without it.
func openApp(cmd *cobra.Command) (*bootstrap.App, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	app, err := bootstrap.New(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	if err := app.Service.Available(); err != nil {
		_ = app.Close(cmd.Context())
		return nil, err
	}
	return app, nil
}
