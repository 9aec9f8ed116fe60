package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"go-rail-employee-registry/internal/importer"
)

type importOutput struct {
	Command    string          `json:"command"`
	File       string          `json:"file"`
	Rows       int             `json:"rows"`
	DurationMS int64           `json:"duration_ms"`
	Result     importer.Result `json:"result"`
}

func newImportCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Add employees from a CSV or XLSX spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := importer.Read(f, args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			if concurrency <= 0 {
				concurrency = app.Config.ImportConcurrency
			}
			start := time.Now()
			res, err := importer.Run(cmd.Context(), app.Service, rows, importer.Options{
				Concurrency: concurrency,
				Logger:      app.Logger,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), importOutput{
				Command:    "import",
				File:       args[0],
				Rows:       len(rows),
				DurationMS: time.Since(start).Milliseconds(),
				Result:     res,
			})
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel adds (default IMPORT_CONCURRENCY)")
	return cmd
}
