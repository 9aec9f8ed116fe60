package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"go-rail-employee-registry/internal/report"
)

func newExportCmd() *cobra.Command {
	var (
		output    string
		format    string
		bom       bool
		includeID bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every employee record as CSV or XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
			}
			if format == "" {
				format = "csv"
			}
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unsupported --format %q", format)
			}

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			recs, err := app.Service.Records(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			opts := report.ExportOptions{BOM: bom, IncludeID: includeID}
			if format == "xlsx" {
				return report.WriteXLSX(w, recs, opts)
			}
			return report.WriteCSV(w, recs, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")
	cmd.Flags().StringVar(&format, "format", "", "csv or xlsx (default from --output extension)")
	cmd.Flags().BoolVar(&bom, "bom", false, "Prefix CSV output with a UTF-8 byte order mark")
	cmd.Flags().BoolVar(&includeID, "include-id", false, "Add the document id as the first column")
	return cmd
}
