package main

import (
	"github.com/spf13/cobra"

	"go-rail-employee-registry/internal/dto"
	"go-rail-employee-registry/internal/report"
)

func newReportCmd() *cobra.Command {
	var (
		fields []string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print value counts for record fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			recs, err := app.Service.Records(cmd.Context())
			if err != nil {
				return err
			}

			out := make(map[string][]report.Count, len(fields))
			for _, f := range fields {
				if fd, ok := dto.LookupField(f); ok {
					f = fd.Label
				}
				out[f] = report.ValueCounts(recs, f, limit)
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"records": len(recs),
				"counts":  out,
			})
		},
	}

	cmd.Flags().StringSliceVar(&fields, "field", report.DefaultFields, "Fields to count (label or legacy column name)")
	cmd.Flags().IntVar(&limit, "limit", report.DefaultLimit, "Values per field (0 for all)")
	return cmd
}
