package report

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"go-rail-employee-registry/internal/dto"
)

const SheetName = "Employees"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type ExportOptions struct {
	// BOM prefixes CSV output with a UTF-8 byte order mark so spreadsheet
	// tools detect the encoding of Hindi columns.
	BOM bool
	// IncludeID adds the document id as the first column.
	IncludeID bool
}

func header(opts ExportOptions) []string {
	labels := dto.Labels()
	if !opts.IncludeID {
		return labels
	}
	return append([]string{dto.DocIDKey}, labels...)
}

// WriteCSV writes one row per record under the recognized label header.
// Absent and null values are written as empty cells.
func WriteCSV(w io.Writer, recs []dto.Record, opts ExportOptions) error {
	if opts.BOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return errors.Wrap(err, "write bom")
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header(opts)); err != nil {
		return errors.Wrap(err, "write header")
	}
	labels := dto.Labels()
	for _, r := range recs {
		row := make([]string, 0, len(labels)+1)
		if opts.IncludeID {
			row = append(row, r.ID)
		}
		for _, l := range labels {
			row = append(row, r.Text(l))
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write record %s", r.ID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// WriteXLSX writes the same table as WriteCSV into a single worksheet.
// Numeric values keep their numeric cell type.
func WriteXLSX(w io.Writer, recs []dto.Record, opts ExportOptions) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.Wrap(err, "name sheet")
	}

	hdr := header(opts)
	row := make([]any, len(hdr))
	for i, h := range hdr {
		row[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &row); err != nil {
		return errors.Wrap(err, "write header")
	}

	labels := dto.Labels()
	for i, r := range recs {
		cells := make([]any, 0, len(hdr))
		if opts.IncludeID {
			cells = append(cells, r.ID)
		}
		for _, l := range labels {
			cells = append(cells, cellValue(r, l))
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, axis, &cells); err != nil {
			return errors.Wrapf(err, "write record %s", r.ID)
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

func cellValue(r dto.Record, label string) any {
	v, ok := r.Get(label)
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64, float32, int, int64, int32:
		return n
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return dto.FormatValue(v)
}
