// Package importer loads employee rows from CSV or XLSX spreadsheets and adds
// them through the registry.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"go-rail-employee-registry/internal/dto"
)

// Row is one spreadsheet line keyed by label. Line is 1-based and counts the
// header.
type Row struct {
	Line   int
	Fields map[string]any
}

var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Read picks the reader by file extension.
func Read(r io.Reader, filename string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	case ".csv", ".txt":
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(filename))
	}
}

func ReadCSV(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	return toRows(records, false)
}

func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("no worksheet found")
	}
	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %s", sheet)
	}
	return toRows(records, true)
}

func toRows(records [][]string, serialDates bool) ([]Row, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("worksheet is empty")
	}

	header := make([]string, len(records[0]))
	kinds := make([]dto.FieldKind, len(records[0]))
	for i, h := range records[0] {
		if f, ok := dto.LookupField(h); ok {
			header[i] = f.Label
			kinds[i] = f.Kind
			continue
		}
		header[i] = h
		kinds[i] = dto.KindText
	}

	rows := make([]Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		fields := make(map[string]any, len(header))
		blank := true
		for i, h := range header {
			cell := ""
			if i < len(rec) {
				cell = rec[i]
			}
			if strings.TrimSpace(cell) != "" {
				blank = false
			}
			fields[h] = convert(cell, kinds[i], serialDates)
		}
		if blank {
			continue
		}
		rows = append(rows, Row{Line: n + 2, Fields: fields})
	}
	return rows, nil
}

func convert(cell string, kind dto.FieldKind, serialDates bool) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return s
	}
	switch kind {
	case dto.KindDate:
		if t, ok := parseDate(s, serialDates); ok {
			return t
		}
	case dto.KindPay:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

func parseDate(s string, serial bool) (time.Time, bool) {
	if serial {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v >= 1 && v <= 80000 {
			if t, err := excelize.ExcelDateToTime(v, false); err == nil {
				return t, true
			}
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
