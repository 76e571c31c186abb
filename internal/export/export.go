// Package export writes a table view to CSV or Excel.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/evdash-cli/internal/dataset"
	"github.com/xuri/excelize/v2"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx", ignoring case and a leading dot.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want csv or xlsx)", s)
}

// ContentType is the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Write exports records in format f.
func Write(w io.Writer, f Format, records []*dataset.VehicleRecord) error {
	if f == FormatXLSX {
		return WriteXLSX(w, records, "")
	}
	return WriteCSV(w, records)
}

// WriteCSV writes a header of column names and one line per record. VINs
// are written in full.
func WriteCSV(w io.Writer, records []*dataset.VehicleRecord) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(dataset.Columns))
	for i, c := range dataset.Columns {
		header[i] = c.Name()
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(dataset.Columns))
	for n, r := range records {
		for i, c := range dataset.Columns {
			row[i] = r.String(c)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", n+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes records to a single-sheet workbook with a bold header.
// Numeric columns are stored as numbers; text, including postal codes, as strings.
func WriteXLSX(w io.Writer, records []*dataset.VehicleRecord, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Vehicles"
	}
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, c := range dataset.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, c.Label()); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for n, r := range records {
		for i, c := range dataset.Columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, n+2)
			v := r.Field(c)
			var err error
			switch v.Kind {
			case dataset.KindNull:
				continue
			case dataset.KindNumber:
				err = f.SetCellFloat(sheet, cell, v.Num, -1, 64)
			default:
				err = f.SetCellStr(sheet, cell, v.String())
			}
			if err != nil {
				return fmt.Errorf("write row %d: %w", n+1, err)
			}
		}
	}

	first, _ := excelize.ColumnNumberToName(1)
	last, _ := excelize.ColumnNumberToName(len(dataset.Columns))
	_ = f.SetColWidth(sheet, first, last, 15)
	if len(records) > 0 {
		_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
