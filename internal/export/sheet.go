// Package export renders tabular views as JSON-friendly sheets and xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// Sheet is one tabular view. Every row has a value for each column; numeric
// columns always hold float64 or int values.
type Sheet struct {
	Name    string                   `json:"name"`
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

func NewSheet(name string, columns ...string) *Sheet {
	return &Sheet{Name: name, Columns: columns, Rows: []map[string]interface{}{}}
}

// AddRow appends values in column order.
func (s *Sheet) AddRow(values ...interface{}) {
	row := make(map[string]interface{}, len(s.Columns))
	for i, col := range s.Columns {
		if i < len(values) {
			row[col] = values[i]
		} else {
			row[col] = nil
		}
	}
	s.Rows = append(s.Rows, row)
}

const dateLayout = "2006-01-02"

func cellValue(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(dateLayout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(dateLayout)
	case nil:
		return ""
	}
	return v
}

// WriteXLSX renders sheets into a single workbook, one worksheet per sheet.
func WriteXLSX(sheets ...*Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for i, sheet := range sheets {
		index, err := f.NewSheet(sheet.Name)
		if err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet.Name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}

		for c, col := range sheet.Columns {
			cell, _ := excelize.CoordinatesToCellName(c+1, 1)
			_ = f.SetCellValue(sheet.Name, cell, col)
		}
		for r, row := range sheet.Rows {
			for c, col := range sheet.Columns {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				_ = f.SetCellValue(sheet.Name, cell, cellValue(row[col]))
			}
		}

		if n := len(sheet.Columns); n > 0 {
			last, _ := excelize.ColumnNumberToName(n)
			_ = f.SetColWidth(sheet.Name, "A", last, 18)
			_ = f.SetCellStyle(sheet.Name, "A1", last+"1", header)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
