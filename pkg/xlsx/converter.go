// Package xlsx writes result tables to Excel workbooks and reads rows back.
package xlsx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/dbgate/pkg/core/value"
)

const defaultSheet = "Sheet1"

// Built-in excelize number formats.
const (
	numFmtInteger = 1
	numFmtFloat   = 4
	numFmtText    = 49
)

// ToXLSX writes table to filePath.
//
// Headers read "column (kind)" so FromXLSX can restore the values; the kind
// of a column is the kind of its first non-NULL value.
//
// Example:
//
//	err := xlsx.ToXLSX(result, "output.xlsx", "Orders")
func ToXLSX(table *value.Table, filePath, sheetName string) error {
	if table == nil {
		return fmt.Errorf("no table to write")
	}
	if sheetName == "" {
		sheetName = defaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheetName != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	styles := newStyleCache(f)

	kinds := columnKinds(table)
	for col, name := range table.Columns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		header := name
		if kinds[col] != value.KindNull {
			header = fmt.Sprintf("%s (%s)", name, kinds[col])
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range table.Rows {
		for col, name := range table.Columns {
			v, ok := row.Get(name)
			if !ok || v.IsNull() {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err := f.SetCellValue(sheetName, cell, cellValue(v)); err != nil {
				return fmt.Errorf("row %d column %s: %w", rowIdx+1, name, err)
			}
			if style, ok := styles.forKind(v.Kind()); ok {
				_ = f.SetCellStyle(sheetName, cell, cell, style)
			}
		}
	}

	for col := range table.Columns {
		colName, _ := excelize.ColumnNumberToName(col + 1)
		_ = f.SetColWidth(sheetName, colName, colName, 15)
	}

	return f.SaveAs(filePath)
}

// FromXLSX reads the data rows of a sheet; an empty sheetName selects the
// first sheet. Headers of the form "column (kind)" convert cells to that
// kind, any other header keeps cells as text. Empty cells become NULL.
//
// Example:
//
//	rows, err := xlsx.FromXLSX("input.xlsx", "Orders")
func FromXLSX(filePath, sheetName string) ([]value.Row, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %q must have a header and at least one data row", sheetName)
	}

	names := make([]string, len(rows[0]))
	kinds := make([]value.Kind, len(rows[0]))
	for i, h := range rows[0] {
		names[i], kinds[i] = parseHeader(h)
	}

	out := make([]value.Row, 0, len(rows)-1)
	for rowIdx, cells := range rows[1:] {
		r := value.NewRow(len(names))
		for col, name := range names {
			if col >= len(cells) || cells[col] == "" {
				r.Set(name, value.Null())
				continue
			}
			v, err := fromCell(cells[col], kinds[col])
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", rowIdx+2, name, err)
			}
			r.Set(name, v)
		}
		out = append(out, r)
	}
	return out, nil
}

// parseHeader splits "name (kind)" into its parts.
func parseHeader(header string) (string, value.Kind) {
	header = strings.TrimSpace(header)
	if open := strings.LastIndex(header, " ("); open > 0 && strings.HasSuffix(header, ")") {
		if k, ok := value.ParseKind(header[open+2 : len(header)-1]); ok {
			return header[:open], k
		}
	}
	return header, value.KindText
}

func columnKinds(table *value.Table) []value.Kind {
	kinds := make([]value.Kind, len(table.Columns))
	for col, name := range table.Columns {
		for _, row := range table.Rows {
			if v, ok := row.Get(name); ok && !v.IsNull() {
				kinds[col] = v.Kind()
				break
			}
		}
	}
	return kinds
}

// cellValue returns the Go value excelize should store for v.
func cellValue(v value.Value) any {
	switch v.Kind() {
	case value.KindInt64, value.KindInt32, value.KindInt16:
		i, _ := v.Int()
		return i
	case value.KindFloat64:
		f, _ := v.Float()
		return f
	case value.KindBool:
		b, _ := v.BoolValue()
		if b {
			return "TRUE"
		}
		return "FALSE"
	default:
		return v.String()
	}
}

func fromCell(raw string, k value.Kind) (value.Value, error) {
	if k == value.KindBool {
		switch strings.ToUpper(raw) {
		case "TRUE", "1":
			return value.Bool(true), nil
		case "FALSE", "0":
			return value.Bool(false), nil
		}
	}
	if k.IsInteger() {
		// numeric cells edited in Excel may come back as "42.0"
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil && f == float64(int64(f)) {
				raw = strconv.FormatInt(int64(f), 10)
			}
		}
	}
	return value.Parse(raw, k)
}

type styleCache struct {
	f      *excelize.File
	styles map[int]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, styles: make(map[int]int)}
}

func (c *styleCache) forKind(k value.Kind) (int, bool) {
	var numFmt int
	switch {
	case k.IsInteger():
		numFmt = numFmtInteger
	case k == value.KindFloat64:
		numFmt = numFmtFloat
	case k == value.KindText:
		numFmt = numFmtText
	default:
		return 0, false
	}
	if id, ok := c.styles[numFmt]; ok {
		return id, true
	}
	id, err := c.f.NewStyle(&excelize.Style{NumFmt: numFmt})
	if err != nil {
		return 0, false
	}
	c.styles[numFmt] = id
	return id, true
}
