package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ruslano69/dbgate/pkg/core/value"
	"github.com/ruslano69/dbgate/pkg/xlsx"
)

// ParseParams reads a flat JSON object of query or procedure parameters.
// Keys may carry the '@' prefix or not.
func ParseParams(text string) (map[string]value.Value, error) {
	params := make(map[string]value.Value)
	if strings.TrimSpace(text) == "" {
		return params, nil
	}
	row, err := ParseRow(text)
	if err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	for i := 0; i < row.Len(); i++ {
		name, v := row.At(i)
		params[name] = v
	}
	return params, nil
}

// ParseRow reads a flat JSON object into a row, keeping key order.
func ParseRow(text string) (value.Row, error) {
	var row value.Row
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	if err := dec.Decode(&row); err != nil {
		return value.Row{}, err
	}
	return row, nil
}

// LoadRows returns the rows to insert: the JSON object in data, or every
// data row of the XLSX sheet when xlsxFile is set.
func LoadRows(data, xlsxFile, sheet string) ([]value.Row, error) {
	if xlsxFile != "" {
		return xlsx.FromXLSX(xlsxFile, sheet)
	}
	if strings.TrimSpace(data) == "" {
		return nil, fmt.Errorf("--data or --from-xlsx is required")
	}
	row, err := ParseRow(data)
	if err != nil {
		return nil, fmt.Errorf("invalid --data: %w", err)
	}
	return []value.Row{row}, nil
}

// ReadSQL returns inline SQL, or the contents of file when set.
func ReadSQL(inline, file string) (string, error) {
	if file == "" {
		return inline, nil
	}
	if inline != "" {
		return "", fmt.Errorf("use either inline SQL or --sql-file, not both")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read SQL file: %w", err)
	}
	return string(data), nil
}
