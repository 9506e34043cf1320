package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/dbgate/pkg/adapters"
	"github.com/ruslano69/dbgate/pkg/core/value"
	"github.com/ruslano69/dbgate/pkg/xlsx"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatXLSX = "xlsx"
)

// OutputOptions selects how a command result is rendered.
type OutputOptions struct {
	Format string
	// File receives XLSX output; required for that format
	File  string
	Sheet string
}

// Render writes result to w in the requested format.
func Render(w io.Writer, result any, opts OutputOptions) error {
	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		return renderText(w, result)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	case FormatXLSX:
		return renderXLSX(w, result, opts)
	default:
		return fmt.Errorf("unknown output format %q (use text, json, yaml or xlsx)", opts.Format)
	}
}

func renderXLSX(w io.Writer, result any, opts OutputOptions) error {
	if opts.File == "" {
		return fmt.Errorf("xlsx output needs --output <file>")
	}
	var table *value.Table
	switch r := result.(type) {
	case *value.Table:
		table = r
	case []adapters.ColumnMetadata:
		table = columnsTable(r)
	default:
		return fmt.Errorf("xlsx output is only available for tabular results")
	}
	if err := xlsx.ToXLSX(table, opts.File, opts.Sheet); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.File, err)
	}
	fmt.Fprintf(w, "Wrote %d row(s) to %s\n", table.Len(), opts.File)
	return nil
}

func renderText(w io.Writer, result any) error {
	switch r := result.(type) {
	case *value.Table:
		return writeGrid(w, r)
	case []adapters.ColumnMetadata:
		return writeGrid(w, columnsTable(r))
	case adapters.ValidationResult:
		if r.Valid {
			_, err := fmt.Fprintln(w, "valid")
			return err
		}
		_, err := fmt.Fprintf(w, "invalid: %s\n", r.Message)
		return err
	case *Count:
		_, err := fmt.Fprintf(w, "%s %s: %d row(s)\n", r.Operation, r.Table, r.Affected)
		return err
	case *SchemaResult:
		if !r.Found {
			_, err := fmt.Fprintf(w, "%s: not found\n", r.Table)
			return err
		}
		_, err := fmt.Fprintf(w, "%s: %s\n", r.Table, *r.Schema)
		return err
	case *HashResult:
		if !r.Found {
			_, err := fmt.Fprintf(w, "%s: no hash\n", r.User)
			return err
		}
		_, err := fmt.Fprintln(w, *r.Hash)
		return err
	default:
		return Render(w, result, OutputOptions{Format: FormatYAML})
	}
}

// writeGrid prints a table with aligned columns; NULL prints as NULL.
func writeGrid(w io.Writer, t *value.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			v, ok := row.Get(c)
			switch {
			case !ok || v.IsNull():
				cells[i] = "NULL"
			default:
				cells[i] = strings.ReplaceAll(v.String(), "\n", " ")
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%d row(s))\n", t.Len())
	return err
}

func columnsTable(cols []adapters.ColumnMetadata) *value.Table {
	t := value.NewTable("name", "native_type", "nullable", "is_primary_key", "is_identity", "max_length", "default")
	for _, c := range cols {
		maxLen, def := value.Null(), value.Null()
		if c.MaxLength != nil {
			maxLen = value.Int64(*c.MaxLength)
		}
		if c.Default != nil {
			def = value.Text(*c.Default)
		}
		t.Append(value.RowOf(
			value.P("name", value.Text(c.Name)),
			value.P("native_type", value.Text(c.NativeType)),
			value.P("nullable", value.Bool(c.Nullable)),
			value.P("is_primary_key", value.Bool(c.IsPrimaryKey)),
			value.P("is_identity", value.Bool(c.IsIdentity)),
			value.P("max_length", maxLen),
			value.P("default", def),
		))
	}
	return t
}
