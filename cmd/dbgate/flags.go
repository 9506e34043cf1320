package main

import (
	"flag"
	"fmt"
	"io"
)

// Flags holds all command-line flags
type Flags struct {
	// Table commands
	Rows         *string
	Get          *string
	Create       *string
	Update       *string
	Delete       *string
	PasswordHash *string

	// Query commands
	Query     *bool
	Validate  *bool
	Procedure *string
	FindTable *string
	Describe  *string
	Structure *bool
	Providers *bool

	// Arguments
	Schema         *string
	Limit          *int
	Key            *string
	Value          *string
	Data           *string
	FromXLSX       *string
	Encrypt        *string
	UserColumn     *string
	PasswordColumn *string
	User           *string
	Params         *string
	SQL            *string
	SQLFile        *string
	MaxRows        *int
	ReadOnly       *bool
	Database       *string

	// Output
	Format *string
	Output *string
	Sheet  *string

	// Options
	Config     *string
	InitConfig *string
	Verbose    *bool

	// Misc
	Version *bool
	Help    *bool
}

// ParseFlags defines and parses all command-line flags from args.
func ParseFlags(args []string, stderr io.Writer) (*Flags, error) {
	fs := flag.NewFlagSet("dbgate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &Flags{}

	// Table commands
	f.Rows = fs.String("rows", "", "List rows of a table (table name)")
	f.Get = fs.String("get", "", "List rows of a table matching --key/--value (table name)")
	f.Create = fs.String("create", "", "Insert --data or every row of --from-xlsx (table name)")
	f.Update = fs.String("update", "", "Set --data on rows matching --key/--value (table name)")
	f.Delete = fs.String("delete", "", "Delete rows matching --key/--value (table name)")
	f.PasswordHash = fs.String("password-hash", "", "Read the stored password hash of --user (table name)")

	// Query commands
	f.Query = fs.Bool("query", false, "Run the ad-hoc SQL of --sql or --sql-file with named @parameters")
	f.Validate = fs.Bool("validate", false, "Check the SQL of --sql or --sql-file without running it")
	f.Procedure = fs.String("procedure", "", "Call a stored procedure or function (routine name)")
	f.FindTable = fs.String("find-schema", "", "Find the schema that owns a table (table name)")
	f.Describe = fs.String("describe", "", "Describe the columns of a table (table name)")
	f.Structure = fs.Bool("structure", false, "List every column of every user table")
	f.Providers = fs.Bool("providers", false, "List the backends linked into this binary")

	// Arguments
	f.Schema = fs.String("schema", "", "Schema of the table, or default schema for --find-schema and --query")
	f.Limit = fs.Int("limit", 0, "Row limit for --rows (default 1000)")
	f.Key = fs.String("key", "", "Key column for --get, --update and --delete")
	f.Value = fs.String("value", "", "Key value for --get, --update and --delete")
	f.Data = fs.String("data", "", "Row as a JSON object for --create and --update")
	f.FromXLSX = fs.String("from-xlsx", "", "XLSX file whose rows --create inserts")
	f.Encrypt = fs.String("encrypt", "", "Comma-separated columns stored as bcrypt hashes")
	f.UserColumn = fs.String("user-column", "", "User column for --password-hash")
	f.PasswordColumn = fs.String("password-column", "", "Hash column for --password-hash")
	f.User = fs.String("user", "", "User value for --password-hash")
	f.Params = fs.String("params", "", "Parameters as a JSON object for --query, --validate and --procedure")
	f.SQL = fs.String("sql", "", "SQL text for --query and --validate")
	f.SQLFile = fs.String("sql-file", "", "Read the SQL of --query or --validate from a file")
	f.MaxRows = fs.Int("max-rows", 0, "Row cap for --query (default 10000)")
	f.ReadOnly = fs.Bool("read-only", false, "Reject --query statements that could modify data")
	f.Database = fs.String("database", "", "Database name for --structure (default: current)")

	// Output
	f.Format = fs.String("format", "text", "Output format: text, json, yaml, xlsx")
	f.Output = fs.String("output", "", "Output file (required for xlsx, default stdout otherwise)")
	f.Sheet = fs.String("sheet", "Sheet1", "Excel sheet name for XLSX input and output")

	// Options
	f.Config = fs.String("config", "", "Configuration file path (DBGATE_* variables override it)")
	f.InitConfig = fs.String("init-config", "", "Write a sample config for sqlserver, postgres or mysql to --output")
	f.Verbose = fs.Bool("verbose", false, "Log at debug level")

	// Misc
	f.Version = fs.Bool("version", false, "Show version information")
	f.Help = fs.Bool("help", false, "Show detailed help with examples")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return nil, fmt.Errorf("unexpected arguments %q (SQL goes in --sql)", rest)
	}
	return f, nil
}
