package main

import (
	"fmt"
	"io"
)

const version = "1.0.0"

// PrintVersion prints version information
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "dbgate version %s\n", version)
	fmt.Fprintln(w, "Tabular data access for SQL Server, PostgreSQL and MySQL")
}

// PrintUsage prints the one-line usage reminder
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: dbgate [--config file] <one command> [options]")
	fmt.Fprintln(w, "Run 'dbgate --help' for the list of commands.")
}

// PrintHelp prints comprehensive help information
func PrintHelp(w io.Writer) {
	p := func(s string) { fmt.Fprintln(w, s) }

	p("dbgate - database-agnostic table and query access")
	fmt.Fprintf(w, "Version: %s\n\n", version)

	p("USAGE:")
	p("  dbgate [--config file] <command> [options]")
	p("")

	p("TABLE COMMANDS:")
	p("  --rows <table>             List rows (--limit, default 1000)")
	p("  --get <table>              Rows where --key equals --value")
	p("  --create <table>           Insert --data '{...}' or every row of --from-xlsx")
	p("  --update <table>           Set --data on rows where --key equals --value")
	p("  --delete <table>           Delete rows where --key equals --value")
	p("  --password-hash <table>    Stored hash for --user via --user-column/--password-column")
	p("")

	p("QUERY COMMANDS:")
	p("  --query                    Run --sql/--sql-file with --params '{...}'")
	p("  --validate                 Check --sql/--sql-file without running it")
	p("  --procedure <name>         Call a stored routine with --params '{...}'")
	p("  --find-schema <table>      Schema owning the table, preferring --schema")
	p("  --describe <table>         Column metadata")
	p("  --structure                Every column of every user table (--database)")
	p("  --providers                Backends linked into this binary")
	p("")

	p("OPTIONS:")
	p("  --config <file>            YAML configuration; DBGATE_SECTION__KEY variables override it")
	p("  --schema <name>            Table schema (search_path for PostgreSQL --query)")
	p("  --encrypt <cols>           Comma-separated columns stored as bcrypt hashes")
	p("  --max-rows <n>             Row cap for --query (default 10000)")
	p("  --read-only                Only allow a single SELECT/WITH statement in --query")
	p("  --format <fmt>             text, json, yaml or xlsx (default text)")
	p("  --output <file>            Write the result to a file (required for xlsx)")
	p("  --sheet <name>             Excel sheet (default Sheet1)")
	p("  --verbose                  Debug logging")
	p("  --init-config <provider>   Write a sample config (sqlserver, postgres, mysql)")
	p("  --version, --help")
	p("")

	p("CONFIG SECTIONS:")
	p("  database, timeouts, logging, security (forbidden_tables, bcrypt_cost)")
	p("  metrics (enabled, listen)         Prometheus endpoint at /metrics")
	p("  audit (enabled, file, level, ...) Per-call trail; redis and broker (kafka, rabbitmq) sinks")
	p("")

	p("EXAMPLES:")
	p("  dbgate --init-config postgres --output pg.yaml")
	p("  dbgate --config pg.yaml --rows users --limit 20")
	p("  dbgate --config pg.yaml --get events --key created_at --value 2025-02-01")
	p("  dbgate --config pg.yaml --create users --data '{\"name\":\"Ana\",\"password\":\"s3cret\"}' --encrypt password")
	p("  dbgate --config pg.yaml --query --sql 'SELECT * FROM users WHERE id = @id' --params '{\"id\":7}' --format json")
	p("  dbgate --config pg.yaml --procedure add_user --params '{\"p_name\":\"Ana\"}'")
	p("  dbgate --config pg.yaml --structure --format xlsx --output schema.xlsx")
}
