package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ruslano69/dbgate/cmd/dbgate/commands"
	"github.com/ruslano69/dbgate/pkg/adapters"
	_ "github.com/ruslano69/dbgate/pkg/adapters/mssql"
	_ "github.com/ruslano69/dbgate/pkg/adapters/mysql"
	_ "github.com/ruslano69/dbgate/pkg/adapters/postgres"
	"github.com/ruslano69/dbgate/pkg/config"
	"github.com/ruslano69/dbgate/pkg/metrics"
	"github.com/ruslano69/dbgate/pkg/security"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, err := ParseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	switch {
	case *flags.Version:
		PrintVersion(stdout)
		return 0
	case *flags.Help:
		PrintHelp(stdout)
		return 0
	case *flags.InitConfig != "":
		return report(stderr, createConfigTemplate(stdout, *flags.InitConfig, *flags.Output))
	case *flags.Providers:
		for _, p := range adapters.GetRegisteredProviders() {
			fmt.Fprintln(stdout, p)
		}
		return 0
	}

	cmd, ok := selectCommand(flags)
	if !ok {
		PrintUsage(stderr)
		return 2
	}

	cfg, err := config.Load(*flags.Config)
	if err != nil {
		return report(stderr, fmt.Errorf("failed to load config: %w", err))
	}
	if *flags.Verbose {
		cfg.Logging.Level = "debug"
	}
	logger := config.NewLogger(cfg.Logging, stderr)

	var observers adapters.Observers
	if cfg.Metrics.Enabled {
		rec, shutdown, err := serveMetrics(cfg.Metrics.Listen, logger)
		if err != nil {
			return report(stderr, err)
		}
		defer shutdown()
		observers = append(observers, rec)
	}
	if cfg.Audit.Enabled {
		trail, err := cfg.Audit.OpenAudit(ctx, logger)
		if err != nil {
			return report(stderr, fmt.Errorf("failed to open audit trail: %w", err))
		}
		defer trail.Close()
		observers = append(observers, trail)
	}

	var observer adapters.Observer
	if len(observers) > 0 {
		observer = observers
	}
	deps, err := cfg.Deps(&logger, observer)
	if err != nil {
		return report(stderr, err)
	}

	backend, err := adapters.Bind(cfg.Database.Provider, deps)
	if err != nil {
		return report(stderr, err)
	}
	defer backend.Close()

	logger.Debug().Str("provider", string(backend.Provider)).Str("command", cmd).Msg("running")

	result, err := dispatch(ctx, cmd, flags, backend)
	if err != nil {
		return report(stderr, err)
	}
	return report(stderr, writeResult(stdout, result, flags))
}

// selectCommand returns the single command named on the command line.
func selectCommand(f *Flags) (string, bool) {
	var named []string
	add := func(set bool, name string) {
		if set {
			named = append(named, name)
		}
	}
	add(*f.Rows != "", "rows")
	add(*f.Get != "", "get")
	add(*f.Create != "", "create")
	add(*f.Update != "", "update")
	add(*f.Delete != "", "delete")
	add(*f.PasswordHash != "", "password-hash")
	add(*f.Query, "query")
	add(*f.Validate, "validate")
	add(*f.Procedure != "", "procedure")
	add(*f.FindTable != "", "find-schema")
	add(*f.Describe != "", "describe")
	add(*f.Structure, "structure")

	if len(named) != 1 {
		return strings.Join(named, ","), false
	}
	return named[0], true
}

func dispatch(ctx context.Context, cmd string, f *Flags, b *adapters.Backend) (any, error) {
	tableOpts := commands.TableOptions{
		Schema:         *f.Schema,
		Limit:          *f.Limit,
		KeyColumn:      *f.Key,
		KeyValue:       *f.Value,
		EncryptFields:  *f.Encrypt,
		UserColumn:     *f.UserColumn,
		PasswordColumn: *f.PasswordColumn,
		User:           *f.User,
	}

	switch cmd {
	case "rows":
		tableOpts.Table = *f.Rows
		return commands.ObtainRows(ctx, b.Tables, tableOpts)
	case "get":
		tableOpts.Table = *f.Get
		return commands.ObtainByKey(ctx, b.Tables, tableOpts)
	case "create", "update":
		tableOpts.Table = *f.Create
		if cmd == "update" {
			tableOpts.Table = *f.Update
		}
		rows, err := commands.LoadRows(*f.Data, *f.FromXLSX, *f.Sheet)
		if err != nil {
			return nil, err
		}
		tableOpts.Rows = rows
		if cmd == "update" {
			return commands.Update(ctx, b.Tables, tableOpts)
		}
		return commands.Create(ctx, b.Tables, tableOpts)
	case "delete":
		tableOpts.Table = *f.Delete
		return commands.Delete(ctx, b.Tables, tableOpts)
	case "password-hash":
		tableOpts.Table = *f.PasswordHash
		return commands.PasswordHash(ctx, b.Tables, tableOpts)
	}

	params, err := commands.ParseParams(*f.Params)
	if err != nil {
		return nil, err
	}
	queryOpts := commands.QueryOptions{
		Params:        params,
		MaxRows:       *f.MaxRows,
		Schema:        *f.Schema,
		DefaultSchema: *f.Schema,
		Database:      *f.Database,
	}

	switch cmd {
	case "query", "validate":
		sqlText, err := commands.ReadSQL(*f.SQL, *f.SQLFile)
		if err != nil {
			return nil, err
		}
		queryOpts.SQL = sqlText
		if cmd == "validate" {
			return commands.ValidateQuery(ctx, b.Queries, queryOpts)
		}
		return commands.ExecuteQuery(ctx, b.Queries, security.NewQueryGuard(*f.ReadOnly), queryOpts)
	case "procedure":
		queryOpts.Procedure = *f.Procedure
		return commands.ExecuteProcedure(ctx, b.Queries, queryOpts)
	case "find-schema":
		queryOpts.Table = *f.FindTable
		return commands.FindSchema(ctx, b.Queries, queryOpts)
	case "describe":
		queryOpts.Table = *f.Describe
		return commands.DescribeTable(ctx, b.Queries, queryOpts)
	case "structure":
		return commands.DatabaseStructure(ctx, b.Queries, queryOpts)
	}
	return nil, fmt.Errorf("unknown command %q", cmd)
}

// writeResult renders to --output when set, stdout otherwise. XLSX always
// goes to --output.
func writeResult(stdout io.Writer, result any, f *Flags) error {
	opts := commands.OutputOptions{Format: *f.Format, File: *f.Output, Sheet: *f.Sheet}
	if opts.Format == commands.FormatXLSX || *f.Output == "" {
		return commands.Render(stdout, result, opts)
	}

	file, err := os.Create(*f.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := commands.Render(file, result, opts); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// serveMetrics exposes the recorder on listen until shutdown is called.
func serveMetrics(listen string, logger zerolog.Logger) (*metrics.Recorder, func(), error) {
	rec, err := metrics.NewRecorder(prometheus.NewRegistry())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	srv := &http.Server{Addr: listen, Handler: metricsRouter(rec), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Str("listen", listen).Msg("metrics endpoint stopped")
		}
	}()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return rec, shutdown, nil
}

func metricsRouter(rec *metrics.Recorder) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/metrics", rec.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "ok\n")
	})
	return r
}

// createConfigTemplate writes a sample configuration file.
func createConfigTemplate(stdout io.Writer, provider, output string) error {
	if output == "" {
		output = "dbgate.yaml"
	}
	if err := config.Save(output, config.Sample(provider)); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Created sample %s config: %s\n", provider, output)
	fmt.Fprintln(stdout, "Edit the file with your database credentials and run:")
	fmt.Fprintf(stdout, "  dbgate --config %s --describe <table>\n", output)
	return nil
}

// report prints err and maps it to an exit code.
func report(stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	if errors.Is(err, adapters.ErrInvalidInput) {
		return 2
	}
	return 1
}
