// Command surveyquery runs the canonical survey queries against a chosen
// backend, optionally cross-checking every backend for identical results,
// exporting rendered artifacts, and serving metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"surveycore/internal/core"
	blobfs "surveycore/internal/infra/blob/fs"
	"surveycore/internal/infra/query/memory"
	"surveycore/internal/infra/query/postgres"
	"surveycore/internal/infra/query/sqlite"
	"surveycore/internal/report"
	"surveycore/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	engine  string
	db      string
	dsn     string
	query   string
	format  string
	verify  bool
	export  string
	metrics string
	audit   bool
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("surveyquery", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.engine, "engine", "memory", "query engine: memory, sqlite or postgres")
	fs.StringVar(&opts.db, "db", "", "sqlite database path (default in-memory)")
	fs.StringVar(&opts.dsn, "dsn", "", "postgres connection string (default $"+postgres.EnvDSN+")")
	fs.StringVar(&opts.query, "query", "all", "query to run: visits, readings, maxima or all")
	fs.StringVar(&opts.format, "format", "table", "output format: table, csv, json or markdown")
	fs.BoolVar(&opts.verify, "verify", false, "cross-check engines for byte-identical results")
	fs.StringVar(&opts.export, "export", "", "write rendered artifacts under this directory")
	fs.StringVar(&opts.metrics, "metrics", "", "serve prometheus and expvar metrics on this address")
	fs.BoolVar(&opts.audit, "audit", false, "write per-query audit entries to stderr as JSON lines")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := run(context.Background(), opts, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "surveyquery: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	queries, err := selectQueries(opts.query)
	if err != nil {
		return err
	}

	engine, err := openEngine(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	serviceOpts, shutdownMetrics, err := observability(opts, stderr)
	if err != nil {
		return err
	}
	defer shutdownMetrics()

	if opts.verify {
		if err := verifyEngines(ctx, opts, engine, stdout, stderr); err != nil {
			return err
		}
	}

	service := core.NewService(engine, serviceOpts...)
	results, err := runQueries(ctx, service, queries)
	if err != nil {
		return err
	}

	for _, query := range queries {
		if len(queries) > 1 {
			fmt.Fprintf(stdout, "== %s\n", query)
		}
		if err := render(stdout, query, results, opts.format); err != nil {
			return err
		}
	}

	if opts.export != "" {
		return exportArtifacts(ctx, opts.export, engine, queries, stdout)
	}
	return nil
}

func selectQueries(name string) ([]domain.Query, error) {
	if name == "all" || name == "" {
		return domain.AllQueries(), nil
	}
	query := domain.Query(name)
	if !query.Valid() {
		return nil, fmt.Errorf("unknown query %q", name)
	}
	return []domain.Query{query}, nil
}

func openEngine(ctx context.Context, opts options) (domain.Engine, error) {
	switch opts.engine {
	case "memory":
		return memory.NewCanonical(), nil
	case "sqlite":
		return sqlite.New(opts.db, domain.CanonicalDataset())
	case "postgres":
		return postgres.New(ctx, opts.dsn, domain.CanonicalDataset())
	default:
		return nil, fmt.Errorf("unknown engine %q", opts.engine)
	}
}

// observability wires the optional metrics endpoint and audit sink into
// service options, returning a shutdown func for the metrics server.
func observability(opts options, stderr io.Writer) ([]core.ServiceOption, func(), error) {
	var serviceOpts []core.ServiceOption
	shutdown := func() {}

	if opts.audit {
		serviceOpts = append(serviceOpts, core.WithAudit(jsonAudit{out: stderr}))
	}
	if opts.metrics == "" {
		return serviceOpts, shutdown, nil
	}

	reg := prometheus.NewRegistry()
	recorder, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("register metrics: %w", err)
	}
	serviceOpts = append(serviceOpts, core.WithMetrics(recorder))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	srv := &http.Server{Addr: opts.metrics, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(stderr, "surveyquery: metrics server: %v\n", err)
		}
	}()
	shutdown = func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return serviceOpts, shutdown, nil
}

// jsonAudit writes audit entries as JSON lines.
type jsonAudit struct {
	out io.Writer
}

func (a jsonAudit) Record(_ context.Context, entry core.AuditEntry) {
	if data, err := json.Marshal(entry); err == nil {
		fmt.Fprintln(a.out, string(data))
	}
}

// verifyEngines cross-checks every reachable backend against the in-memory
// reference. Postgres joins the comparison only when it is the selected
// engine; the embedded backends are always compared.
func verifyEngines(ctx context.Context, opts options, selected domain.Engine, stdout, stderr io.Writer) error {
	baseline := memory.NewCanonical()
	var others []domain.Engine

	sqliteEngine, err := sqlite.New(opts.db, domain.CanonicalDataset())
	if err != nil {
		return fmt.Errorf("verify: open sqlite: %w", err)
	}
	defer func() { _ = sqliteEngine.Close() }()
	others = append(others, sqliteEngine)

	if opts.engine == "postgres" {
		others = append(others, selected)
	} else if opts.dsn != "" || os.Getenv(postgres.EnvDSN) != "" {
		pg, err := postgres.New(ctx, opts.dsn, domain.CanonicalDataset())
		if err != nil {
			fmt.Fprintf(stderr, "surveyquery: skipping postgres verification: %v\n", err)
		} else {
			defer func() { _ = pg.Close() }()
			others = append(others, pg)
		}
	}

	divergences, err := core.NewVerifier(baseline, others...).Verify(ctx)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if len(divergences) > 0 {
		for _, d := range divergences {
			fmt.Fprintln(stderr, d.String())
		}
		return fmt.Errorf("verify: %d divergence(s) between engines", len(divergences))
	}
	fmt.Fprintf(stdout, "verified: %d engine(s) agree with %s\n", len(others), baseline.Name())
	return nil
}

func runQueries(ctx context.Context, service *core.Service, queries []domain.Query) (domain.Results, error) {
	var results domain.Results
	for _, query := range queries {
		var err error
		switch query {
		case domain.QueryVisits:
			results.VisitCounts, _, err = service.VisitCounts(ctx)
		case domain.QueryReadings:
			results.ReadingCounts, _, err = service.ReadingCounts(ctx)
		case domain.QueryMaxima:
			results.MaxReadings, _, err = service.MaxReadings(ctx)
		}
		if err != nil {
			return domain.Results{}, fmt.Errorf("%s: %w", query, err)
		}
	}
	return results, nil
}

func render(out io.Writer, query domain.Query, results domain.Results, format string) error {
	switch format {
	case "table", "":
		headers, rows, err := report.Table(query, results)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		for _, row := range rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	case "csv", "json", "markdown":
		payload, err := report.RenderQuery(query, results, report.Format(format))
		if err != nil {
			return err
		}
		_, err = out.Write(payload)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// exportArtifacts renders every requested query in every format and stores
// the artifacts under root through the report worker.
func exportArtifacts(ctx context.Context, root string, engine domain.Engine, queries []domain.Query, stdout io.Writer) error {
	store, err := blobfs.New(root)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	worker := report.NewWorker(report.EngineSet{engine.Name(): engine}, store, nil)
	worker.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = worker.Stop(stopCtx)
	}()

	record, err := worker.Enqueue(ctx, report.ExportInput{
		Engine:  engine.Name(),
		Queries: queries,
		Formats: report.AllFormats(),
	})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		current, ok := worker.Get(record.ID)
		if !ok {
			return fmt.Errorf("export %s disappeared", record.ID)
		}
		switch current.Status {
		case report.ExportStatusSucceeded:
			for _, artifact := range current.Artifacts {
				fmt.Fprintf(stdout, "exported %s (%d bytes)\n", artifact.Key, artifact.SizeBytes)
			}
			return nil
		case report.ExportStatusFailed:
			return fmt.Errorf("export failed: %s", current.Error)
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("export %s timed out", record.ID)
}
