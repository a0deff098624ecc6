// Command report prints or exports a single sales report without starting
// the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/config"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/export"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/logger"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/report"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/service"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/store"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/store/memory"
	pgstore "github.com/Hadesalive/Remvin-Ent-sub000/internal/store/postgres"
)

var errUnknownFormat = errors.New("unknown format")

type options struct {
	rangeKind string
	format    string
	out       string
	limit     int
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.rangeKind, "range", "month", "date range: today, week, month, quarter or year")
	fs.StringVar(&opts.format, "format", "json", "output format: json, csv, html or xlsx")
	fs.StringVar(&opts.out, "out", "", "output file (default stdout)")
	fs.IntVar(&opts.limit, "limit", 0, "top-N size for product and customer rankings")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.format = strings.ToLower(strings.TrimSpace(opts.format))
	switch opts.format {
	case "json", "csv", "html", "xlsx":
	default:
		return options{}, fmt.Errorf("%w %q", errUnknownFormat, opts.format)
	}
	if opts.format == "xlsx" && opts.out == "" {
		return options{}, errors.New("xlsx output needs -out")
	}
	return opts, nil
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain returns the process exit code so deferred cleanup always runs.
func realMain(args []string) int {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		return 2
	}

	cfg := config.Load()
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Production: cfg.IsProduction(), File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("repository unavailable")
		return 1
	}
	defer closeRepo()

	err = writeOutput(opts.out, os.Stdout, func(out io.Writer) error {
		return run(ctx, cfg, repo, opts, out, log)
	})
	if err != nil {
		log.WithError(err).Error("report failed")
		return 1
	}
	return 0
}

// writeOutput sends fn's output to path, or to stdout when path is empty.
// A file left by a failed run is removed.
func writeOutput(path string, stdout io.Writer, fn func(io.Writer) error) (err error) {
	if path == "" {
		return fn(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return fn(f)
}

func openRepository(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (store.Repository, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return memory.NewSeeded(time.Now().In(loc), log), func() {}, nil
	}
	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pg, func() { _ = pg.Close() }, nil
}

func run(ctx context.Context, cfg config.Config, repo store.Repository, opts options, out io.Writer, log *logrus.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	aggregator := report.NewAggregator(report.Options{
		Location:          loc,
		TopN:              cfg.TopN,
		LowStockThreshold: cfg.LowStockThreshold,
	})
	svc := service.New(repo, aggregator, service.Options{StoreID: cfg.StoreID, Logger: log})
	defer svc.Close()

	rep, err := svc.Report(ctx, service.ParseRangeKind(opts.rangeKind), opts.limit)
	if err != nil {
		return err
	}
	return write(out, opts.format, rep)
}

func write(out io.Writer, format string, rep domain.Report) error {
	var (
		payload []byte
		err     error
	)
	switch format {
	case "csv":
		payload = export.CSV(rep)
	case "html":
		payload, err = export.HTML(rep)
	case "xlsx":
		payload, err = export.XLSX(rep)
	case "json":
		payload, err = json.MarshalIndent(rep, "", "  ")
		payload = append(payload, '\n')
	default:
		return fmt.Errorf("%w %q", errUnknownFormat, format)
	}
	if err != nil {
		return err
	}
	_, err = out.Write(payload)
	return err
}
