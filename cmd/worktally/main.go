package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crimson-sun/worktally/internal/config"
	"github.com/crimson-sun/worktally/internal/connector"
	"github.com/crimson-sun/worktally/internal/engine"
	"github.com/crimson-sun/worktally/internal/engine/duration"
	"github.com/crimson-sun/worktally/internal/logging"
	"github.com/crimson-sun/worktally/internal/output"
	"github.com/crimson-sun/worktally/internal/pipeline"
	"github.com/crimson-sun/worktally/internal/server"

	// Register connector implementations.
	_ "github.com/crimson-sun/worktally/internal/connector/csvfile"
	_ "github.com/crimson-sun/worktally/internal/connector/httpcsv"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitBadRecord = 2
)

// cliFlags holds command-line overrides. Empty values keep the config.
type cliFlags struct {
	configPath  string
	input       string
	granularity string
	start       string
	end         string
	serve       bool
	schedule    string
}

func parseFlags(args []string) (cliFlags, error) {
	var f cliFlags
	fs := flag.NewFlagSet("worktally", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", getenv("WORKTALLY_CONFIG", "worktally.yaml"), "YAML config file")
	fs.StringVar(&f.input, "input", "", "CSV export to read (path, - for stdin, or URL with the http provider)")
	fs.StringVar(&f.granularity, "granularity", "", "month, date or both")
	fs.StringVar(&f.start, "start", "", "range start: month number or YYYY-MM-DD")
	fs.StringVar(&f.end, "end", "", "range end: month number or YYYY-MM-DD")
	fs.BoolVar(&f.serve, "serve", false, "run the HTTP API instead of a batch")
	fs.StringVar(&f.schedule, "schedule", "", "5-field cron expression; re-run the batch on schedule")
	err := fs.Parse(args)
	return f, err
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags, err := parseFlags(args)
	if err != nil {
		return exitFailure
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worktally: %v\n", err)
		return exitFailure
	}
	flags.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "worktally: %v\n", err)
		return exitFailure
	}

	logging.Init(output.ParseFormat(cfg.Output.Format) == output.FormatJSON, logging.ParseLevel(cfg.LogLevel))

	req, err := buildRequest(cfg.Report, flags.start, flags.end)
	if err != nil {
		slog.Error("invalid range", "error", err)
		return exitFailure
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cls, closeCls := buildClassifier(cfg.Classifier)
	defer closeCls()
	eng := buildEngine(cls, cfg.Input.Layout)

	if flags.serve {
		// Reports are returned to the caller; only persistent sinks record them.
		out, err := buildOutputs(cfg.Output, false)
		if err != nil {
			slog.Error("failed to create outputs", "error", err)
			return exitFailure
		}
		p := pipeline.New(nil, eng, out)
		defer p.Close()

		srv := server.New(p, server.WithCSV(csvOptions(cfg.Input)))
		if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
			slog.Error("server error", "error", err)
			return exitFailure
		}
		return exitOK
	}

	if cfg.Input.Path == "" {
		slog.Error("no input: pass -input or set input.path")
		return exitFailure
	}

	conn, err := connector.Open(cfg.Input.Provider)
	if err != nil {
		slog.Error("failed to get connector", "error", err)
		return exitFailure
	}
	out, err := buildOutputs(cfg.Output, true)
	if err != nil {
		slog.Error("failed to create outputs", "error", err)
		return exitFailure
	}
	p := pipeline.New(conn, eng, out)
	defer p.Close()

	connCfg := connectorConfig(cfg.Input)

	if cfg.Schedule != "" {
		if err := runScheduled(ctx, cfg.Schedule, func() error {
			_, err := p.Run(ctx, connCfg, req)
			return err
		}); err != nil {
			slog.Error("scheduler stopped", "error", err)
			return exitFailure
		}
		return exitOK
	}

	res, err := p.Run(ctx, connCfg, req)
	if err != nil {
		return exitCode(err)
	}
	slog.Info("done", "records", res.Records, "reports", len(res.Reports))
	return exitOK
}

// exitCode logs err and maps it to the process exit status.
func exitCode(err error) int {
	if errors.Is(err, duration.ErrMalformedTemporalInput) {
		attrs := []any{"error", err}
		var recErr *engine.RecordError
		if errors.As(err, &recErr) {
			attrs = append(attrs, "record", recErr.Index)
			if recErr.Line > 0 {
				attrs = append(attrs, "line", recErr.Line)
			}
		}
		slog.Error("malformed date/time in input; fix input data", attrs...)
		return exitBadRecord
	}
	if errors.Is(err, context.Canceled) {
		return exitOK
	}
	slog.Error("pipeline error", "error", err)
	return exitFailure
}

// runScheduled runs job on every tick of a 5-field cron schedule until ctx
// is cancelled. A failed run is logged and the schedule continues.
func runScheduled(ctx context.Context, schedule string, job func() error) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(strings.TrimSpace(schedule))
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	for {
		now := time.Now()
		next := sched.Next(now)
		slog.Info("next run scheduled", "at", next.Format(time.DateTime), "in", next.Sub(now).Round(time.Second))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if err := job(); err != nil {
			if errors.Is(err, duration.ErrMalformedTemporalInput) {
				slog.Error("scheduled run rejected input; fix input data", "error", err)
			} else {
				slog.Error("scheduled run failed", "error", err)
			}
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
