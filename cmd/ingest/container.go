// This file wires a pipeline file to the ingest core: source, tokenizer,
// schema, transforms, sink, metrics and reports. It depends only on the
// storage registry and never imports a database driver directly.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"csvingest/internal/config"
	"csvingest/internal/datasource"
	"csvingest/internal/ingest"
	"csvingest/internal/metrics"
	"csvingest/internal/metrics/datadog"
	"csvingest/internal/metrics/prompush"
	csvparser "csvingest/internal/parser/csv"
	"csvingest/internal/report"
	"csvingest/internal/schema"
	"csvingest/internal/sink"
	"csvingest/internal/storage"
	"csvingest/internal/transformer/builtin"
)

// Function variables used as test seams.
var (
	newRepositoryFn = storage.New

	openSourceFn = func(ctx context.Context, cfg config.Source) (io.ReadCloser, error) {
		src, err := datasource.FromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return src.Open(ctx)
	}
)

// runPipeline executes p end to end. The summary is meaningful whenever the
// ingest run started, even when an error is returned.
func runPipeline(ctx context.Context, p config.Pipeline, log *slog.Logger) (ingest.Summary, error) {
	if k := p.Parser.Kind; k != "" && k != "csv" {
		return ingest.Summary{}, fmt.Errorf("unsupported parser.kind=%s", k)
	}

	rc, err := openSourceFn(ctx, p.Source)
	if err != nil {
		return ingest.Summary{}, fmt.Errorf("source open: %w", err)
	}
	defer rc.Close()

	popt := csvparser.OptionsFrom(p.Parser.Options)
	tok := csvparser.New(rc, popt)

	s, err := resolveSchema(p, tok, popt)
	if err != nil {
		return ingest.Summary{}, err
	}
	pipe, err := builtin.BuildPipeline(p.Transform, s)
	if err != nil {
		return ingest.Summary{}, err
	}

	out, closeSink, err := buildSink(ctx, p, s, log)
	if err != nil {
		return ingest.Summary{}, err
	}

	sum, runErr := ingest.Run(ctx, tok, s, pipe, out, ingestOptions(p, log))
	if cerr := closeSink(); cerr != nil && runErr == nil {
		runErr = fmt.Errorf("close sink: %w", cerr)
	}
	return sum, runErr
}

// resolveSchema consumes the header row (when the parser has one) and
// either confirms it against the declared columns or derives an all-string
// schema from it.
func resolveSchema(p config.Pipeline, tok *csvparser.Tokenizer, popt csvparser.Options) (*schema.Schema, error) {
	hdr, err := tok.ReadHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if len(p.Schema.Columns) > 0 {
		s, err := p.Schema.Build()
		if err != nil {
			return nil, err
		}
		if hdr != nil {
			if err := s.ConfirmHeader(hdr, popt.HeaderMap); err != nil {
				return nil, err
			}
		}
		return s, nil
	}
	if hdr == nil {
		return nil, fmt.Errorf("schema: no columns declared and no header to derive them from")
	}
	return schema.FromHeader(hdr, popt.HeaderMap)
}

func ingestOptions(p config.Pipeline, log *slog.Logger) ingest.Options {
	c := p.Ingest
	return ingest.Options{
		MaxRejectedDetailsStored: c.MaxRejectedDetails,
		StopOnFirstError:         c.StopOnFirstError,
		MaxRowLength:             c.MaxRowLength,
		Workers:                  c.Workers,
		Window:                   c.Window,
		BatchSize:                c.BatchSize,
		Job:                      p.Job,
		Logger:                   log,
	}
}

// buildSink returns the configured sink and the function that releases it.
func buildSink(ctx context.Context, p config.Pipeline, s *schema.Schema, log *slog.Logger) (ingest.Sink, func() error, error) {
	columns := p.Sink.DB.Columns
	if len(columns) == 0 {
		columns = s.Names()
	}

	var (
		out     ingest.Sink
		closeFn = func() error { return nil }
	)
	switch kind := strings.TrimSpace(p.Sink.Kind); kind {
	case "", "discard":
		out = sink.Discard{}

	case "csv":
		var w io.Writer = struct{ io.Writer }{os.Stdout}
		if p.Sink.Path != "-" {
			f, err := os.Create(p.Sink.Path)
			if err != nil {
				return nil, nil, fmt.Errorf("csv sink: %w", err)
			}
			w = f
		}
		cs := sink.NewCSV(w, columns)
		out, closeFn = cs, cs.Close

	default:
		repo, err := initRepository(ctx, p, columns)
		if err != nil {
			return nil, nil, err
		}
		if p.Sink.DB.AutoCreateTable {
			log.Info("auto-create table enabled", "table", p.Sink.DB.Table)
			if err := storage.EnsureTable(ctx, kind, repo, p.Sink.DB.Table, s); err != nil {
				repo.Close()
				return nil, nil, fmt.Errorf("apply DDL: %w", err)
			}
		}
		ss, err := storage.NewSink(repo, columns, log)
		if err != nil {
			repo.Close()
			return nil, nil, err
		}
		out = ss
		closeFn = func() error {
			log.Info("storage: closed", "inserted", ss.Inserted())
			repo.Close()
			return nil
		}
	}

	if keys := p.Sink.DedupKeys; len(keys) > 0 {
		d, err := sink.NewDedup(out, keys)
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		out = d
	}
	return out, closeFn, nil
}

// initRepository opens the backend named by sink.kind through the storage
// registry.
func initRepository(ctx context.Context, p config.Pipeline, columns []string) (storage.Repository, error) {
	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:    p.Sink.Kind,
		DSN:     p.Sink.DB.DSN,
		Table:   p.Sink.DB.Table,
		Columns: columns,
	})
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

// setupMetrics installs the configured backend and returns its flush
// function. Backend failures only disable metrics.
func setupMetrics(m config.MetricsConfig, job string, log *slog.Logger) func() {
	if job == "" {
		job = "csvingest"
	}
	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case "", "none":
		log.Debug("metrics: disabled", "backend", m.Backend)
		return func() {}
	case "pushgateway":
		url := m.PushgatewayURL
		if url == "" {
			url = "http://localhost:9091"
		}
		b, err = prompush.NewBackend(job, url)
		log.Info("metrics: pushgateway", "url", url, "job", job)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  "csvingest.",
			GlobalTags: []string{"job:" + job},
		})
		log.Info("metrics: datadog", "addr", m.DatadogAddr, "job", job)
	default:
		log.Warn("metrics: unknown backend; metrics disabled", "backend", m.Backend)
		return func() {}
	}
	if err != nil {
		log.Warn("metrics: backend init failed; using nop", "backend", m.Backend, "err", err)
		return func() {}
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush error", "err", err)
		}
		metrics.Reset()
	}
}

// writeReports renders the summary in the configured format and, when
// asked, the retained rejects as CSV.
func writeReports(stdout io.Writer, r config.ReportConfig, sum ingest.Summary) error {
	if r.Format == "xlsx" {
		if err := report.SaveXLSX(r.Path, sum); err != nil {
			return err
		}
	} else {
		w, done, err := destination(stdout, r.Path)
		if err != nil {
			return err
		}
		if r.Format == "json" {
			err = report.WriteJSON(w, sum)
		} else {
			err = report.WriteText(w, sum, report.TextOptions{Color: r.Color})
		}
		if cerr := done(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}

	if r.RejectsPath == "" {
		return nil
	}
	w, done, err := destination(stdout, r.RejectsPath)
	if err != nil {
		return err
	}
	err = report.WriteRejectsCSV(w, sum)
	if cerr := done(); err == nil {
		err = cerr
	}
	return err
}

func destination(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
