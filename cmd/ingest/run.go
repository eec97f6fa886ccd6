package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"csvingest/internal/config"
)

var errRejected = errors.New("rows were rejected")

func newRunCmd(a *app) *cobra.Command {
	var (
		cfgPath      string
		failOnReject bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a pipeline file",
		Example: `  ingest run -c pipelines/customers.yaml
  INGEST_WORKERS=8 ingest run -c pipelines/volumes.toml --report-format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPipeline(cfgPath)
			if err != nil {
				return err
			}
			applyOverrides(&p, a.v)

			issues := config.ValidatePipeline(p)
			printIssues(cmd.ErrOrStderr(), issues)
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid: %s", cfgPath)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			flush := setupMetrics(p.Metrics, p.Job, a.log)
			defer flush()

			a.log.Debug("pipeline",
				"source", p.Source.Kind, "parser", p.Parser.Kind, "sink", p.Sink.Kind, "table", p.Sink.DB.Table)
			start := time.Now()

			sum, runErr := runPipeline(ctx, p, a.log)
			if err := writeReports(cmd.OutOrStdout(), p.Report, sum); err != nil {
				return fmt.Errorf("report: %w", err)
			}
			if runErr != nil {
				return runErr
			}
			a.log.Debug("completed", "elapsed", time.Since(start).Truncate(time.Millisecond))
			if failOnReject && sum.RowsRejected > 0 {
				return fmt.Errorf("%w: %d of %d", errRejected, sum.RowsRejected, sum.RowsSeen)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfgPath, "config", "c", "pipelines/sample.yaml", "pipeline file (.json, .yaml, .toml)")
	f.BoolVar(&failOnReject, "fail-on-reject", false, "exit non-zero when any row is rejected")
	f.Int("workers", 0, "validate+transform goroutines (env INGEST_WORKERS)")
	f.Int("window", 0, "rows in flight between tokenizer and fold (env INGEST_WINDOW)")
	f.Int("batch-size", 0, "records per sink batch (env INGEST_BATCH_SIZE)")
	f.Int("max-row-length", 0, "reject rows with more fields than this (env INGEST_MAX_ROW_LENGTH)")
	f.Bool("stop-on-first-error", false, "halt at the first rejected row (env INGEST_STOP_ON_FIRST_ERROR)")
	f.String("metrics-backend", "", "metrics backend: none, pushgateway, datadog (env INGEST_METRICS_BACKEND)")
	f.String("pushgateway-url", "", "Pushgateway base URL (env INGEST_PUSHGATEWAY_URL)")
	f.String("datadog-addr", "", "DogStatsD address (env INGEST_DATADOG_ADDR)")
	f.String("report-format", "", "summary format: text, json, xlsx (env INGEST_REPORT_FORMAT)")
	f.String("report-path", "", "summary destination; empty is stdout (env INGEST_REPORT_PATH)")
	f.String("rejects-path", "", "also write retained rejects as CSV (env INGEST_REJECTS_PATH)")
	f.Bool("color", false, "color the text summary (env INGEST_COLOR)")

	for key, flag := range overrideFlags {
		a.bind(cmd, key, flag)
	}
	return cmd
}

// overrideFlags maps viper keys to the run flags they are bound to.
var overrideFlags = map[string]string{
	"workers":             "workers",
	"window":              "window",
	"batch_size":          "batch-size",
	"max_row_length":      "max-row-length",
	"stop_on_first_error": "stop-on-first-error",
	"metrics_backend":     "metrics-backend",
	"pushgateway_url":     "pushgateway-url",
	"datadog_addr":        "datadog-addr",
	"report_format":       "report-format",
	"report_path":         "report-path",
	"rejects_path":        "rejects-path",
	"color":               "color",
}

// applyOverrides copies every explicitly set flag or INGEST_* variable over
// the pipeline file values.
func applyOverrides(p *config.Pipeline, v *viper.Viper) {
	if v.IsSet("workers") {
		p.Ingest.Workers = v.GetInt("workers")
	}
	if v.IsSet("window") {
		p.Ingest.Window = v.GetInt("window")
	}
	if v.IsSet("batch_size") {
		p.Ingest.BatchSize = v.GetInt("batch_size")
	}
	if v.IsSet("max_row_length") {
		p.Ingest.MaxRowLength = v.GetInt("max_row_length")
	}
	if v.IsSet("stop_on_first_error") {
		p.Ingest.StopOnFirstError = v.GetBool("stop_on_first_error")
	}
	if v.IsSet("metrics_backend") {
		p.Metrics.Backend = v.GetString("metrics_backend")
	}
	if v.IsSet("pushgateway_url") {
		p.Metrics.PushgatewayURL = v.GetString("pushgateway_url")
	}
	if v.IsSet("datadog_addr") {
		p.Metrics.DatadogAddr = v.GetString("datadog_addr")
	}
	if v.IsSet("report_format") {
		p.Report.Format = v.GetString("report_format")
	}
	if v.IsSet("report_path") {
		p.Report.Path = v.GetString("report_path")
	}
	if v.IsSet("rejects_path") {
		p.Report.RejectsPath = v.GetString("rejects_path")
	}
	if v.IsSet("color") {
		p.Report.Color = v.GetBool("color")
	}
}

func loadPipeline(path string) (config.Pipeline, error) {
	if _, err := os.Stat(path); err != nil {
		return config.Pipeline{}, fmt.Errorf("pipeline file not found: %s", path)
	}
	return config.Load(path)
}
