package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"csvingest/internal/config"
	"csvingest/internal/ingest"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writePipeline(t *testing.T, in string, extra string) string {
	t.Helper()
	body := fmt.Sprintf(`job: customers
source: { kind: file, file: { path: %q } }
parser: { kind: csv, options: { has_header: true } }
schema:
  columns:
    - { name: id, type: integer }
    - { name: email, type: string, constraints: [{ kind: email }] }
sink: { kind: discard }
%s`, in, extra)
	p := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write pipeline: %v", err)
	}
	return p
}

func TestValidateCmd(t *testing.T) {
	cfg := writePipeline(t, "in.csv", "")
	out, _, err := execute(t, "validate", "-c", cfg)
	if err != nil || !strings.Contains(out, "configuration is valid") {
		t.Fatalf("validate: out=%q err=%v", out, err)
	}

	bad := writePipeline(t, "in.csv", "ingest: { workers: -1 }\n")
	out, _, err = execute(t, "validate", "-c", bad)
	if err == nil || !strings.Contains(out, "ingest.workers") {
		t.Fatalf("validate bad: out=%q err=%v", out, err)
	}
}

func TestRunCmd_JSONReport(t *testing.T) {
	cfg := writePipeline(t, writeInput(t, "c.csv", customersCSV), "")
	out, logs, err := execute(t, "run", "-c", cfg, "--report-format", "json", "--workers", "2", "--log-format", "json")
	if err != nil {
		t.Fatalf("run: %v\nlogs:\n%s", err, logs)
	}
	var sum ingest.Summary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, out)
	}
	if sum.RowsSeen != 4 || sum.RowsAccepted != 2 || sum.Job != "customers" {
		t.Fatalf("summary = %+v", sum)
	}
	if !strings.Contains(logs, `"msg":"ingest: start"`) {
		t.Fatalf("expected JSON logs on stderr, got:\n%s", logs)
	}
}

func TestRunCmd_FailOnReject(t *testing.T) {
	cfg := writePipeline(t, writeInput(t, "c.csv", customersCSV), "")
	_, _, err := execute(t, "run", "-c", cfg, "--fail-on-reject")
	if err == nil || !strings.Contains(err.Error(), "rows were rejected: 2 of 4") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunCmd_MissingConfig(t *testing.T) {
	if _, _, err := execute(t, "run", "-c", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing pipeline file")
	}
}

func TestApplyOverrides(t *testing.T) {
	t.Setenv("INGEST_BATCH_SIZE", "250")
	v := viper.New()
	v.SetEnvPrefix("INGEST")
	v.AutomaticEnv()
	v.Set("workers", 6)
	v.Set("report_format", "json")

	p := config.Pipeline{Ingest: config.IngestConfig{Workers: 1, Window: 9}}
	applyOverrides(&p, v)
	if p.Ingest.Workers != 6 || p.Ingest.BatchSize != 250 || p.Ingest.Window != 9 || p.Report.Format != "json" {
		t.Fatalf("after overrides: %+v / %+v", p.Ingest, p.Report)
	}
}

func TestProfileCmd(t *testing.T) {
	file := writeInput(t, "0700_HK.csv", `start,end,percentage,type
09:00,09:30,0.05,POS
09:30,12:00,0.40,CTS
12:00,13:00,0,L
13:00,16:00,0.50,CTS
16:00,16:10,0.05,CAS
`)
	out, _, err := execute(t, "profile", "--file", file, "--from", "09:30", "--to", "11:30", "--at", "10:15")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	for _, want := range []string{
		"[09:30-12:00] 40.00% (continuous trading session)",
		"cumulative volume from 09:30 to 11:30: 32.00%",
		"normalized target for 10:15 (between 09:30 and 11:30): 37.50%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, _, err = execute(t, "profile", "--file", filepath.Join(t.TempDir(), "missing.csv"))
	if err != nil || !strings.Contains(out, "profile: twap (333 buckets)") {
		t.Fatalf("fallback: out=%q err=%v", out, err)
	}
}
