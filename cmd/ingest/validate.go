package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"csvingest/internal/config"
)

func newValidateCmd(a *app) *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Lint a pipeline file and compile its schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPipeline(cfgPath)
			if err != nil {
				return err
			}
			issues := config.ValidatePipeline(p)
			out := cmd.OutOrStdout()
			printIssues(out, issues)
			if config.HasErrors(issues) {
				a.log.Info("configuration is invalid", "path", cfgPath)
				return fmt.Errorf("configuration is invalid: %s", cfgPath)
			}
			color.New(color.FgGreen).Fprintf(out, "configuration is valid: %s\n", cfgPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "pipelines/sample.yaml", "pipeline file (.json, .yaml, .toml)")
	return cmd
}

// printIssues writes one line per issue, errors in red and warnings in
// yellow.
func printIssues(w io.Writer, issues []config.Issue) {
	errc, warnc := color.New(color.FgRed), color.New(color.FgYellow)
	for _, iss := range issues {
		c := warnc
		if iss.Severity == config.SeverityError {
			c = errc
		}
		c.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
}
