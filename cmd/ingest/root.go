package main

import (
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"csvingest/internal/logging"
)

// app is the state shared by the subcommands. Runtime knobs are read through
// v so that flags win over INGEST_* environment variables, which win over
// the pipeline file.
type app struct {
	v   *viper.Viper
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: slog.Default()}
	a.v.SetEnvPrefix("INGEST")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Streaming, schema-validated CSV ingest",
		Long:          color.CyanString("csvingest - validate, transform and load CSV with itemized rejects"),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.log = logging.New(cmd.ErrOrStderr(), a.v.GetString("log_level"), a.v.GetString("log_format"))
			slog.SetDefault(a.log)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("log-level", "info", "log level: debug, info, warn, error (env INGEST_LOG_LEVEL)")
	pf.String("log-format", "text", "log format: text or json (env INGEST_LOG_FORMAT)")
	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("log_format", pf.Lookup("log-format"))

	root.AddCommand(newRunCmd(a), newValidateCmd(a), newProfileCmd(a))
	return root
}

// bind ties a local flag of cmd to a viper key.
func (a *app) bind(cmd *cobra.Command, key, flag string) {
	_ = a.v.BindPFlag(key, cmd.Flags().Lookup(flag))
}
