package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"csvingest/internal/profile"
)

func newProfileCmd(a *app) *cobra.Command {
	var (
		symbolFile, marketFile string
		from, to, at           string
		workers                int
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Load a volume profile and report cumulative and target volume",
		Long: `Loads the symbol profile, falling back to the market default and then to
a generated TWAP profile, and prints the bucket at --from, the cumulative
volume between --from and --to, and the normalized target at --at.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := profile.ParseClock(from)
			if err != nil {
				return err
			}
			end, err := profile.ParseClock(to)
			if err != nil {
				return err
			}
			now, err := profile.ParseClock(at)
			if err != nil {
				return err
			}

			p, err := profile.Load(cmd.Context(), profile.Options{Logger: a.log, Workers: workers}, symbolFile, marketFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "profile: %s (%d buckets)\n", p.Source(), p.Len())
			if e, ok := p.Entry(start); ok {
				fmt.Fprintln(out, e.String())
			} else {
				fmt.Fprintf(out, "entry not found at %s\n", from)
			}

			cum, err := p.CumulativePercentage(start, end)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "cumulative volume from %s to %s: %.2f%%\n", from, to, cum*100)

			target, err := p.NormalizedTarget(now, start, end)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "normalized target for %s (between %s and %s): %.2f%%\n", at, from, to, target*100)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&symbolFile, "file", "", "symbol volume profile CSV")
	f.StringVar(&marketFile, "default", "", "market default volume profile CSV")
	f.StringVar(&from, "from", "09:30", "window start (HH:MM)")
	f.StringVar(&to, "to", "11:30", "window end (HH:MM)")
	f.StringVar(&at, "at", "10:15", "time to compute the normalized target for (HH:MM)")
	f.IntVar(&workers, "workers", 1, "validate+transform goroutines")
	return cmd
}
