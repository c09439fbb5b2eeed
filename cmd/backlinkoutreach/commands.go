package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"BacklinkOutreach/internal/app"
	"BacklinkOutreach/internal/config"
	"BacklinkOutreach/internal/domain"
)

// commandEnv lets tests replace the process-level collaborators.
type commandEnv struct {
	clock func() time.Time
}

type rootFlags struct {
	configPath string
	send       bool
	review     bool
}

func newRootCmd(env commandEnv) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   app.BinaryName,
		Short: "Backlink outreach campaign controller",
		Long: `backlinkoutreach turns the latest backlink opportunity feed into a daily
outreach queue, honouring opt-outs, global send history and the daily limit.

Example usage:
  backlinkoutreach                  # Dry run: generate today's queue, send nothing
  backlinkoutreach --review         # Show today's queue
  backlinkoutreach --send           # Generate and deliver (needs OUTREACH_DRY_RUN=false)
  backlinkoutreach optout add x.com # Never contact x.com`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := domain.ParseMode(flags.send, flags.review)
			if err != nil {
				return err
			}
			application, err := newApplication(cmd, flags, env)
			if err != nil {
				return err
			}
			_, err = application.Run(cmd.Context(), mode)
			return err
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (default $OUTREACH_CONFIG)")
	root.Flags().BoolVar(&flags.send, "send", false, "deliver today's queue")
	root.Flags().BoolVar(&flags.review, "review", false, "show today's queue without generating")
	root.MarkFlagsMutuallyExclusive("send", "review")

	root.AddCommand(newOptOutCmd(flags, env))
	return root
}

func newOptOutCmd(flags *rootFlags, env commandEnv) *cobra.Command {
	optout := &cobra.Command{
		Use:   "optout",
		Short: "Manage the opt-out list",
	}

	optout.AddCommand(&cobra.Command{
		Use:   "add <domain>...",
		Short: "Add domains to the opt-out list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(cmd, flags, env)
			if err != nil {
				return err
			}
			added, err := application.AddOptOuts(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range added {
				fmt.Fprintf(out, "added %s\n", d)
			}
			if skipped := len(args) - len(added); skipped > 0 {
				fmt.Fprintf(out, "%d already listed or empty\n", skipped)
			}
			return nil
		},
	})

	optout.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the opt-out list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := newApplication(cmd, flags, env)
			if err != nil {
				return err
			}
			domains, err := application.OptOuts(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range domains {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	})

	return optout
}

func newApplication(cmd *cobra.Command, flags *rootFlags, env commandEnv) (*app.Application, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cfg, app.Options{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Colors: useColors(cmd.OutOrStdout()),
		Clock:  env.clock,
	}), nil
}

func useColors(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return w == io.Writer(os.Stdout) && !color.NoColor
}
