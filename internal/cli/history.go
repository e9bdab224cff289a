package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zigbind/zigbind/internal/history"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB    string
	Limit int
	Run   string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List recorded translation runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "zigbind-history.db", "history database path")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show stored diagnostics for one run ID")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	store, err := history.Open(opts.DB)
	if err != nil {
		_ = formatter.Error(ErrCodeHistory, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening history", err)
	}
	defer store.Close()

	if opts.Run != "" {
		diags, err := store.Diagnostics(cmd.Context(), opts.Run)
		if err != nil {
			_ = formatter.Error(ErrCodeHistory, err.Error(), nil)
			return WrapExitError(ExitCommandError, "reading run diagnostics", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(diags)
		}
		for _, d := range diags {
			fmt.Fprintln(formatter.Writer, d.String())
		}
		return nil
	}

	runs, err := store.List(cmd.Context(), opts.Limit)
	if err != nil {
		_ = formatter.Error(ErrCodeHistory, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing runs", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tPROFILE\tMODULES\tDECLS\tERRORS\tWARNINGS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Profile,
			r.Modules, r.Declarations, r.Errors, r.Warnings)
	}
	return tw.Flush()
}
