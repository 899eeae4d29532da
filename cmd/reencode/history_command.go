package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reencode/internal/history"
	"reencode/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show past transcode runs",
	}
	list := newHistoryListCommand(ctx)
	historyCmd.AddCommand(list)
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))

	// Bare "reencode history" lists.
	historyCmd.Flags().AddFlagSet(list.Flags())
	historyCmd.RunE = list.RunE
	return historyCmd
}

func openHistory(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var (
		format string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if runs == nil {
				runs = []history.Run{}
			}
			return writeFormatted(cmd, format, runs, func() string {
				if len(runs) == 0 {
					return "No runs recorded"
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						strconv.FormatInt(run.ID, 10),
						run.StartedAt.Local().Format("2006-01-02 15:04"),
						run.Codec,
						runStatus(run),
						strconv.Itoa(run.Files),
						run.Duration().Round(time.Second).String(),
						filepath.Base(run.SourceDir),
					})
				}
				return renderTable(runColumns, rows)
			})
		},
	}
	addFormatFlag(cmd, &format)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one run with its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return services.Wrap(services.ErrNotFound, "history", "show", fmt.Sprintf("no run matches %q", args[0]), nil)
			}
			return writeFormatted(cmd, format, run, func() string { return renderRun(run) })
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), time.Now().AddDate(0, 0, -days))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "Keep runs newer than this many days")
	return cmd
}

func runStatus(run history.Run) string {
	if run.ErrorKind != "" {
		return run.State + " (" + run.ErrorKind + ")"
	}
	return run.State
}

func renderRun(run *history.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:       %d (%s)\n", run.ID, run.RunID)
	fmt.Fprintf(&b, "Source:    %s\n", run.SourceDir)
	if run.OutputDir != "" {
		fmt.Fprintf(&b, "Output:    %s\n", run.OutputDir)
	}
	fmt.Fprintf(&b, "Codec:     %s\n", run.Codec)
	fmt.Fprintf(&b, "Status:    %s\n", runStatus(*run))
	if run.Resampled {
		fmt.Fprintf(&b, "Resampled: %d Hz\n", run.TargetRate)
	}
	if run.Downmixed {
		b.WriteString("Downmixed: yes\n")
	}
	if run.TorrentPath != "" {
		fmt.Fprintf(&b, "Torrent:   %s\n", run.TorrentPath)
	}
	fmt.Fprintf(&b, "Started:   %s (took %s)\n", run.StartedAt.Local().Format(time.DateTime), run.Duration().Round(time.Millisecond))
	if run.ErrorMessage != "" {
		fmt.Fprintf(&b, "Error:     %s\n", run.ErrorMessage)
	}

	rows := make([][]string, 0, len(run.Jobs))
	for _, job := range run.Jobs {
		rows = append(rows, []string{job.Rel, string(job.Status), (time.Duration(job.DurationMs) * time.Millisecond).String()})
	}
	if len(rows) > 0 {
		b.WriteString("\n")
		b.WriteString(renderTable(jobColumns, rows))
		b.WriteString("\n")
	}
	for _, job := range run.Jobs {
		if job.Status != history.JobFailed {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s\n", job.Rel, job.ErrorMessage)
		if job.Diagnostics != "" {
			b.WriteString(job.Diagnostics)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
