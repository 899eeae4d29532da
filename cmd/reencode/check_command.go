package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reencode/internal/preflight"
	"reencode/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var (
		torrents bool
		format   string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify binaries, directories and tracker settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, torrents)

			if format != "" && format != formatTable {
				if err := writeFormatted(cmd, format, results, nil); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				renderCheckReport(out, results, shouldColorize(out))
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return services.Wrap(services.ErrConfiguration, "check", "preflight", fmt.Sprintf("%d check(s) failed", len(failed)), nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&torrents, "torrent", false, "Also check mktorrent and tracker settings")
	addFormatFlag(cmd, &format)
	return cmd
}
