package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reencode/internal/config"
)

var skipConfigLoad = map[string]string{"skipConfigLoad": "true"}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the configuration file",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return configCmd
}

// initTarget resolves where `config init` writes, refusing an existing file
// unless overwrite is set.
func initTarget(flagValue string, overwrite bool) (string, error) {
	var (
		target string
		err    error
	)
	if flagValue = strings.TrimSpace(flagValue); flagValue == "" {
		target, err = config.DefaultConfigPath()
	} else {
		target, err = config.ExpandPath(flagValue)
	}
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	if overwrite {
		return target, nil
	}
	switch _, err := os.Stat(target); {
	case err == nil:
		return "", fmt.Errorf("%s already exists (pass --overwrite to replace it)", target)
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("check config path: %w", err)
	}
	return target, nil
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Args:        cobra.NoArgs,
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath, overwrite)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", target)
			fmt.Fprintln(out, "Next: set [paths] output_dir, then run `reencode check`.")
			fmt.Fprintln(out, "For --torrent, also set [tracker] announce_url and passkey (or REENCODE_PASSKEY).")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file (default: ~/.config/reencode/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and print the resolved settings",
		Args:        cobra.NoArgs,
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.flagPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			catalog, err := ctx.catalog()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := path
			if !exists {
				source += " (not found, defaults used)"
			}
			writeSettings(out, [][2]string{
				{"Config", source},
				{"Output dir", cfg.Paths.OutputDir},
				{"Torrent dir", cfg.Paths.TorrentDir},
				{"State dir", cfg.Paths.StateDir},
				{"Parallelism", parallelismLabel(cfg.Transcode.Parallelism)},
				{"Pool timeout", cfg.PoolTimeout().String()},
				{"Codecs", strings.Join(catalog.Names(), ", ")},
				{"Tracker", yesNo(cfg.Tracker.AnnounceURL != "" && cfg.Tracker.Passkey != "")},
				{"Notifications", yesNo(cfg.Notifications.NtfyTopic != "")},
			})
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func parallelismLabel(n int) string {
	if n <= 0 {
		return "all CPUs"
	}
	return fmt.Sprint(n)
}

func writeSettings(w io.Writer, settings [][2]string) {
	for _, kv := range settings {
		fmt.Fprintf(w, "%-14s %s\n", kv[0]+":", kv[1])
	}
}
