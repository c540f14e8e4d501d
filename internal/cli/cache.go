package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gdown/pkg/cache"
	"github.com/glorpus-work/gdown/pkg/gdrive"
)

// NewCacheCmd creates the cache command with subcommands
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the download cache",
		Long:  "Clean, show information about, and locate the download cache",
	}

	cmd.AddCommand(
		newCacheCleanCmd(),
		newCacheInfoCmd(),
		newCacheDirCmd(),
		newCachePathCmd(),
	)

	return cmd
}

func newCacheCleanCmd() *cobra.Command {
	var (
		all       bool
		entries   bool
		staging   bool
		olderThan time.Duration
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the download cache",
		Long: `Remove cached files to free up disk space.

Without flags both downloaded entries and leftover staging directories are
removed. Staging directories younger than --older-than are kept because they
may belong to a download in progress.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCacheClean(cmd, cache.CleanOptions{
				All:              all,
				Entries:          entries,
				Staging:          staging,
				StagingOlderThan: olderThan,
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clean entries and staging directories")
	cmd.Flags().BoolVar(&entries, "entries", false, "Clean only downloaded entries")
	cmd.Flags().BoolVar(&staging, "staging", false, "Clean only leftover staging directories")
	cmd.Flags().DurationVar(&olderThan, "older-than", DefaultStagingAge, "Minimum age of staging directories to remove")

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show cache information",
		Long:  "Display the size and contents of the download cache",
		Args:  cobra.NoArgs,
		RunE:  runCacheInfo,
	}

	return cmd
}

func newCacheDirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dir",
		Short: "Show cache directory path",
		Long:  "Display the path to the cache directory",
		Args:  cobra.NoArgs,
		RunE:  runCacheDir,
	}

	return cmd
}

func newCachePathCmd() *cobra.Command {
	var (
		fuzzy bool
		id    bool
	)

	cmd := &cobra.Command{
		Use:   "path URL_OR_ID",
		Short: "Show the cache path for a URL",
		Long:  "Display where a download of URL_OR_ID is stored in the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCachePath(cmd, args[0], id, fuzzy)
		},
	}

	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "extract the file id from any Google Drive URL")
	cmd.Flags().BoolVar(&id, "id", false, "treat the argument as a Google Drive file id")

	return cmd
}

func newCacheOperation() (*cache.Operation, *cache.Root, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	root := newRoot(cfg)
	return cache.NewOperation(cache.NewManager(root)), root, nil
}

func runCacheClean(cmd *cobra.Command, options cache.CleanOptions) error {
	op, _, err := newCacheOperation()
	if err != nil {
		return err
	}

	msg, err := op.Clean(cmd.Context(), options)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func runCacheInfo(cmd *cobra.Command, _ []string) error {
	op, _, err := newCacheOperation()
	if err != nil {
		return err
	}

	info, err := op.GetInfo()
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), info)
	return nil
}

func runCacheDir(cmd *cobra.Command, _ []string) error {
	op, _, err := newCacheOperation()
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), op.GetDirectory())
	return nil
}

func runCachePath(cmd *cobra.Command, arg string, id, fuzzy bool) error {
	_, root, err := newCacheOperation()
	if err != nil {
		return err
	}

	source, _, err := gdrive.ResolveSource(arg, id, fuzzy)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), root.EntryPath(source))
	return nil
}
