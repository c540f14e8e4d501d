package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gdown/internal/cli"
)

var (
	configPath string
	verbose    bool
	noColor    bool
	logFile    string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gdown",
		Short: "A caching downloader for Google Drive and other URLs",
		Long: `gdown downloads files from Google Drive, HTTP(S) and object storage URLs
into a local cache:
- reuses cached files, verifying them against an optional MD5 digest
- follows Google Drive large-file confirmation pages
- extracts archives or runs a script on the downloaded file`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a rotated file instead of stderr")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.NoColor = &noColor
	cli.LogFile = &logFile

	// Add subcommands
	cmd.AddCommand(
		cli.NewDownloadCmd(),
		cli.NewCacheCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
