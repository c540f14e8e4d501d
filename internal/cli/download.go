package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/gdown/internal/logger"
	"github.com/glorpus-work/gdown/pkg/cached"
	"github.com/glorpus-work/gdown/pkg/download"
	"github.com/glorpus-work/gdown/pkg/errors"
	"github.com/glorpus-work/gdown/pkg/gdrive"
	"github.com/glorpus-work/gdown/pkg/postprocess"
)

type downloadFlags struct {
	output    string
	md5       string
	quiet     bool
	fuzzy     bool
	id        bool
	extract   bool
	extractTo string
	script    string
	speed     string
	proxy     string
	userAgent string
	noCache   bool
}

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	var flags downloadFlags

	cmd := &cobra.Command{
		Use:   "download URL_OR_ID",
		Short: "Download a file through the cache",
		Long: `Download a file from Google Drive or any supported URL into the local cache.

A file already present in the cache is reused. With --md5 the cached copy is
verified first and downloaded again when it does not match.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, args[0], flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "O", "", "output file path (default: cache entry for the URL)")
	f.StringVar(&flags.md5, "md5", "", "expected MD5 digest of the file")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "suppress informational output")
	f.BoolVar(&flags.fuzzy, "fuzzy", false, "extract the file id from any Google Drive URL")
	f.BoolVar(&flags.id, "id", false, "treat the argument as a Google Drive file id")
	f.BoolVar(&flags.extract, "extract", false, "extract the downloaded archive")
	f.StringVar(&flags.extractTo, "extract-to", "", "directory to extract into (default: next to the file)")
	f.StringVar(&flags.script, "script", "", "Tengo script to run on the downloaded file")
	f.StringVar(&flags.speed, "speed", "", "download speed limit per second, e.g. 500K or 10MB (SI), 512KiB or 8MiB (binary)")
	f.StringVar(&flags.proxy, "proxy", "", "proxy URL for HTTP downloads")
	f.StringVar(&flags.userAgent, "user-agent", "", "User-Agent header for HTTP downloads")
	f.BoolVar(&flags.noCache, "no-cache", false, "download again even if the file is already present; it is replaced only after a successful transfer")

	return cmd
}

func runDownload(cmd *cobra.Command, arg string, flags downloadFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	quiet := flags.quiet || cfg.Settings.Quiet

	source, warning, err := gdrive.ResolveSource(arg, flags.id, flags.fuzzy)
	if err != nil {
		return err
	}
	if warning != "" && !quiet {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), warning)
	}

	opts, err := transportOptions(cfg.Settings.SpeedLimit, cfg.Settings.Proxy, flags)
	if err != nil {
		return err
	}
	opts.Quiet = quiet

	action, err := postprocessAction(source, flags)
	if err != nil {
		return err
	}

	downloader := newDownloader(cfg, cached.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()))

	path, err := downloader.Download(cmd.Context(), cached.Request{
		URL:         source,
		Path:        flags.output,
		MD5:         flags.md5,
		Quiet:       quiet,
		Force:       flags.noCache,
		Postprocess: action,
		Transport:   opts,
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// transportOptions merges configured transport settings with flag overrides.
func transportOptions(speedLimit int64, proxy string, flags downloadFlags) (download.Options, error) {
	opts := download.Options{
		SpeedLimit: speedLimit,
		Proxy:      proxy,
		UserAgent:  flags.userAgent,
	}
	if flags.proxy != "" {
		opts.Proxy = flags.proxy
	}
	if flags.speed != "" {
		limit, err := humanize.ParseBytes(flags.speed)
		if err != nil {
			return download.Options{}, errors.Wrapf(errors.ErrInvalidArgument, "invalid speed %q: %v", flags.speed, err)
		}
		opts.SpeedLimit = int64(limit)
	}
	return opts, nil
}

func postprocessAction(source string, flags downloadFlags) (postprocess.Action, error) {
	var actions []postprocess.Action

	if flags.extract || flags.extractTo != "" {
		actions = append(actions, postprocess.Extract(flags.extractTo, func(files []string) {
			logger.Info("Extracted archive", logger.Fields{"files": len(files)})
		}))
	}

	if flags.script != "" {
		script, err := postprocess.ScriptFile(flags.script, map[string]interface{}{"url": source})
		if err != nil {
			return nil, err
		}
		actions = append(actions, script)
	}

	return postprocess.Chain(actions...), nil
}
