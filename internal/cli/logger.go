package cli

import (
	"github.com/glorpus-work/gdown/internal/logger"
	"github.com/glorpus-work/gdown/pkg/config"
)

// initLogger initializes the global logger for CLI operations. Global flags
// take precedence over the configured settings.
func initLogger(settings config.Settings) {
	if Verbose != nil && *Verbose {
		settings.LogLevel = "debug"
	}
	if LogFile != nil && *LogFile != "" {
		settings.LogFile = *LogFile
	}

	logger.Init(logger.Options{
		Level:      settings.LogLevel,
		NoColor:    NoColor != nil && *NoColor,
		File:       settings.LogFile,
		MaxSizeMB:  settings.LogMaxSize,
		MaxBackups: settings.LogMaxBackups,
		Compress:   true,
	})
}
