package cache

import (
	"context"
	"fmt"

	"github.com/glorpus-work/gdown/internal/logger"
)

// Operation renders cache maintenance results for humans.
type Operation struct {
	manager Manager
}

// NewOperation creates a new cache operation instance.
func NewOperation(manager Manager) *Operation {
	return &Operation{manager: manager}
}

// Clean cleans the cache based on the provided options and returns a summary.
func (op *Operation) Clean(ctx context.Context, options CleanOptions) (string, error) {
	logger.Debug("Cleaning cache", logger.Fields{
		"all":     options.All,
		"entries": options.Entries,
		"staging": options.Staging,
	})

	result, err := op.manager.Clean(ctx, options)
	if err != nil {
		return "", fmt.Errorf("failed to clean cache: %w", err)
	}

	if result.TotalFreed == 0 && result.EntryFiles == 0 && result.StagingDirs == 0 {
		return "No files were removed from the cache.", nil
	}

	msg := fmt.Sprintf("Successfully cleaned cache. Freed %s of disk space.", formatBytes(result.TotalFreed))
	if result.EntryFiles > 0 {
		msg += fmt.Sprintf("\n- Entries: %s (%d files)", formatBytes(result.EntryFreed), result.EntryFiles)
	}
	if result.StagingDirs > 0 {
		msg += fmt.Sprintf("\n- Staging: %s (%d directories)", formatBytes(result.StagingFreed), result.StagingDirs)
	}
	return msg, nil
}

// GetInfo returns information about the cache.
func (op *Operation) GetInfo() (string, error) {
	info, err := op.manager.GetInfo()
	if err != nil {
		return "", fmt.Errorf("failed to get cache info: %w", err)
	}

	return fmt.Sprintf(`Cache Information:
  Directory:    %s
  Total Size:   %s
  Entries:      %s (%d files)
  Staging:      %s (%d directories)`,
		info.Directory,
		formatBytes(info.TotalSize),
		formatBytes(info.EntrySize),
		info.EntryFiles,
		formatBytes(info.StagingSize),
		info.StagingDirs,
	), nil
}

// GetDirectory returns the cache directory path.
func (op *Operation) GetDirectory() string {
	return op.manager.GetDirectory()
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"K", "M", "G", "T", "P", "E"}
	return fmt.Sprintf("%.1f %sB", float64(bytes)/float64(div), units[exp])
}
