package cli

import "time"

// Default values for CLI flags and output.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2

	// DefaultStagingAge is how old a staging directory must be before
	// "cache clean --staging" removes it.
	DefaultStagingAge = time.Hour
)
