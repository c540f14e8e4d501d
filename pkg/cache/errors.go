package cache

import "fmt"

// Common cache errors.
var (
	// ErrCacheClean is returned when there's an error cleaning the cache.
	ErrCacheClean = fmt.Errorf("failed to clean cache")

	// ErrCacheInfo is returned when there's an error getting cache information.
	ErrCacheInfo = fmt.Errorf("failed to get cache info")

	// ErrStaging is returned when a staging directory cannot be created.
	ErrStaging = fmt.Errorf("failed to create staging directory")
)
