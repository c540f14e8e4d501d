package cache

import (
	"context"
	"time"
)

// Manager defines the interface for cache maintenance operations.
type Manager interface {
	Clean(ctx context.Context, options CleanOptions) (*CleanResult, error)
	GetInfo() (*Info, error)
	GetDirectory() string
}

// CleanOptions specifies what to clean from the cache.
type CleanOptions struct {
	All     bool
	Entries bool
	Staging bool

	// StagingOlderThan protects staging directories younger than this age,
	// which may belong to downloads still in flight.
	StagingOlderThan time.Duration
}

// CleanResult contains information about what was cleaned.
type CleanResult struct {
	TotalFreed   int64
	EntryFreed   int64
	EntryFiles   int
	StagingFreed int64
	StagingDirs  int
}

// Info represents cache information.
type Info struct {
	Directory   string
	TotalSize   int64
	EntrySize   int64
	EntryFiles  int
	StagingSize int64
	StagingDirs int
}
