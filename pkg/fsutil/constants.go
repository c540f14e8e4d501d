package fsutil

// File and directory permission constants used for cache entries, staging
// directories and the config file.
const (
	// Regular files.
	FileModeDefault = 0o644 // -rw-r--r--: cache entries and config

	// Directories.
	DirModeDefault = 0o755 // drwxr-xr-x: cache root and entry parents
	DirModePrivate = 0o700 // drwx------: staging directories
)
