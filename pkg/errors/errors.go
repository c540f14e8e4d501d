// Package errors holds the sentinel errors shared across gdown and small
// helpers for wrapping them with context.
package errors

import "fmt"

// Common error types.
var (
	// Argument errors.
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrEmptySource     = fmt.Errorf("source URL or file id cannot be empty")

	// Integrity errors.
	ErrFileHashMismatch = fmt.Errorf("file hash mismatch")

	// Transport errors.
	ErrDownloadFailed     = fmt.Errorf("download failed")
	ErrUnsupportedScheme  = fmt.Errorf("unsupported URL scheme")
	ErrPublicLinkMissing  = fmt.Errorf("cannot retrieve the public link of the file")
	ErrConfirmationFailed = fmt.Errorf("failed to resolve download confirmation")

	// Filesystem errors.
	ErrIO         = fmt.Errorf("i/o error")
	ErrLockFailed = fmt.Errorf("failed to acquire cache lock")

	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists (use --force to overwrite)")
	ErrConfigVersion     = fmt.Errorf("unsupported config version")
	ErrUnknownConfigKey  = fmt.Errorf("unknown configuration key")
	ErrInvalidBoolValue  = fmt.Errorf("invalid boolean value")
	ErrInvalidLogLevel   = fmt.Errorf("invalid log level")

	// Postprocess errors.
	ErrPostprocess  = fmt.Errorf("postprocess failed")
	ErrScriptResult = fmt.Errorf("postprocess script error")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrInvalidLogLevelWithDetails is a helper to create a wrapped error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrUnknownConfigKeyWithName creates an error for a configuration key that does not exist.
func ErrUnknownConfigKeyWithName(key string) error {
	return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
}

// ErrUnsupportedSchemeWithName creates an error for a source whose scheme no transport handles.
func ErrUnsupportedSchemeWithName(scheme string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
}
