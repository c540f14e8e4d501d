package fsutil

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the name of the application used in paths.
	AppName = "gdown"

	// ConfigFileName is the name of the YAML config file inside the config directory.
	ConfigFileName = "config.yaml"
)

// GetCacheDir returns the platform-specific cache root for the application.
// On Linux: ~/.cache/gdown/
// On macOS: ~/Library/Caches/gdown/
// On Windows: %LOCALAPPDATA%\gdown\
func GetCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// GetConfigPath returns the default path of the config file.
// On Linux: ~/.config/gdown/config.yaml
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName, ConfigFileName), nil
}
