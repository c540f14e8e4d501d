// Package config loads, validates and saves the gdown configuration file.
// A missing file yields defaults; every loaded file is checked against the
// supported schema versions.
package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/gdown/pkg/errors"
	"github.com/glorpus-work/gdown/pkg/fsutil"
)

// Config represents the application configuration.
type Config struct {
	// Version is the configuration schema version.
	Version string `yaml:"version"`

	// General settings
	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Cache settings
	CacheDir string `yaml:"cache_dir,omitempty"`

	// Network settings
	HTTPTimeout time.Duration `yaml:"http_timeout" validate:"gte=0"`
	UserAgent   string        `yaml:"user_agent,omitempty"`
	Proxy       string        `yaml:"proxy,omitempty" validate:"omitempty,url"`
	SpeedLimit  int64         `yaml:"speed_limit" validate:"gte=0"` // bytes per second, 0 = unlimited

	// Logging settings
	LogLevel      string `yaml:"log_level"` // debug, info, warn, error
	LogFile       string `yaml:"log_file,omitempty"`
	LogMaxSize    int    `yaml:"log_max_size" validate:"gte=0"` // megabytes
	LogMaxBackups int    `yaml:"log_max_backups" validate:"gte=0"`

	// Output settings
	Quiet bool `yaml:"quiet"`
}

// Default configuration values.
const (
	// CurrentVersion is the schema version written by this release.
	CurrentVersion = "1.0"

	// SupportedVersions is the constraint a loaded file's version must meet.
	SupportedVersions = ">= 1.0, < 2.0"

	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultLogMaxSize is the default log file size in megabytes before rotation.
	DefaultLogMaxSize = 10

	// DefaultLogMaxBackups is the default number of rotated log files kept.
	DefaultLogMaxBackups = 3

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), fsutil.AppName)
	}

	return &Config{
		Version: CurrentVersion,
		Settings: Settings{
			CacheDir:      cacheDir,
			HTTPTimeout:   DefaultHTTPTimeout,
			LogLevel:      "info",
			LogMaxSize:    DefaultLogMaxSize,
			LogMaxBackups: DefaultLogMaxBackups,
		},
	}
}

// LoadConfig loads configuration from a file. A missing file is not an
// error: the defaults are returned instead.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		if stderrors.Is(err, errors.ErrConfigValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigValidation, err)
	}

	return &config, nil
}

// SaveConfig saves configuration to a file, replacing it atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}

	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateVersion(c.Version); err != nil {
		return err
	}
	if err := validateSettings(c.Settings); err != nil {
		return err
	}
	return nil
}

func validateVersion(v string) error {
	parsed, err := version.NewVersion(v)
	if err != nil {
		return errors.Wrapf(errors.ErrConfigVersion, "%q: %v", v, err)
	}
	constraint, err := version.NewConstraint(SupportedVersions)
	if err != nil {
		return errors.Wrap(errors.ErrConfigVersion, err.Error())
	}
	if !constraint.Check(parsed) {
		return errors.Wrapf(errors.ErrConfigVersion, "%s (supported: %s)", v, SupportedVersions)
	}
	return nil
}

func validateSettings(s Settings) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			return errors.Wrap(errors.ErrConfigValidation, verrs[0].Translate(translator))
		}
		return errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	return fsutil.GetConfigPath()
}

// GetCacheDir returns the base cache directory from settings.
func (c *Config) GetCacheDir() string {
	return c.Settings.CacheDir
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = defaults.Settings.CacheDir
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.LogMaxSize == 0 {
		c.Settings.LogMaxSize = defaults.Settings.LogMaxSize
	}
	if c.Settings.LogMaxBackups == 0 {
		c.Settings.LogMaxBackups = defaults.Settings.LogMaxBackups
	}
}
