package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/gdown/pkg/errors"
)

// SetValue sets a configuration value by its YAML key.
// Supported keys:
//   - cache_dir, user_agent, proxy, log_level, log_file: string
//   - http_timeout: duration (e.g. 30s)
//   - speed_limit, log_max_size, log_max_backups: integer
//   - quiet: bool
func (c *Config) SetValue(key, value string) error {
	s := &c.Settings
	switch key {
	case "cache_dir":
		s.CacheDir = value
	case "user_agent":
		s.UserAgent = value
	case "proxy":
		s.Proxy = value
	case "log_level":
		s.LogLevel = value
	case "log_file":
		s.LogFile = value
	case "http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return errors.Wrapf(errors.ErrConfigValidation, "invalid duration for %s: %s", key, value)
		}
		s.HTTPTimeout = d
	case "speed_limit":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return errors.Wrapf(errors.ErrConfigValidation, "invalid integer for %s: %s", key, value)
		}
		s.SpeedLimit = n
	case "log_max_size", "log_max_backups":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(errors.ErrConfigValidation, "invalid integer for %s: %s", key, value)
		}
		if key == "log_max_size" {
			s.LogMaxSize = n
		} else {
			s.LogMaxBackups = n
		}
	case "quiet":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w for %s: %s", errors.ErrInvalidBoolValue, key, value)
		}
		s.Quiet = b
	default:
		return errors.ErrUnknownConfigKeyWithName(key)
	}
	return nil
}

// GetValue returns a configuration value by its YAML key.
func (c *Config) GetValue(key string) (string, error) {
	value, ok := c.ToMap()[key]
	if !ok {
		return "", errors.ErrUnknownConfigKeyWithName(key)
	}
	return value, nil
}

// Keys returns the settable configuration keys in sorted order.
func Keys() []string {
	t := reflect.TypeOf(Settings{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if key := yamlKey(t.Field(i).Name); key != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// ToMap returns all settings as strings keyed by their YAML names.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)

	settingsValue := reflect.ValueOf(c.Settings)
	settingsType := settingsValue.Type()

	for i := 0; i < settingsValue.NumField(); i++ {
		key := yamlKey(settingsType.Field(i).Name)
		if key == "" {
			continue
		}

		fieldValue := settingsValue.Field(i)
		var strValue string
		if stringer, ok := fieldValue.Interface().(fmt.Stringer); ok {
			strValue = stringer.String()
		} else {
			switch fieldValue.Kind() {
			case reflect.Bool:
				strValue = strconv.FormatBool(fieldValue.Bool())
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				strValue = strconv.FormatInt(fieldValue.Int(), 10)
			case reflect.String:
				strValue = fieldValue.String()
			default:
				strValue = fmt.Sprintf("%v", fieldValue.Interface())
			}
		}
		result[key] = strValue
	}

	return result
}

// yamlKey returns the YAML key of a Settings field, "" if it has none.
func yamlKey(fieldName string) string {
	field, ok := reflect.TypeOf(Settings{}).FieldByName(fieldName)
	if !ok {
		return ""
	}
	tag := field.Tag.Get("yaml")
	if tag == "" || tag == "-" {
		return ""
	}
	return strings.Split(tag, ",")[0]
}
