package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load builds a Config from defaults, then the YAML file at path if path is
// not empty, then environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), defaultTag); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), envTag); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// tagSource returns the raw value for a field and the name to report in
// errors, or ok=false when the source has nothing for the field.
type tagSource func(field reflect.StructField) (value, name string, ok bool)

func defaultTag(field reflect.StructField) (string, string, bool) {
	v, ok := field.Tag.Lookup("default")
	return v, field.Name, ok && v != ""
}

func envTag(field reflect.StructField) (string, string, bool) {
	name := field.Tag.Get("env")
	if name == "" {
		return "", "", false
	}
	if v := os.Getenv(name); v != "" {
		return v, name, true
	}
	if alt := field.Tag.Get("envAlt"); alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v, alt, true
		}
	}
	return "", name, false
}

// loadStruct recursively populates struct fields from src.
func loadStruct(v reflect.Value, src tagSource) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal, src); err != nil {
				return err
			}
			continue
		}

		value, name, ok := src(field)
		if !ok {
			continue
		}
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is usable and reports every
// problem at once.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, "LIFTLOG_PATH must not be empty")
	}
	switch c.Store.Backend {
	case BackendFS:
		if strings.TrimSpace(c.Store.Root) == "" {
			errs = append(errs, "LIFTLOG_ROOT must not be empty for the fs backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			errs = append(errs, "LIFTLOG_SQLITE_PATH must not be empty for the sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("LIFTLOG_BACKEND (%q) must be one of: fs, sqlite", c.Store.Backend))
	}
	if c.Store.CacheTTL < 0 {
		errs = append(errs, "LIFTLOG_CACHE_TTL must be non-negative")
	}
	if c.Store.CacheMaxSize <= 0 {
		errs = append(errs, "LIFTLOG_CACHE_MAX_SIZE must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("LIFTLOG_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "LIFTLOG_SHUTDOWN_TIMEOUT must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a one-line summary of the configuration for logs.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Store: {Backend: %q, Root: %q, Path: %q, SQLitePath: %q, CacheTTL: %s, CacheMaxSize: %d}, ",
		c.Store.Backend, c.Store.Root, c.Store.Path, c.Store.SQLitePath, c.Store.CacheTTL, c.Store.CacheMaxSize)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}, ", c.Logging.Level, c.Logging.Format)
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}", c.Server.Host, c.Server.Port)
	b.WriteString("}")
	return b.String()
}
