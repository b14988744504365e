package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables, applies
// defaults for unset values, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct && fieldType.Type != reflect.TypeOf(time.Duration(0)) {
			if err := loadStruct(field); err != nil {
				return err
			}
			continue
		}

		envKey := fieldType.Tag.Get("env")
		if envKey == "" {
			continue
		}

		raw := os.Getenv(envKey)
		if raw == "" {
			raw = fieldType.Tag.Get("default")
		}
		if raw == "" {
			if fieldType.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envKey)
			}
			continue
		}

		if err := setField(field, raw); err != nil {
			return fmt.Errorf("parsing %s: %w", envKey, err)
		}
	}

	return nil
}

// setField converts a string to the field's type and assigns it.
func setField(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", raw, err)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", raw, err)
		}
		field.SetInt(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean %q: %w", raw, err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is usable. It collects all
// problems rather than stopping at the first one.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("COVIDFEED_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "COVIDFEED_READ_TIMEOUT must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "COVIDFEED_WRITE_TIMEOUT must be positive")
	}
	if c.Server.IdleTimeout <= 0 {
		errs = append(errs, "COVIDFEED_IDLE_TIMEOUT must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "COVIDFEED_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "COVIDFEED_REQUEST_TIMEOUT must be positive")
	}

	if c.Paths.InputDir == "" {
		errs = append(errs, "COVIDFEED_INPUT_DIR must not be empty")
	}
	if c.Paths.OutputDir == "" {
		errs = append(errs, "COVIDFEED_OUTPUT_DIR must not be empty")
	}

	if c.Build.DateKey == "" {
		errs = append(errs, "COVIDFEED_DATE_KEY must not be empty")
	}
	if c.Build.WatchInput && c.Build.WatchDebounce <= 0 {
		errs = append(errs, "COVIDFEED_WATCH_DEBOUNCE must be positive when watching is enabled")
	}

	if c.Fetch.Timeout <= 0 {
		errs = append(errs, "COVIDFEED_FETCH_TIMEOUT must be positive")
	}
	if c.Fetch.MaxBytes <= 0 {
		errs = append(errs, "COVIDFEED_FETCH_MAX_BYTES must be positive")
	}
	if c.Fetch.Refresh < 0 {
		errs = append(errs, "COVIDFEED_FETCH_REFRESH must not be negative")
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute < 1 {
		errs = append(errs, "COVIDFEED_RATE_LIMIT_PER_MINUTE must be at least 1")
	}

	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "COVIDFEED_API_KEYS must be set when COVIDFEED_REQUIRE_API_KEY is enabled")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("COVIDFEED_LOG_LEVEL must be debug, info, warn, or error, got %q", c.Logging.Level))
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("COVIDFEED_LOG_FORMAT must be text or json, got %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a human-readable summary of the configuration.
func (c *Config) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Server:  %s\n", c.Server.Addr())
	fmt.Fprintf(&b, "Input:   %s\n", c.Paths.InputDir)
	fmt.Fprintf(&b, "Output:  %s\n", c.Paths.OutputDir)
	fmt.Fprintf(&b, "DateKey: %s\n", c.Build.DateKey)
	if c.Build.ScheduleSpec != "" {
		fmt.Fprintf(&b, "Schedule: %s\n", c.Build.ScheduleSpec)
	}
	if c.Build.WatchInput {
		fmt.Fprintf(&b, "Watch:   %s debounce\n", c.Build.WatchDebounce)
	}
	fmt.Fprintf(&b, "Fetch:   timeout %s, cap %d bytes\n", c.Fetch.Timeout, c.Fetch.MaxBytes)
	if c.Rate.Enabled {
		fmt.Fprintf(&b, "Rate:    %d req/min\n", c.Rate.RequestsPerMinute)
	} else {
		b.WriteString("Rate:    disabled\n")
	}
	if c.Security.RequireAPIKey {
		fmt.Fprintf(&b, "Auth:    API key required (%d configured)\n", len(c.Security.APIKeys))
	}
	fmt.Fprintf(&b, "Logging: %s (%s)", c.Logging.Level, c.Logging.Format)

	return b.String()
}
