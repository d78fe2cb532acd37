// Package config builds the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr               string
	LogLevel           string
	LogConsole         bool
	LogSampleN         int
	URLRoot            string
	BikeshareDBURL     string
	SidewalkDBURL      string
	MetricsEnabled     bool
	CORSAllowedOrigins []string
}

// ConfigError names one invalid setting.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// Load reads a .env file when present, without overriding variables that are
// already set, and then builds the Config.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	return Config{
		Addr:           getenv("ADDR", ":8000"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogSampleN:     getint("LOG_SAMPLE_N", 0),
		URLRoot:        normalizeRoot(os.Getenv("URL_ROOT")),
		BikeshareDBURL: os.Getenv("BIKESHARE_DATABASE_URL"),
		SidewalkDBURL: firstEnv(
			"SIDEWALK_DATABASE_URL",
			"SUPERUSER_SIDEWALK_PRIORITIES_DATABASE_URL",
			"DATABASE_URL",
		),
		MetricsEnabled:     getbool("METRICS_ENABLED", true),
		CORSAllowedOrigins: getlist("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

// Validate reports every invalid setting at once. Missing dataset URLs are
// not errors: their endpoints answer 503 and readiness fails.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, &ConfigError{Key: "ADDR", Reason: "must not be empty"})
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, &ConfigError{Key: "LOG_LEVEL", Reason: fmt.Sprintf("unknown level %q", c.LogLevel)})
	}
	if c.LogSampleN < 0 {
		errs = append(errs, &ConfigError{Key: "LOG_SAMPLE_N", Reason: "must be >= 0"})
	}
	for key, v := range map[string]string{
		"BIKESHARE_DATABASE_URL": c.BikeshareDBURL,
		"SIDEWALK_DATABASE_URL":  c.SidewalkDBURL,
	} {
		if v == "" {
			continue
		}
		if u, err := url.Parse(v); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errs = append(errs, &ConfigError{Key: key, Reason: "must be a postgres:// URL"})
		}
	}
	return errors.Join(errs...)
}

// normalizeRoot turns "api", "/api/" and "/api" into "/api"; empty stays empty.
func normalizeRoot(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return ""
	}
	return "/" + s
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

// parse "a, b,c" into a list, dropping blanks
func getlist(k string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	var out []string
	for p := range strings.SplitSeq(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
