// Package config loads and validates runtime configuration for the client
// executables and the routing service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
	"github.com/spf13/viper"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

// Config holds all runtime configuration.
type Config struct {
	// Client side.
	APIBaseURL  string // base of /api/route and /api/upload-csv
	DataURL     string // static point source; defaults to APIBaseURL + "/data.json"
	HTTPTimeout time.Duration
	Current     geo.Point // fixed reference position sent with every route request

	// Server side.
	Port           int
	DBDSN          string // empty selects the file-backed point store
	DataFile       string
	MaxUploadBytes int64
	RequestTimeout time.Duration

	LogLevel  string
	LogFormat string
}

const (
	defaultAPIBaseURL     = "http://localhost:9990"
	defaultPort           = 9990
	defaultMaxUploadBytes = 5 << 20
	defaultDataFile       = "./data/data.json"
)

// DefaultCurrent is the reference position used when none is configured.
var DefaultCurrent = geo.Point{Name: "Current", Lat: -6.2, Lng: 106.8}

// Load reads configuration from the environment and, when CONFIG_FILE is set,
// from that file. Environment variables win over file values.
// Returns a ConfigError for any invalid value.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("api_url", defaultAPIBaseURL)
	v.SetDefault("data_url", "")
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("current_name", DefaultCurrent.Name)
	v.SetDefault("current_lat", strconv.FormatFloat(DefaultCurrent.Lat, 'f', -1, 64))
	v.SetDefault("current_lng", strconv.FormatFloat(DefaultCurrent.Lng, 'f', -1, 64))
	v.SetDefault("port", strconv.Itoa(defaultPort))
	v.SetDefault("db_dsn", "")
	v.SetDefault("data_file", defaultDataFile)
	v.SetDefault("max_upload_bytes", strconv.Itoa(defaultMaxUploadBytes))
	v.SetDefault("request_timeout", "10s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &ConfigError{Field: "CONFIG_FILE", Message: fmt.Sprintf("read %s: %v", path, err)}
		}
	}

	cfg := &Config{
		APIBaseURL: strings.TrimRight(v.GetString("api_url"), "/"),
		DataURL:    v.GetString("data_url"),
		DBDSN:      v.GetString("db_dsn"),
		DataFile:   v.GetString("data_file"),
		LogLevel:   v.GetString("log_level"),
		LogFormat:  v.GetString("log_format"),
		Current: geo.Point{
			Name: v.GetString("current_name"),
		},
	}

	if _, err := url.ParseRequestURI(cfg.APIBaseURL); err != nil {
		return nil, &ConfigError{Field: "API_URL", Message: "must be an absolute URL"}
	}
	if cfg.DataURL == "" {
		cfg.DataURL = cfg.APIBaseURL + "/data.json"
	}

	var err error
	if cfg.HTTPTimeout, err = parseDuration(v, "http_timeout"); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = parseDuration(v, "request_timeout"); err != nil {
		return nil, err
	}
	if cfg.Current.Lat, err = parseFloat(v, "current_lat"); err != nil {
		return nil, err
	}
	if cfg.Current.Lng, err = parseFloat(v, "current_lng"); err != nil {
		return nil, err
	}

	port, err := strconv.Atoi(v.GetString("port"))
	if err != nil {
		return nil, &ConfigError{Field: "PORT", Message: "must be a valid integer"}
	}
	cfg.Port = port

	maxUpload, err := strconv.ParseInt(v.GetString("max_upload_bytes"), 10, 64)
	if err != nil {
		return nil, &ConfigError{Field: "MAX_UPLOAD_BYTES", Message: "must be a valid integer"}
	}
	cfg.MaxUploadBytes = maxUpload

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate re-checks field constraints on an already-constructed Config.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"})
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, &ConfigError{Field: "HTTP_TIMEOUT", Message: "must be positive"})
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, &ConfigError{Field: "REQUEST_TIMEOUT", Message: "must be positive"})
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, &ConfigError{Field: "MAX_UPLOAD_BYTES", Message: "must be positive"})
	}
	if err := c.Current.Validate(); err != nil {
		errs = append(errs, &ConfigError{Field: "CURRENT", Message: err.Error()})
	}
	if c.DBDSN == "" && c.DataFile == "" {
		errs = append(errs, &ConfigError{Field: "DATA_FILE", Message: "required when DB_DSN is not set"})
	}
	return errors.Join(errs...)
}

// RouteURL is the routing endpoint.
func (c *Config) RouteURL() string { return c.APIBaseURL + "/api/route" }

// UploadURL is the CSV ingestion endpoint.
func (c *Config) UploadURL() string { return c.APIBaseURL + "/api/upload-csv" }

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &ConfigError{Field: strings.ToUpper(key), Message: fmt.Sprintf("invalid duration %q", raw)}
	}
	return d, nil
}

func parseFloat(v *viper.Viper, key string) (float64, error) {
	raw := v.GetString(key)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ConfigError{Field: strings.ToUpper(key), Message: fmt.Sprintf("invalid number %q", raw)}
	}
	return f, nil
}
