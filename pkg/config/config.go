// Package config holds the client configuration and the owned runtime state
// (the pinned backend base URL) shared by every component.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL     = "https://api.veilo.app"
	DevelopmentAPIURL = "http://localhost:3001"

	DefaultHealthPath     = "/api/health"
	DefaultHealthInterval = 30 * time.Second
	DefaultHealthTimeout  = 10 * time.Second
	DefaultProbeTimeout   = 5 * time.Second
	DefaultRetryMax       = 2
	DefaultRetryWaitMin   = 200 * time.Millisecond
	DefaultRetryWaitMax   = 2 * time.Second
	DefaultAttemptLogSize = 100
	DefaultEmergencyDB    = "veilo-emergency.db"
	DefaultStatusAddr     = "localhost:8090"
	DefaultLogLevel       = "info"
)

// Environment variables read by Load.
const (
	EnvAPIURL      = "VEILO_API_URL"
	EnvDevelopment = "VEILO_DEV"
	EnvLogLevel    = "VEILO_LOG_LEVEL"
	EnvEmergencyDB = "VEILO_EMERGENCY_DB"
)

// DefaultFallbackURLs are tried after the pinned backend in production.
var DefaultFallbackURLs = []string{
	"https://veilo-backend.onrender.com",
	"https://backup.api.veilo.app",
}

// DevelopmentFallbackURLs replace DefaultFallbackURLs when development mode is on.
var DevelopmentFallbackURLs = []string{
	"http://127.0.0.1:3001",
	"http://localhost:5000",
}

// Config is the client configuration.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	FallbackURLs   []string      `yaml:"fallback_urls"`
	Development    bool          `yaml:"development"`
	HealthPath     string        `yaml:"health_path"`
	HealthInterval time.Duration `yaml:"health_interval"`
	HealthTimeout  time.Duration `yaml:"health_timeout"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RetryMax       *int          `yaml:"retry_max"`
	RetryWaitMin   time.Duration `yaml:"retry_wait_min"`
	RetryWaitMax   time.Duration `yaml:"retry_wait_max"`
	AttemptLogSize int           `yaml:"attempt_log_size"`
	EmergencyDB    string        `yaml:"emergency_db"`
	StatusAddr     string        `yaml:"status_addr"`
	LogLevel       string        `yaml:"log_level"`
}

// ValidationError aggregates multiple configuration validation failures.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool {
	var other *ValidationError
	return errors.As(target, &other)
}

// Overrides are command-line values applied on top of the file and the
// environment, before defaults are filled in. Empty fields are ignored.
type Overrides struct {
	APIURL      string
	Development *bool
	LogLevel    string
	EmergencyDB string
	StatusAddr  string
}

func (o Overrides) apply(c *Config) {
	if strings.TrimSpace(o.APIURL) != "" {
		c.APIURL = strings.TrimSpace(o.APIURL)
	}
	if o.Development != nil {
		c.Development = *o.Development
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.EmergencyDB != "" {
		c.EmergencyDB = o.EmergencyDB
	}
	if o.StatusAddr != "" {
		c.StatusAddr = o.StatusAddr
	}
}

// Default returns a configuration built from defaults and the environment only.
func Default() (*Config, error) {
	return LoadWithOverrides("", Overrides{})
}

// Load reads a YAML configuration file, applies environment overrides and
// defaults, and validates the result. An empty path behaves like Default.
func Load(path string) (*Config, error) {
	return LoadWithOverrides(path, Overrides{})
}

// LoadWithOverrides is Load with command-line overrides taking precedence
// over the file and the environment.
func LoadWithOverrides(path string, o Overrides) (*Config, error) {
	if path == "" {
		return finish(&Config{}, o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return decode(f, o)
}

func decode(r io.Reader, o Overrides) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return finish(&cfg, o)
}

func finish(cfg *Config, o Overrides) (*Config, error) {
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	o.apply(cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvAPIURL); ok && strings.TrimSpace(v) != "" {
		c.APIURL = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvDevelopment); ok && v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvDevelopment, err)
		}
		c.Development = dev
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvEmergencyDB); ok && v != "" {
		c.EmergencyDB = v
	}
	return nil
}

// Retries returns retry_max, or DefaultRetryMax when it was never set.
// An explicit zero disables retries.
func (c *Config) Retries() int {
	if c.RetryMax == nil {
		return DefaultRetryMax
	}
	return *c.RetryMax
}

// ApplyDefaults fills every unset field. Development mode switches the default
// API URL and fallback list to local development backends.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.APIURL) == "" {
		c.APIURL = DefaultAPIURL
		if c.Development {
			c.APIURL = DevelopmentAPIURL
		}
	}
	if c.FallbackURLs == nil {
		if c.Development {
			c.FallbackURLs = append([]string(nil), DevelopmentFallbackURLs...)
		} else {
			c.FallbackURLs = append([]string(nil), DefaultFallbackURLs...)
		}
	}
	if c.HealthPath == "" {
		c.HealthPath = DefaultHealthPath
	}
	if c.HealthInterval == 0 {
		c.HealthInterval = DefaultHealthInterval
	}
	if c.HealthTimeout == 0 {
		c.HealthTimeout = DefaultHealthTimeout
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.RetryMax == nil {
		retryMax := DefaultRetryMax
		c.RetryMax = &retryMax
	}
	if c.RetryWaitMin == 0 {
		c.RetryWaitMin = DefaultRetryWaitMin
	}
	if c.RetryWaitMax == 0 {
		c.RetryWaitMax = DefaultRetryWaitMax
	}
	if c.AttemptLogSize == 0 {
		c.AttemptLogSize = DefaultAttemptLogSize
	}
	if c.EmergencyDB == "" {
		c.EmergencyDB = DefaultEmergencyDB
	}
	if c.StatusAddr == "" {
		c.StatusAddr = DefaultStatusAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.APIURL = NormalizeURL(c.APIURL)
	for i := range c.FallbackURLs {
		c.FallbackURLs[i] = NormalizeURL(c.FallbackURLs[i])
	}
}

// Validate checks for semantic correctness in the configuration.
func (c *Config) Validate() error {
	problems := make([]string, 0)

	if !validURL(c.APIURL) {
		problems = append(problems, fmt.Sprintf("api_url %q must start with http:// or https://", c.APIURL))
	}
	for i, u := range c.FallbackURLs {
		if !validURL(u) {
			problems = append(problems, fmt.Sprintf("fallback_urls[%d] %q must start with http:// or https://", i, u))
		}
	}
	if !strings.HasPrefix(c.HealthPath, "/") {
		problems = append(problems, "health_path must start with /")
	}
	if c.HealthInterval < 0 {
		problems = append(problems, "health_interval must be positive")
	}
	if c.HealthTimeout < 0 {
		problems = append(problems, "health_timeout must be positive")
	}
	if c.ProbeTimeout < 0 {
		problems = append(problems, "probe_timeout must be positive")
	}
	if c.RequestTimeout < 0 {
		problems = append(problems, "request_timeout must be zero or positive")
	}
	if c.Retries() < 0 {
		problems = append(problems, "retry_max must be zero or positive")
	}
	if c.RetryWaitMax < c.RetryWaitMin {
		problems = append(problems, "retry_wait_max must be greater than or equal to retry_wait_min")
	}
	if c.AttemptLogSize < 0 {
		problems = append(problems, "attempt_log_size must be positive")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Candidates returns the ordered backend candidate list: the API URL followed
// by the fallbacks in declared order, without duplicates.
func (c *Config) Candidates() []string {
	return Dedupe(append([]string{c.APIURL}, c.FallbackURLs...))
}

// Dedupe returns urls in their original order with repeated entries dropped.
func Dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = NormalizeURL(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// NormalizeURL trims whitespace and trailing slashes from a base URL.
func NormalizeURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

func validURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
