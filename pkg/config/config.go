package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-travel-admin/internal/log"
)

const (
	DefaultBaseURL   = "http://localhost:8084"
	DefaultAPIPrefix = "/api"
	DefaultTimeout   = 10 * time.Second
	DefaultLogLevel  = "info"

	EnvBaseURL  = "TRAVEL_API_URL"
	EnvTimeout  = "TRAVEL_API_TIMEOUT"
	EnvLogLevel = "TRAVEL_LOG_LEVEL"
	EnvConfig   = "TRAVEL_CONFIG"
)

// Config holds the settings of the admin client.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	APIPrefix string        `yaml:"api_prefix"`
	Timeout   time.Duration `yaml:"timeout"`
	LogLevel  string        `yaml:"log_level"`
	// Templates is an optional directory whose templates override the
	// bundled ones.
	Templates string `yaml:"templates"`
	// Screen opens one entity screen directly instead of the home menu.
	Screen string `yaml:"screen"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		APIPrefix: DefaultAPIPrefix,
		Timeout:   DefaultTimeout,
		LogLevel:  DefaultLogLevel,
	}
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Parse layers the sources in order: defaults, the YAML file named by
// -config (or TRAVEL_CONFIG), environment variables, then flags.
func Parse(name string, args []string, lookup LookupFunc, output io.Writer) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}
	var (
		path      string
		baseURL   string
		prefix    string
		timeout   time.Duration
		level     string
		templates string
		screen    string
		debug     bool
	)
	fs.StringVar(&path, "config", "", "path to a YAML config file")
	fs.StringVar(&baseURL, "url", "", "travel API base URL (default "+DefaultBaseURL+")")
	fs.StringVar(&prefix, "prefix", "", "API path prefix (default "+DefaultAPIPrefix+")")
	fs.DurationVar(&timeout, "timeout", 0, "per request timeout (default 10s)")
	fs.StringVar(&level, "log-level", "", "log level: error, warn, info, debug")
	fs.StringVar(&templates, "templates", "", "directory with template overrides")
	fs.StringVar(&screen, "screen", "", "open one screen (aircraft, airports, cities, passengers)")
	fs.BoolVar(&debug, "debug", false, "log at DEBUG level")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()

	if path == "" {
		path, _ = lookup(EnvConfig)
	}
	if path = strings.TrimSpace(path); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if cfg, err = Decode(cfg, raw); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.BaseURL = baseURL
		case "prefix":
			cfg.APIPrefix = prefix
		case "timeout":
			cfg.Timeout = timeout
		case "log-level":
			cfg.LogLevel = level
		case "templates":
			cfg.Templates = templates
		case "screen":
			cfg.Screen = screen
		}
	})
	if debug {
		cfg.LogLevel = "debug"
	}

	return cfg, cfg.Validate()
}

// Decode overlays the YAML document raw on base. Keys absent from the
// document keep their base value.
func Decode(base Config, raw []byte) (Config, error) {
	cfg := base
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) applyEnv(lookup LookupFunc) error {
	if v, ok := lookup(EnvBaseURL); ok && strings.TrimSpace(v) != "" {
		cfg.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvTimeout); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	return nil
}

// Validate reports settings the client cannot run with.
func (cfg Config) Validate() error {
	var errs []error
	if strings.TrimSpace(cfg.BaseURL) == "" {
		errs = append(errs, errors.New("config: base url is required"))
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("config: timeout must be positive, got %s", cfg.Timeout))
	}
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, falling back to info.
func (cfg Config) Level() log.Level {
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
