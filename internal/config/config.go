package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/dashboard-segments/internal/validation"
)

// Config holds runtime configuration loaded from YAML, .env and the environment.
type Config struct {
	DisplayWidth int
	PassInterval time.Duration
	ShowIntro    bool

	HTTPTimeout             time.Duration
	RetryAttempts           int
	RetryBaseDelay          time.Duration
	RetryMaxDelay           time.Duration
	RateLimitRPS            float64
	RateLimitBurst          int
	BreakerFailureThreshold int
	BreakerTimeout          time.Duration
	UserAgent               string

	StatusEnabled bool
	StatusPort    string

	DegradedWindow   time.Duration
	DegradedErrorPct int
	ShutdownTimeout  time.Duration

	MetOfficeAPIKey string

	Segments []SegmentConfig
}

// SegmentConfig is one entry of the segments list, in display order.
type SegmentConfig struct {
	Type string
	// Refresh zero keeps the source default.
	Refresh time.Duration
	// HardCeiling nil keeps the source default; zero disables.
	HardCeiling     *time.Duration
	Lat, Lon        *float64
	Location        string
	ForecastPeriods *int
	BaseURL         string
}

type fileConfig struct {
	Display struct {
		Width        int    `yaml:"width" validate:"omitempty,min=20,max=500"`
		PassInterval string `yaml:"pass_interval"`
		ShowIntro    *bool  `yaml:"show_intro"`
	} `yaml:"display"`

	HTTP struct {
		Timeout          string  `yaml:"timeout"`
		RetryMaxAttempts *int    `yaml:"retry_max_attempts" validate:"omitempty,min=0,max=10"`
		RetryBaseDelay   string  `yaml:"retry_base_delay"`
		RetryMaxDelay    string  `yaml:"retry_max_delay"`
		RateLimitRPS     float64 `yaml:"rate_limit_rps" validate:"gte=0"`
		RateLimitBurst   int     `yaml:"rate_limit_burst" validate:"gte=0"`
		BreakerFailures  *int    `yaml:"breaker_failure_threshold" validate:"omitempty,min=0"`
		BreakerTimeout   string  `yaml:"breaker_timeout"`
		UserAgent        string  `yaml:"user_agent"`
	} `yaml:"http"`

	Status struct {
		Enabled          bool   `yaml:"enabled"`
		Port             string `yaml:"port" validate:"omitempty,numeric"`
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct" validate:"gte=0,lte=100"`
	} `yaml:"status"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Segments []fileSegment `yaml:"segments" validate:"dive"`
}

type fileSegment struct {
	Type            string   `yaml:"type" validate:"required,oneof=metoffice nws yahoo"`
	Refresh         *int     `yaml:"refresh" validate:"omitempty,min=1"`
	HardCeiling     *string  `yaml:"hard_ceiling"`
	Lat             *float64 `yaml:"lat"`
	Lon             *float64 `yaml:"lon"`
	Location        string   `yaml:"location"`
	ForecastPeriods *int     `yaml:"forecast_periods"`
	BaseURL         string   `yaml:"base_url" validate:"omitempty,url"`
}

type secretsFile struct {
	MetOfficeAPIKey string `yaml:"metoffice_api_key"`
}

var validate = validator.New()

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) relative
// to the working directory. A .env file in the working directory is loaded
// first when present. The Met Office key comes from METOFFICE_API_KEY or
// config/secrets.yaml; it is only needed by metoffice segments.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.MetOfficeAPIKey = os.Getenv("METOFFICE_API_KEY")
	if cfg.MetOfficeAPIKey == "" {
		secretsData, err := os.ReadFile(filepath.Join(cwd, "config", "secrets.yaml"))
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets file: %w", err)
			}
		} else {
			var sec secretsFile
			if err := yaml.Unmarshal(secretsData, &sec); err != nil {
				return nil, fmt.Errorf("parse secrets file: %w", err)
			}
			cfg.MetOfficeAPIKey = sec.MetOfficeAPIKey
		}
	}
	return cfg, nil
}

// Parse builds a Config from YAML bytes, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := validate.Struct(&fc); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg := &Config{
		DisplayWidth: fc.Display.Width,
		PassInterval: parseDuration(fc.Display.PassInterval, time.Minute),
		ShowIntro:    true,
	}
	if cfg.DisplayWidth == 0 {
		cfg.DisplayWidth = 40
	}
	if fc.Display.ShowIntro != nil {
		cfg.ShowIntro = *fc.Display.ShowIntro
	}

	cfg.HTTPTimeout = parseDuration(fc.HTTP.Timeout, 10*time.Second)
	cfg.RetryAttempts = 2
	if fc.HTTP.RetryMaxAttempts != nil {
		cfg.RetryAttempts = *fc.HTTP.RetryMaxAttempts
	}
	cfg.RetryBaseDelay = parseDuration(fc.HTTP.RetryBaseDelay, 500*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.HTTP.RetryMaxDelay, 5*time.Second)
	cfg.RateLimitRPS = fc.HTTP.RateLimitRPS
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 1
	}
	cfg.RateLimitBurst = fc.HTTP.RateLimitBurst
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 2
	}
	cfg.BreakerFailureThreshold = 5
	if fc.HTTP.BreakerFailures != nil {
		cfg.BreakerFailureThreshold = *fc.HTTP.BreakerFailures
	}
	cfg.BreakerTimeout = parseDuration(fc.HTTP.BreakerTimeout, 2*time.Minute)
	cfg.UserAgent = strings.TrimSpace(fc.HTTP.UserAgent)
	if cfg.UserAgent == "" {
		cfg.UserAgent = "dashboard-segments/1.0"
	}

	cfg.StatusEnabled = fc.Status.Enabled
	cfg.StatusPort = fc.Status.Port
	if cfg.StatusPort == "" {
		cfg.StatusPort = "8080"
	}
	cfg.DegradedWindow = parseDuration(fc.Status.DegradedWindow, time.Hour)
	cfg.DegradedErrorPct = fc.Status.DegradedErrorPct
	if cfg.DegradedErrorPct == 0 {
		cfg.DegradedErrorPct = 50
	}
	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 10*time.Second)

	for i, fs := range fc.Segments {
		loc, err := validation.ValidateLocation(fs.Location)
		if err != nil {
			return nil, fmt.Errorf("segments[%d].location: %w", i, err)
		}
		if err := validation.ValidateCoordinates(fs.Lat, fs.Lon); err != nil {
			return nil, fmt.Errorf("segments[%d]: %w", i, err)
		}
		sc := SegmentConfig{
			Type:            fs.Type,
			Lat:             fs.Lat,
			Lon:             fs.Lon,
			Location:        loc,
			ForecastPeriods: fs.ForecastPeriods,
			BaseURL:         strings.TrimSpace(fs.BaseURL),
		}
		if fs.Refresh != nil {
			sc.Refresh = time.Duration(*fs.Refresh) * time.Minute
		}
		if fs.HardCeiling != nil {
			d := parseDurationOrZero(*fs.HardCeiling, -1)
			if d < 0 {
				return nil, fmt.Errorf("segments[%d].hard_ceiling: invalid duration %q", i, *fs.HardCeiling)
			}
			sc.HardCeiling = &d
		}
		cfg.Segments = append(cfg.Segments, sc)
	}
	if len(cfg.Segments) == 0 {
		cfg.Segments = []SegmentConfig{{Type: "nws"}, {Type: "yahoo"}}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validateConfig checks cross-field constraints the struct tags cannot express.
func validateConfig(cfg *Config) error {
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		cfg.RetryMaxDelay = cfg.RetryBaseDelay
	}
	if cfg.PassInterval < time.Second {
		return fmt.Errorf("display.pass_interval must be at least 1s, got %s", cfg.PassInterval)
	}
	return nil
}
