package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultClientTimeout bounds every outbound call. The skill must answer well inside the voice
// platform's response window.
const DefaultClientTimeout = 800 * time.Millisecond

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	DarkSkyAPIKey  string
	DarkSkyURL     string
	GeocodioAPIKey string
	GeocodioURL    string
	ClientTimeout  time.Duration

	SkillID     string
	CountryCode string
	// RequireSkillID makes a missing skill ID fatal. Defaults to true outside ENV_NAME=dev.
	RequireSkillID bool

	ForecastHours    []int
	MaxAddressLength int

	RequestTimeout  time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
	ShutdownTimeout time.Duration

	BreakerEnabled          bool
	BreakerFailureThreshold int
	BreakerOpenTimeout      time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Upstream struct {
		DarkSkyURL  string `yaml:"darksky_url"`
		GeocodioURL string `yaml:"geocodio_url"`
		Timeout     string `yaml:"timeout"`
	} `yaml:"upstream"`

	Skill struct {
		CountryCode    string `yaml:"country_code"`
		RequireSkillID *bool  `yaml:"require_skill_id"`
	} `yaml:"skill"`

	Forecast struct {
		Hours []int `yaml:"hours"`
	} `yaml:"forecast"`

	Request struct {
		Timeout          string `yaml:"timeout"`
		MaxAddressLength int    `yaml:"max_address_length"`
	} `yaml:"request"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
		CircuitBreaker struct {
			Enabled          *bool  `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			OpenTimeout      string `yaml:"open_timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	DarkSkyAPIKey  string `yaml:"darksky_api_key"`
	GeocodioAPIKey string `yaml:"geocodio_api_key"`
	SkillID        string `yaml:"skill_id"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// Secrets come from DARKSKY_API_KEY, GEOCODIO_API_KEY and JAKESKY_SKILL_ID, falling back to the
// secrets file. Call from project root.
func Load() (*Config, error) {
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

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := loadSecrets(filepath.Join(cwd, "config", "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.DarkSkyAPIKey = firstNonEmpty(os.Getenv("DARKSKY_API_KEY"), sec.DarkSkyAPIKey)
	if cfg.DarkSkyAPIKey == "" {
		return nil, fmt.Errorf("DARKSKY_API_KEY required (set env or config/secrets.yaml darksky_api_key)")
	}
	cfg.GeocodioAPIKey = firstNonEmpty(os.Getenv("GEOCODIO_API_KEY"), sec.GeocodioAPIKey)
	cfg.SkillID = firstNonEmpty(os.Getenv("JAKESKY_SKILL_ID"), sec.SkillID)

	cfg.DarkSkyURL = strings.TrimSpace(fc.Upstream.DarkSkyURL)
	cfg.GeocodioURL = strings.TrimSpace(fc.Upstream.GeocodioURL)
	cfg.ClientTimeout = parseDurationOrZero(fc.Upstream.Timeout, DefaultClientTimeout)

	cfg.RequireSkillID = env != "dev"
	if fc.Skill.RequireSkillID != nil {
		cfg.RequireSkillID = *fc.Skill.RequireSkillID
	}

	cfg.CountryCode = strings.ToUpper(strings.TrimSpace(fc.Skill.CountryCode))
	if cfg.CountryCode == "" {
		cfg.CountryCode = "US"
	}

	cfg.ForecastHours = fc.Forecast.Hours

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 5*time.Second)
	cfg.MaxAddressLength = fc.Request.MaxAddressLength
	if cfg.MaxAddressLength <= 0 {
		cfg.MaxAddressLength = 200
	}

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cb := fc.Reliability.CircuitBreaker
	cfg.BreakerEnabled = true
	if cb.Enabled != nil {
		cfg.BreakerEnabled = *cb.Enabled
	}
	cfg.BreakerFailureThreshold = cb.FailureThreshold
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = 5
	}
	cfg.BreakerOpenTimeout = parseDuration(cb.OpenTimeout, 30*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
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

// validate performs post-load validation. RequestTimeout is raised above ClientTimeout so a
// handler never gives up before its upstream call does.
func validate(cfg *Config) error {
	if cfg.ClientTimeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if cfg.RequireSkillID && cfg.SkillID == "" {
		return fmt.Errorf("JAKESKY_SKILL_ID required (set env or config/secrets.yaml skill_id, or skill.require_skill_id: false)")
	}
	if cfg.RequestTimeout <= cfg.ClientTimeout {
		cfg.RequestTimeout = cfg.ClientTimeout + time.Second
	}
	for _, h := range cfg.ForecastHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("forecast.hours must be between 0 and 23, got %d", h)
		}
	}
	return nil
}
