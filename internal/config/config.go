// Package config loads http-test.config.json via Viper, layering file
// values on top of built-in defaults (CLI flag overrides are applied by
// cmd/httprun afterwards). Absent sections/fields keep their defaults: a
// flat Viper-backed struct read once at startup.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the fully-resolved run configuration.
type Config struct {
	Timeouts    Timeouts               `mapstructure:"timeouts"`
	Security    Security               `mapstructure:"security"`
	Retries     Retries                `mapstructure:"retries"`
	Logging     Logging                `mapstructure:"logging"`
	Performance Performance            `mapstructure:"performance"`
	Credentials map[string]Credential  `mapstructure:"credentials"`
}

type Timeouts struct {
	RequestMS     int `mapstructure:"request"`
	ResponseMS    int `mapstructure:"response"`
	ServerCheckMS int `mapstructure:"serverCheck"`
}

type Security struct {
	RejectUnauthorizedTLS bool `mapstructure:"rejectUnauthorizedTLS"`
}

type Retries struct {
	MaxAttempts       int     `mapstructure:"maxAttempts"`
	InitialDelayMS    int     `mapstructure:"initialDelay"`
	BackoffMultiplier float64 `mapstructure:"backoffMultiplier"`
}

type Logging struct {
	Verbose              bool `mapstructure:"verbose"`
	MaxDiagnosticEntries int  `mapstructure:"maxDiagnosticEntries"`
}

type Performance struct {
	Parallel       bool    `mapstructure:"parallel"`
	MaxConcurrency int     `mapstructure:"maxConcurrency"`
	RPS            float64 `mapstructure:"rps"`
	Cache          Cache   `mapstructure:"cache"`
}

type Cache struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLSeconds int  `mapstructure:"ttlSeconds"`
	MaxSize    int  `mapstructure:"maxSize"`
}

// Credential is one named OAuth2 client-credentials entry, matching
// httpclient.Credential field-for-field (kept distinct so config stays
// decoupled from the HTTP client package).
type Credential struct {
	TokenURL     string   `mapstructure:"tokenURL"`
	ClientID     string   `mapstructure:"clientID"`
	ClientSecret string   `mapstructure:"clientSecret"`
	Scopes       []string `mapstructure:"scopes"`
}

// defaults mirrors the documented config defaults exactly.
func defaults() Config {
	return Config{
		Timeouts: Timeouts{RequestMS: 30000, ResponseMS: 30000, ServerCheckMS: 2000},
		Security: Security{RejectUnauthorizedTLS: true},
		Retries:  Retries{MaxAttempts: 1, InitialDelayMS: 200, BackoffMultiplier: 2.0},
		Logging:  Logging{Verbose: false, MaxDiagnosticEntries: 1000},
		Performance: Performance{
			Parallel: false, MaxConcurrency: 4, RPS: 0,
			Cache: Cache{Enabled: true, TTLSeconds: 60, MaxSize: 100},
		},
	}
}

// Load reads configFile (explicit path, or "http-test.config.json" in the
// working directory when empty) via Viper and merges it over defaults. A
// missing config file is not an error — the defaults stand unchanged.
func Load(configFile string) (*Config, error) {
	cfg := defaults()

	v := viper.New()
	setViperDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("http-test.config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return nil, fmt.Errorf("reading config %q: %w", configFile, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// setViperDefaults registers every default field with Viper so that a
// partial config file only overrides the keys it actually sets.
func setViperDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("timeouts.request", cfg.Timeouts.RequestMS)
	v.SetDefault("timeouts.response", cfg.Timeouts.ResponseMS)
	v.SetDefault("timeouts.serverCheck", cfg.Timeouts.ServerCheckMS)
	v.SetDefault("security.rejectUnauthorizedTLS", cfg.Security.RejectUnauthorizedTLS)
	v.SetDefault("retries.maxAttempts", cfg.Retries.MaxAttempts)
	v.SetDefault("retries.initialDelay", cfg.Retries.InitialDelayMS)
	v.SetDefault("retries.backoffMultiplier", cfg.Retries.BackoffMultiplier)
	v.SetDefault("logging.verbose", cfg.Logging.Verbose)
	v.SetDefault("logging.maxDiagnosticEntries", cfg.Logging.MaxDiagnosticEntries)
	v.SetDefault("performance.parallel", cfg.Performance.Parallel)
	v.SetDefault("performance.maxConcurrency", cfg.Performance.MaxConcurrency)
	v.SetDefault("performance.rps", cfg.Performance.RPS)
	v.SetDefault("performance.cache.enabled", cfg.Performance.Cache.Enabled)
	v.SetDefault("performance.cache.ttlSeconds", cfg.Performance.Cache.TTLSeconds)
	v.SetDefault("performance.cache.maxSize", cfg.Performance.Cache.MaxSize)
}
