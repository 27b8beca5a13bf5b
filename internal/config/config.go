// Package config loads reportq settings from defaults, an optional .env
// file, an optional reportq.yaml and REPORTQ_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// EnvPrefix prefixes every environment override, e.g. REPORTQ_MONGO_URI.
const EnvPrefix = "REPORTQ"

// Config is the resolved configuration.
type Config struct {
	Mongo    MongoConfig
	Metadata MetadataConfig
	Log      LogConfig
	Limits   LimitsConfig
	// Timezone is the default zone for relative dates without one.
	Timezone string
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type MetadataConfig struct {
	// Path is the SQLite file holding custom-field metadata.
	Path string
}

type LogConfig struct {
	Level  string
	Format string
}

// LimitsConfig bounds page sizes. A zero domain limit keeps the domain's
// built-in maximum.
type LimitsConfig struct {
	Employees       int
	Reviews         int
	Goals           int
	DefaultPageSize int
}

// PageLimits returns the non-zero domain limits.
func (l LimitsConfig) PageLimits() map[report.Domain]int {
	out := make(map[report.Domain]int, 3)
	for d, n := range map[report.Domain]int{
		report.DomainEmployees: l.Employees,
		report.DomainReviews:   l.Reviews,
		report.DomainGoals:     l.Goals,
	} {
		if n > 0 {
			out[d] = n
		}
	}
	return out
}

// Options controls where Load looks.
type Options struct {
	// ConfigFile is an explicit config path. Empty searches ConfigDirs for
	// reportq.yaml.
	ConfigFile string
	ConfigDirs []string
	// EnvFile is loaded with godotenv when present. Empty means ".env".
	EnvFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "reports")
	v.SetDefault("mongo.timeout", "30s")
	v.SetDefault("metadata.path", "reportq.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("limits.employees", 0)
	v.SetDefault("limits.reviews", 0)
	v.SetDefault("limits.goals", 0)
	v.SetDefault("limits.default_page_size", 50)
	v.SetDefault("timezone", "UTC")
}

// Load resolves the configuration.
func Load(opts Options) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("reportq")
		v.SetConfigType("yaml")
		for _, dir := range opts.ConfigDirs {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Mongo: MongoConfig{
			URI:      v.GetString("mongo.uri"),
			Database: v.GetString("mongo.database"),
			Timeout:  v.GetDuration("mongo.timeout"),
		},
		Metadata: MetadataConfig{Path: v.GetString("metadata.path")},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Limits: LimitsConfig{
			Employees:       v.GetInt("limits.employees"),
			Reviews:         v.GetInt("limits.reviews"),
			Goals:           v.GetInt("limits.goals"),
			DefaultPageSize: v.GetInt("limits.default_page_size"),
		},
		Timezone: v.GetString("timezone"),
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Mongo.Timeout < 0 {
		return fmt.Errorf("mongo.timeout must not be negative")
	}
	for name, n := range map[string]int{
		"limits.employees":         c.Limits.Employees,
		"limits.reviews":           c.Limits.Reviews,
		"limits.goals":             c.Limits.Goals,
		"limits.default_page_size": c.Limits.DefaultPageSize,
	} {
		if n < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return nil
}
