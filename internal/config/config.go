package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Source   SourceConfig   `mapstructure:"source"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Topics   TopicsConfig   `mapstructure:"topics"`
}

// DatabaseConfig configures the PostgreSQL connection pool
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SourceConfig configures the Althingi XML client
type SourceConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	Backoff      time.Duration `mapstructure:"backoff"`
	RequestDelay time.Duration `mapstructure:"request_delay"`
	UserAgent    string        `mapstructure:"user_agent"`
}

// ServerConfig configures the dashboard server
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// ScheduleConfig configures the cron scheduler
type ScheduleConfig struct {
	LockFile string      `mapstructure:"lock_file"`
	Timezone string      `mapstructure:"timezone"`
	Jobs     []JobConfig `mapstructure:"jobs"`
}

// JobConfig is one scheduled pipeline run. Session 0 means the active session.
type JobConfig struct {
	Name    string   `mapstructure:"name"`
	Cron    string   `mapstructure:"cron"`
	Stages  []string `mapstructure:"stages"`
	Session int      `mapstructure:"session"`
}

// TopicsConfig configures bill classification
type TopicsConfig struct {
	Strategy string `mapstructure:"strategy"` // keyword or official
}

// DefaultJobs run the catalog stages hourly and the activity stages on the
// half hour
var DefaultJobs = []JobConfig{
	{Name: "catalog", Cron: "0 * * * *", Stages: []string{"parties", "legislators", "bills", "topics"}},
	{Name: "activity", Cron: "30 * * * *", Stages: []string{"votes", "speeches"}},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("source.base_url", "https://www.althingi.is/altext/xml")
	v.SetDefault("source.timeout", 30*time.Second)
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.backoff", 2*time.Second)
	v.SetDefault("source.request_delay", 500*time.Millisecond)
	v.SetDefault("source.user_agent", "althingi-ingest/1.0")

	v.SetDefault("server.port", "3000")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("schedule.lock_file", "")
	v.SetDefault("schedule.timezone", "Atlantic/Reykjavik")

	v.SetDefault("topics.strategy", "keyword")
}

// Load reads the configuration. An optional .env file is loaded first, then
// path, or config.yaml from ./config or the working directory when path is
// empty. ALTHINGI_ environment variables override file values, and
// DATABASE_URL and PORT are honoured.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ALTHINGI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	overrideFromEnv(&cfg)
	if len(cfg.Schedule.Jobs) == 0 {
		cfg.Schedule.Jobs = append([]JobConfig(nil), DefaultJobs...)
	}
	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
}

// Location returns the scheduler time zone, UTC when unset
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}
