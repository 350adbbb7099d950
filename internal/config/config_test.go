package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "PORT", "ALTHINGI_SOURCE_BASE_URL", "ALTHINGI_LOG_LEVEL", "ALTHINGI_SERVER_PORT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.BaseURL != "https://www.althingi.is/altext/xml" {
		t.Errorf("BaseURL = %s", cfg.Source.BaseURL)
	}
	if cfg.Source.Timeout != 30*time.Second || cfg.Source.MaxRetries != 3 || cfg.Source.RequestDelay != 500*time.Millisecond {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Server.Port != "3000" || cfg.Log.Level != "info" || cfg.Topics.Strategy != "keyword" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Database.URL != "" {
		t.Errorf("Database.URL = %q, want empty", cfg.Database.URL)
	}
	if len(cfg.Schedule.Jobs) != len(DefaultJobs) || cfg.Schedule.Jobs[0].Name != "catalog" {
		t.Errorf("jobs = %+v", cfg.Schedule.Jobs)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/althingi")
	t.Setenv("PORT", "8080")
	t.Setenv("ALTHINGI_SOURCE_BASE_URL", "http://127.0.0.1:9000/xml")
	t.Setenv("ALTHINGI_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.URL != "postgres://localhost/althingi" {
		t.Errorf("Database.URL = %s", cfg.Database.URL)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %s", cfg.Server.Port)
	}
	if cfg.Source.BaseURL != "http://127.0.0.1:9000/xml" {
		t.Errorf("BaseURL = %s", cfg.Source.BaseURL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s", cfg.Log.Level)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "althingi.yaml")
	yaml := `database:
  url: postgres://db/althingi
source:
  timeout: 10s
  request_delay: 0s
schedule:
  timezone: UTC
  jobs:
    - name: nightly
      cron: "0 3 * * *"
      stages: [all]
      session: 155
topics:
  strategy: official
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.URL != "postgres://db/althingi" || cfg.Source.Timeout != 10*time.Second || cfg.Source.RequestDelay != 0 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Topics.Strategy != "official" {
		t.Errorf("strategy = %s", cfg.Topics.Strategy)
	}
	jobs := cfg.Schedule.Jobs
	if len(jobs) != 1 || jobs[0].Name != "nightly" || jobs[0].Session != 155 || len(jobs[0].Stages) != 1 {
		t.Errorf("jobs = %+v", jobs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

func TestScheduleLocation(t *testing.T) {
	loc, err := ScheduleConfig{}.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("empty timezone = %v, %v", loc, err)
	}

	loc, err = ScheduleConfig{Timezone: "Atlantic/Reykjavik"}.Location()
	if err != nil || loc.String() != "Atlantic/Reykjavik" {
		t.Errorf("Reykjavik = %v, %v", loc, err)
	}

	if _, err := (ScheduleConfig{Timezone: "Mars/Olympus"}).Location(); err == nil {
		t.Error("expected an error for an unknown timezone")
	}
}
