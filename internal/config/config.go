// Package config loads service configuration from a JSON file backend with
// environment variable overrides (INTERVIEWD_*).
package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Oracle    OracleConfig
	Gateway   GatewayConfig
	Storage   StorageConfig
	Log       LogConfig
	Retention RetentionConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type OracleConfig struct {
	APIKey string
	Models string // comma-separated, primary first
}

type GatewayConfig struct {
	MaxAttempts int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type RetentionConfig struct {
	KeepSessions  int
	SweepInterval string
}

// ModelList splits the configured model chain into an ordered slice.
func (o OracleConfig) ModelList() []string {
	var models []string
	for _, m := range strings.Split(o.Models, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}

// SweepIntervalDuration parses the retention sweep interval, falling back to
// one hour on a malformed value.
func (r RetentionConfig) SweepIntervalDuration() time.Duration {
	d, err := time.ParseDuration(r.SweepInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Oracle: OracleConfig{
			Models: "gemini-2.0-flash,gemini-1.5-flash",
		},
		Gateway: GatewayConfig{
			MaxAttempts: 3,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Retention: RetentionConfig{
			KeepSessions:  20,
			SweepInterval: "1h",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/interviewd/config.json, then applies INTERVIEWD_*
// environment overrides. Secrets are environment-only.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Oracle.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: Gemini API key. Set it via environment variable INTERVIEWD_GEMINI_API_KEY")
	}
	if len(cfg.Oracle.ModelList()) == 0 {
		return Config{}, fmt.Errorf("oracle.models must name at least one model")
	}

	return cfg, nil
}
