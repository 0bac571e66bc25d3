package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "INTERVIEWD_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "INTERVIEWD_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "oracle.api_key", typ: kString, env: "INTERVIEWD_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Oracle.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Oracle.APIKey },
	},
	{
		key: "oracle.models", typ: kString, env: "INTERVIEWD_ORACLE_MODELS",
		apply:   func(cfg *Config, v any) { cfg.Oracle.Models = v.(string) },
		extract: func(cfg Config) any { return cfg.Oracle.Models },
	},
	{
		key: "gateway.max_attempts", typ: kInt, env: "INTERVIEWD_GATEWAY_MAX_ATTEMPTS",
		apply:   func(cfg *Config, v any) { cfg.Gateway.MaxAttempts = v.(int) },
		extract: func(cfg Config) any { return cfg.Gateway.MaxAttempts },
	},
	{
		key: "storage.data_dir", typ: kString, env: "INTERVIEWD_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "INTERVIEWD_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "retention.keep_sessions", typ: kInt, env: "INTERVIEWD_RETENTION_KEEP_SESSIONS",
		apply:   func(cfg *Config, v any) { cfg.Retention.KeepSessions = v.(int) },
		extract: func(cfg Config) any { return cfg.Retention.KeepSessions },
	},
	{
		key: "retention.sweep_interval", typ: kString, env: "INTERVIEWD_RETENTION_SWEEP_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Retention.SweepInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Retention.SweepInterval },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
