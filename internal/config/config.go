// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath   string `env:"OCMS_DB_PATH" envDefault:"./data/ocms.db"`
	Env      string `env:"OCMS_ENV" envDefault:"development"`
	LogLevel string `env:"OCMS_LOG_LEVEL" envDefault:"info"`

	// Form extraction
	CSRFFieldName string `env:"OCMS_CSRF_FIELD_NAME" envDefault:"csrfmiddlewaretoken"` // Field dropped from extracted form data

	// Audit log
	AuditRetentionDays int `env:"OCMS_AUDIT_RETENTION_DAYS" envDefault:"90"` // Age in days pruned by "audit prune"

	// Seeding configuration
	DoSeed bool `env:"OCMS_DO_SEED" envDefault:"false"` // Seed default collection permissions
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if strings.TrimSpace(cfg.CSRFFieldName) == "" {
		return nil, errors.New("OCMS_CSRF_FIELD_NAME must not be empty")
	}
	if cfg.AuditRetentionDays <= 0 {
		return nil, fmt.Errorf("OCMS_AUDIT_RETENTION_DAYS must be positive, got %d", cfg.AuditRetentionDays)
	}
	if _, ok := parseLevel(cfg.LogLevel); !ok {
		return nil, fmt.Errorf("OCMS_LOG_LEVEL %q is not one of debug, info, warn, error", cfg.LogLevel)
	}

	return cfg, nil
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
