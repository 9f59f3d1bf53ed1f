// SPDX-License-Identifier: MIT

// Package config loads and validates the daemon configuration with the
// precedence ENV > YAML file > defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mleitner/leavetray/internal/timeutil"
)

// ErrUnknownConfigField classifies strict YAML parse failures caused by
// unknown keys. Use errors.Is instead of string matching.
var ErrUnknownConfigField = errors.New("unknown config field")

// Config is the full daemon configuration.
type Config struct {
	Listen       string         `yaml:"listen"`
	LogLevel     string         `yaml:"log_level"`
	TickInterval time.Duration  `yaml:"tick_interval"`
	Shift        ShiftSettings  `yaml:"shift"`
	Report       ReportSettings `yaml:"report"`
}

// ShiftSettings optionally seed the countdown at startup. Both times must
// be set for a shift to be submitted at boot.
type ShiftSettings struct {
	Start               string `yaml:"start"`
	Leave               string `yaml:"leave"`
	NotifyBeforeMinutes int    `yaml:"notify_before_minutes"`
}

// ReportSettings configure the entrance-time report server connection.
type ReportSettings struct {
	ServerURL         string `yaml:"server_url"`
	ReportPath        string `yaml:"report_path"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	Domain            string `yaml:"domain"`
	UseIntegratedAuth bool   `yaml:"use_integrated_auth"`
	EmployeeID        string `yaml:"employee_id"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Listen:       ":8099",
		LogLevel:     "info",
		TickInterval: 60 * time.Second,
		Report: ReportSettings{
			UseIntegratedAuth: true,
		},
	}
}

// Load builds the effective configuration: defaults, overlaid by the YAML
// file when a path is given, overlaid by LEAVETRAY_* environment variables.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	mergeEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeEnv(cfg *Config) {
	cfg.Listen = ParseString("LEAVETRAY_LISTEN", cfg.Listen)
	cfg.LogLevel = ParseString("LEAVETRAY_LOG_LEVEL", cfg.LogLevel)
	cfg.TickInterval = ParseDuration("LEAVETRAY_TICK_INTERVAL", cfg.TickInterval)

	cfg.Shift.Start = ParseString("LEAVETRAY_SHIFT_START", cfg.Shift.Start)
	cfg.Shift.Leave = ParseString("LEAVETRAY_SHIFT_LEAVE", cfg.Shift.Leave)
	cfg.Shift.NotifyBeforeMinutes = ParseInt("LEAVETRAY_NOTIFY_BEFORE", cfg.Shift.NotifyBeforeMinutes)

	cfg.Report.ServerURL = ParseString("LEAVETRAY_REPORT_URL", cfg.Report.ServerURL)
	cfg.Report.ReportPath = ParseString("LEAVETRAY_REPORT_PATH", cfg.Report.ReportPath)
	cfg.Report.Username = ParseString("LEAVETRAY_REPORT_USERNAME", cfg.Report.Username)
	cfg.Report.Password = ParseString("LEAVETRAY_REPORT_PASSWORD", cfg.Report.Password)
	cfg.Report.Domain = ParseString("LEAVETRAY_REPORT_DOMAIN", cfg.Report.Domain)
	cfg.Report.UseIntegratedAuth = ParseBool("LEAVETRAY_REPORT_INTEGRATED_AUTH", cfg.Report.UseIntegratedAuth)
	cfg.Report.EmployeeID = ParseString("LEAVETRAY_REPORT_EMPLOYEE_ID", cfg.Report.EmployeeID)
}

// Validate checks field-level invariants before any component is built.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address must not be empty")
	}
	if c.TickInterval < time.Second {
		return fmt.Errorf("config: tick_interval %s is below the 1s minimum", c.TickInterval)
	}
	if c.Shift.NotifyBeforeMinutes < 0 {
		return fmt.Errorf("config: notify_before_minutes must not be negative")
	}
	if c.Shift.Start != "" {
		if _, err := timeutil.Parse(c.Shift.Start); err != nil {
			return fmt.Errorf("config: shift.start: %w", err)
		}
	}
	if c.Shift.Leave != "" {
		if _, err := timeutil.Parse(c.Shift.Leave); err != nil {
			return fmt.Errorf("config: shift.leave: %w", err)
		}
	}
	if (c.Shift.Start == "") != (c.Shift.Leave == "") {
		return fmt.Errorf("config: shift.start and shift.leave must be set together")
	}
	if c.Report.ServerURL != "" {
		u, err := url.Parse(c.Report.ServerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: report.server_url %q is not a valid URL", c.Report.ServerURL)
		}
	}
	return nil
}
