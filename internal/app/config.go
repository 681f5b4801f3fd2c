package app

import (
	"errors"
	"fmt"
	"time"
)

// Defaults for process-level settings.
const (
	DefaultNamespace   = "/planner"
	DefaultEventBuffer = 64
)

// Config holds the process-level settings an App instance needs to run. The
// planner behaviour itself comes from the file at ConfigPath.
type Config struct {
	ConfigPath string // planner.hcl

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// BridgeURL enables the socket.io transport when set.
	BridgeURL          string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration

	// GenLogPath selects the persistent generation log. Empty keeps the log
	// in memory.
	GenLogPath string

	// EventBuffer is the capacity of each inbound feed channel.
	EventBuffer int
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}

	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "json"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}

	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck port %d out of range", cfg.HealthcheckPort)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}
	return &cfg, nil
}
