// SPDX-License-Identifier: AGPL-3.0-only

// Package config holds the application configuration and its environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Default application name and version.
const (
	AppName    = "mcp-orchestrator"
	AppVersion = "0.1.0"
)

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Name    string
	Version string
	Address string
	Port    int
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Level    string
	FilePath string
}

// StoreConfig configures the run audit store.
type StoreConfig struct {
	DBPath string
}

// RegistryConfig configures MCP server connections.
type RegistryConfig struct {
	ConfigFilePath string
}

// LLMConfig configures provider calls.
type LLMConfig struct {
	RequestTimeout time.Duration
	GeminiBaseURL  string
}

// StreamConfig configures the streaming side-channel.
type StreamConfig struct {
	ConsumerTimeout time.Duration
	BufferSize      int
}

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Store    StoreConfig
	Registry RegistryConfig
	LLM      LLMConfig
	Stream   StreamConfig
	LockFile string
}

// DefaultConfig returns a configuration with sane defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".mcp-orchestrator")
	return &Config{
		Server: ServerConfig{
			Name:    AppName,
			Version: AppVersion,
			Address: "localhost",
			Port:    8080,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Store: StoreConfig{
			DBPath: filepath.Join(dataDir, "runs.db"),
		},
		Registry: RegistryConfig{
			ConfigFilePath: filepath.Join(dataDir, "mcp.json"),
		},
		LLM: LLMConfig{
			RequestTimeout: 2 * time.Minute,
			GeminiBaseURL:  "https://generativelanguage.googleapis.com/v1beta",
		},
		Stream: StreamConfig{
			ConsumerTimeout: 30 * time.Second,
			BufferSize:      64,
		},
		LockFile: filepath.Join(dataDir, "orchestrator.lock"),
	}
}

// FromEnv overrides cfg with values from the environment.
func FromEnv(cfg *Config) {
	if v := os.Getenv("MCP_ORCH_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MCP_ORCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MCP_ORCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MCP_ORCH_LOG_FILE"); v != "" {
		cfg.Logging.FilePath = v
	}
	if v := os.Getenv("MCP_ORCH_DB_PATH"); v != "" {
		cfg.Store.DBPath = v
	}
	if v := os.Getenv("MCP_ORCH_CONFIG_PATH"); v != "" {
		cfg.Registry.ConfigFilePath = v
	}
	if v := os.Getenv("MCP_ORCH_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.RequestTimeout = d
		}
	}
	if v := os.Getenv("MCP_ORCH_GEMINI_BASE_URL"); v != "" {
		cfg.LLM.GeminiBaseURL = v
	}
	if v := os.Getenv("MCP_ORCH_STREAM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Stream.ConsumerTimeout = d
		}
	}
	if v := os.Getenv("MCP_ORCH_LOCK_FILE"); v != "" {
		cfg.LockFile = v
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Store.DBPath == "" {
		return fmt.Errorf("store DB path must not be empty")
	}
	if c.Registry.ConfigFilePath == "" {
		return fmt.Errorf("registry config path must not be empty")
	}
	if c.LLM.RequestTimeout <= 0 {
		return fmt.Errorf("LLM request timeout must be positive")
	}
	if c.Stream.ConsumerTimeout <= 0 {
		return fmt.Errorf("stream consumer timeout must be positive")
	}
	if c.Stream.BufferSize <= 0 {
		return fmt.Errorf("stream buffer size must be positive")
	}
	return nil
}
