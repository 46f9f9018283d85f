// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Name != AppName {
		t.Errorf("Expected server name '%s', got '%s'", AppName, cfg.Server.Name)
	}
	if cfg.Server.Address != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("Unexpected server defaults: %s:%d", cfg.Server.Address, cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", cfg.Logging.Level)
	}
	if !strings.HasSuffix(cfg.Store.DBPath, "runs.db") {
		t.Errorf("Unexpected DB path: %s", cfg.Store.DBPath)
	}
	if !strings.HasSuffix(cfg.Registry.ConfigFilePath, "mcp.json") {
		t.Errorf("Unexpected registry config path: %s", cfg.Registry.ConfigFilePath)
	}
	if cfg.LLM.RequestTimeout != 2*time.Minute {
		t.Errorf("Unexpected LLM timeout: %v", cfg.LLM.RequestTimeout)
	}
	if cfg.Stream.ConsumerTimeout != 30*time.Second {
		t.Errorf("Unexpected stream timeout: %v", cfg.Stream.ConsumerTimeout)
	}
	if cfg.Stream.BufferSize != 64 {
		t.Errorf("Unexpected stream buffer size: %d", cfg.Stream.BufferSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("MCP_ORCH_ADDRESS", "0.0.0.0")
	t.Setenv("MCP_ORCH_PORT", "9090")
	t.Setenv("MCP_ORCH_LOG_LEVEL", "debug")
	t.Setenv("MCP_ORCH_LOG_FILE", "/tmp/orch.log")
	t.Setenv("MCP_ORCH_DB_PATH", "/tmp/orch.db")
	t.Setenv("MCP_ORCH_CONFIG_PATH", "/tmp/mcp.json")
	t.Setenv("MCP_ORCH_LLM_TIMEOUT", "90s")
	t.Setenv("MCP_ORCH_GEMINI_BASE_URL", "http://localhost:1234")
	t.Setenv("MCP_ORCH_STREAM_TIMEOUT", "10s")
	t.Setenv("MCP_ORCH_LOCK_FILE", "/tmp/orch.lock")

	cfg := DefaultConfig()
	FromEnv(cfg)

	if cfg.Server.Address != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("Unexpected server config: %s:%d", cfg.Server.Address, cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.FilePath != "/tmp/orch.log" {
		t.Errorf("Unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Store.DBPath != "/tmp/orch.db" {
		t.Errorf("Unexpected DB path: %s", cfg.Store.DBPath)
	}
	if cfg.Registry.ConfigFilePath != "/tmp/mcp.json" {
		t.Errorf("Unexpected registry config path: %s", cfg.Registry.ConfigFilePath)
	}
	if cfg.LLM.RequestTimeout != 90*time.Second {
		t.Errorf("Unexpected LLM timeout: %v", cfg.LLM.RequestTimeout)
	}
	if cfg.LLM.GeminiBaseURL != "http://localhost:1234" {
		t.Errorf("Unexpected Gemini base URL: %s", cfg.LLM.GeminiBaseURL)
	}
	if cfg.Stream.ConsumerTimeout != 10*time.Second {
		t.Errorf("Unexpected stream timeout: %v", cfg.Stream.ConsumerTimeout)
	}
	if cfg.LockFile != "/tmp/orch.lock" {
		t.Errorf("Unexpected lock file: %s", cfg.LockFile)
	}
}

func TestFromEnv_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("MCP_ORCH_PORT", "not-a-number")
	t.Setenv("MCP_ORCH_LLM_TIMEOUT", "soon")

	cfg := DefaultConfig()
	FromEnv(cfg)

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port kept, got %d", cfg.Server.Port)
	}
	if cfg.LLM.RequestTimeout != 2*time.Minute {
		t.Errorf("Expected default LLM timeout kept, got %v", cfg.LLM.RequestTimeout)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"empty DB path", func(c *Config) { c.Store.DBPath = "" }},
		{"empty registry path", func(c *Config) { c.Registry.ConfigFilePath = "" }},
		{"zero LLM timeout", func(c *Config) { c.LLM.RequestTimeout = 0 }},
		{"zero stream timeout", func(c *Config) { c.Stream.ConsumerTimeout = 0 }},
		{"zero stream buffer", func(c *Config) { c.Stream.BufferSize = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
