// SPDX-License-Identifier: AGPL-3.0-only
package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", Debug},
		{"DEBUG", Debug},
		{"info", Info},
		{"warn", Warn},
		{"warning", Warn},
		{"error", Error},
		{"fatal", Fatal},
		{"  info  ", Info},
		{"bogus", Info},
		{"", Info},
	}

	for _, tc := range tests {
		if got := ParseLevel(tc.input); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf, Level: Warn})

	logger.Debugf("debug message")
	logger.Infof("info message")
	logger.Warnf("warn message")
	logger.Errorf("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("Expected debug/info suppressed at warn level, got: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("Expected warn/error emitted, got: %s", out)
	}
	if !strings.Contains(out, "[WARN]") || !strings.Contains(out, "[ERROR]") {
		t.Errorf("Expected level markers, got: %s", out)
	}
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf, Level: Info})
	child := logger.WithField("server", "WORDPRESS").WithField("client", "openai")

	child.Infof("tool call")

	out := buf.String()
	if !strings.Contains(out, "server=WORDPRESS") {
		t.Errorf("Expected server field, got: %s", out)
	}
	if !strings.Contains(out, "client=openai") {
		t.Errorf("Expected client field, got: %s", out)
	}
	// Fields sort alphabetically for stable output.
	if strings.Index(out, "client=openai") > strings.Index(out, "server=WORDPRESS") {
		t.Errorf("Expected fields in sorted order, got: %s", out)
	}

	// The parent must not inherit the child's fields.
	buf.Reset()
	logger.Infof("plain")
	if strings.Contains(buf.String(), "server=") {
		t.Errorf("Expected parent without fields, got: %s", buf.String())
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{Debug, "DEBUG"},
		{Info, "INFO"},
		{Warn, "WARN"},
		{Error, "ERROR"},
		{Fatal, "FATAL"},
		{LogLevel(99), "UNKNOWN"},
	}
	for _, tc := range tests {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("Expected '%s', got '%s'", tc.want, got)
		}
	}
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orchestrator.log")
	logger, err := FileLogger(path, Info)
	if err != nil {
		t.Fatalf("FileLogger failed: %v", err)
	}

	logger.Infof("persisted line")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "persisted line") {
		t.Errorf("Expected log line in file, got: %s", data)
	}
}

func TestDefaultLogger(t *testing.T) {
	orig := GetDefaultLogger()
	defer SetDefaultLogger(orig)

	var buf bytes.Buffer
	replacement := New(Options{Output: &buf, Level: Debug})
	SetDefaultLogger(replacement)

	if GetDefaultLogger() != replacement {
		t.Error("Expected replacement logger as default")
	}

	SetDefaultLogger(nil)
	if GetDefaultLogger() != replacement {
		t.Error("Expected nil SetDefaultLogger to be ignored")
	}
}
