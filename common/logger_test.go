package common

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		severity Severity
		expected string
	}{
		{SeverityDebug, "DEBUG"},
		{SeverityInfo, "INFO"},
		{SeverityWarning, "WARNING"},
		{SeverityError, "ERROR"},
		{Severity(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := tt.severity.String()
			if got != tt.expected {
				t.Errorf("Severity.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in      string
		want    Severity
		wantErr bool
	}{
		{"debug", SeverityDebug, false},
		{"", SeverityInfo, false},
		{"INFO", SeverityInfo, false},
		{"warn", SeverityWarning, false},
		{"warning", SeverityWarning, false},
		{" error ", SeverityError, false},
		{"chatty", SeverityInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSeverity(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSeverity(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSeverity(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewStdLogger(t *testing.T) {
	logger := NewStdLogger(SeverityInfo)
	if logger == nil {
		t.Fatal("NewStdLogger() returned nil")
	}
	if logger.minLevel != SeverityInfo {
		t.Errorf("NewStdLogger() minLevel = %v, want %v", logger.minLevel, SeverityInfo)
	}
}

func TestStdLogger_Log(t *testing.T) {
	var out bytes.Buffer
	logger := NewStdLoggerWithWriter(&out, SeverityDebug)

	tests := []struct {
		name     string
		severity Severity
		message  string
		level    string
	}{
		{"Debug", SeverityDebug, "debug message", "DEBU"},
		{"Info", SeverityInfo, "info message", "INFO"},
		{"Warning", SeverityWarning, "warning message", "WARN"},
		{"Error", SeverityError, "error message", "ERRO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()

			logger.Log(tt.severity, tt.message)

			output := out.String()
			if !strings.Contains(output, tt.message) {
				t.Errorf("Log output should contain %q, got: %s", tt.message, output)
			}
			if !strings.Contains(output, tt.level) {
				t.Errorf("Log output should contain level %q, got: %s", tt.level, output)
			}
		})
	}
}

func TestStdLogger_Logf(t *testing.T) {
	var out bytes.Buffer
	logger := NewStdLoggerWithWriter(&out, SeverityInfo)

	logger.Logf(SeverityInfo, "formatted %s %d", "test", 123)

	if !strings.Contains(out.String(), "formatted test 123") {
		t.Errorf("Logf output should contain formatted message, got: %s", out.String())
	}
}

func TestStdLogger_Error(t *testing.T) {
	var out bytes.Buffer
	logger := NewStdLoggerWithWriter(&out, SeverityInfo)

	logger.Error(errors.New("test error"))
	if !strings.Contains(out.String(), "test error") {
		t.Errorf("Error output should contain error message, got: %s", out.String())
	}

	out.Reset()
	logger.Error(nil)
	if out.Len() != 0 {
		t.Errorf("Error(nil) should not log anything, got: %s", out.String())
	}
}

func TestStdLogger_MinLevel(t *testing.T) {
	var out bytes.Buffer
	logger := NewStdLoggerWithWriter(&out, SeverityWarning)

	logger.Debug("debug message")
	logger.Info("info message")
	if out.Len() != 0 {
		t.Errorf("Debug and Info should not be logged when minLevel is Warning, got: %s", out.String())
	}

	logger.Warning("warning message")
	if !strings.Contains(out.String(), "warning message") {
		t.Errorf("Warning should be logged, got: %s", out.String())
	}
}

func TestStdLogger_WithPrefix(t *testing.T) {
	var out bytes.Buffer
	logger := NewStdLoggerWithWriter(&out, SeverityInfo).WithPrefix("id=0x05")

	logger.Info("stream decoded")

	output := out.String()
	if !strings.Contains(output, "id=0x05") || !strings.Contains(output, "stream decoded") {
		t.Errorf("prefixed output missing prefix or message, got: %s", output)
	}

	out.Reset()
	parent := NewStdLoggerWithWriter(&out, SeverityInfo).WithPrefix("run 42")
	parent.WithPrefix("etb").Info("frame sync")
	parent.WithPrefix("ID 0x01").Warning("unknown header")
	parent.Info("done")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %s", len(lines), out.String())
	}
	for i, want := range []string{"run 42 etb", "run 42 ID 0x01", "run 42"} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d missing prefix %q: %s", i, want, lines[i])
		}
	}
	if strings.Contains(lines[1], "etb") {
		t.Errorf("sibling prefix leaked into line 1: %s", lines[1])
	}
}

func TestNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()
	if logger == nil {
		t.Fatal("NewNoOpLogger() returned nil")
	}

	// All these should do nothing and not panic
	logger.Log(SeverityInfo, "test")
	logger.Logf(SeverityInfo, "test %s", "formatted")
	logger.Error(errors.New("test error"))
	logger.Debug("debug")
	logger.Info("info")
	logger.Warning("warning")
	if logger.WithPrefix("x") != Logger(logger) {
		t.Error("WithPrefix on NoOpLogger should return the same logger")
	}
}
