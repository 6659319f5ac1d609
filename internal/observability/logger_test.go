package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies that parseLogLevel correctly parses log level
// strings from environment variables, handling case-insensitivity and whitespace.
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env    string
		expect zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"INFO", zap.InfoLevel},
		{"DEBUG", zap.DebugLevel},
		{"WARN", zap.WarnLevel},
		{"ERROR", zap.ErrorLevel},
		{"debug", zap.DebugLevel},
		{"  warn  ", zap.WarnLevel},
		{"invalid", zap.InfoLevel},
	}
	for _, tt := range tests {
		level := parseLogLevel(tt.env)
		if got := level.Level(); got != tt.expect {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.env, got, tt.expect)
		}
	}
}

// TestNewLogger_Verbose verifies that verbose mode enables DEBUG even when LOG_LEVEL asks for less.
func TestNewLogger_Verbose(t *testing.T) {
	t.Setenv("LOG_LEVEL", "ERROR")

	quiet, err := NewLogger(LoggerOptions{})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if quiet.Core().Enabled(zap.DebugLevel) {
		t.Error("NewLogger() without verbose should not enable DEBUG")
	}

	verbose, err := NewLogger(LoggerOptions{Verbose: true, Console: true})
	if err != nil {
		t.Fatalf("NewLogger(verbose) error = %v", err)
	}
	if !verbose.Core().Enabled(zap.DebugLevel) {
		t.Error("NewLogger(verbose) should enable DEBUG")
	}
	verbose.Debug("test message")
	_ = verbose.Sync() // best-effort; can fail on /dev/stderr in test env
}

// TestLoggerFromContext verifies the round trip and the no-op fallback.
func TestLoggerFromContext(t *testing.T) {
	if LoggerFromContext(context.Background()) == nil {
		t.Fatal("LoggerFromContext() returned nil for empty context")
	}

	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	if got := LoggerFromContext(ctx); got != logger {
		t.Errorf("LoggerFromContext() = %p, want %p", got, logger)
	}
}
