package logger

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, fn func()) (stdout string, stderr string) {
	origOut, origErr := os.Stdout, os.Stderr
	defer func() { os.Stdout, os.Stderr = origOut, origErr }()

	rOut, wOut, err := os.Pipe()
	require.NoError(t, err, "failed to create stdout pipe")
	rErr, wErr, err := os.Pipe()
	require.NoError(t, err, "failed to create stderr pipe")

	os.Stdout, os.Stderr = wOut, wErr

	fn()

	err = wOut.Close()
	require.NoError(t, err, "failed to close stdout pipe")
	err = wErr.Close()
	require.NoError(t, err, "failed to close stderr pipe")

	outBytes, err := io.ReadAll(rOut)
	require.NoError(t, err, "failed to read stdout pipe")
	errBytes, err := io.ReadAll(rErr)
	require.NoError(t, err, "failed to read stderr pipe")

	return string(outBytes), string(errBytes)
}

func TestLogger_parseLevel(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		tests := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"DEBUG", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
			{"ERROR", slog.LevelError},
		}

		for _, tt := range tests {
			t.Run(tt.input, func(t *testing.T) {
				got, err := parseLevel(tt.input)

				require.NoError(t, err)
				require.Equal(t, tt.expected, got)
			})
		}
	})

	t.Run("not valid", func(t *testing.T) {
		for _, value := range []string{"", "unknown"} {
			_, err := parseLevel(value)
			require.Error(t, err, "parseLevel(%q) should fail", value)
		}
	})
}

func TestLogger_New(t *testing.T) {
	t.Run("dev environment", func(t *testing.T) {
		_, stderr := capture(t, func() {
			l, err := New(EnvDevelopment, LevelInfo)
			require.NoError(t, err)

			l.Info("dev message", "key", "value")
		})

		require.Contains(t, stderr, "dev message")
		require.Contains(t, stderr, "key=value", "dev environment should log text")
	})

	t.Run("prod environment", func(t *testing.T) {
		_, stderr := capture(t, func() {
			l, err := New(EnvProduction, LevelInfo)
			require.NoError(t, err)

			l.Info("prod message", "key", "value")
		})

		var entry map[string]any
		err := json.Unmarshal([]byte(stderr), &entry)
		require.NoError(t, err, "prod environment should log JSON")
		require.Equal(t, "prod message", entry["msg"])
		require.Equal(t, "value", entry["key"])
	})

	t.Run("unknown environment", func(t *testing.T) {
		_, err := New("staging", LevelInfo)
		require.Error(t, err)
	})
}

func TestLogger_NewNoOpLogger(t *testing.T) {
	stdout, stderr := capture(t, func() {
		l := NewNoOpLogger()
		l.Debug("debug message")
		l.Info("info message")
		l.Warn("warn message")
		l.Error("error message")
	})

	require.Empty(t, stdout, "NoOp logger should not write to stdout")
	require.Empty(t, stderr, "NoOp logger should not write to stderr")
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func(Logger)
		isLogged bool
	}{
		{"debug logger logs debug", LevelDebug, func(l Logger) { l.Debug("test") }, true},
		{"info logger skips debug", LevelInfo, func(l Logger) { l.Debug("test") }, false},
		{"info logger logs warn", LevelInfo, func(l Logger) { l.Warn("test") }, true},
		{"warn logger skips info", LevelWarn, func(l Logger) { l.Info("test") }, false},
		{"error logger skips warn", LevelError, func(l Logger) { l.Warn("test") }, false},
		{"error logger logs error", LevelError, func(l Logger) { l.Error("test") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr := capture(t, func() {
				l, err := NewTextLogger(tt.level)
				require.NoError(t, err)

				tt.logFn(l)
			})

			require.Empty(t, stdout, "logger should not write to stdout")
			require.Equal(t, tt.isLogged, len(stderr) > 0)
		})
	}
}

func TestLogger_With(t *testing.T) {
	_, stderr := capture(t, func() {
		l, err := NewTextLogger(LevelInfo)
		require.NoError(t, err)

		l.With("component", "ledger").Info("test message")
	})

	require.Contains(t, stderr, "component=ledger")
	require.Contains(t, stderr, "test message")
}
