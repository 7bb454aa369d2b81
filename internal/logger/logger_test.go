package logger

import "testing"

func TestSetup(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{"debug level", "debug", "console"},
		{"info level", "info", "console"},
		{"warn level", "warn", "console"},
		{"error level", "error", "console"},
		{"json format", "info", "json"},
		{"uppercase level", "DEBUG", "console"},
		{"unknown level defaults to info", "verbose", "console"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Setup(tt.level, tt.format)
			if Log == nil {
				t.Error("expected Log to be initialized")
			}
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	Setup("debug", "json")

	// Key-value pairs, odd trailing arg, and non-string keys must all be
	// tolerated without panicking.
	Log.Debug("debug msg", "op", "softmax_fwd")
	Log.Info("info msg", "ns_per_op", 1234.5, "iterations", 10)
	Log.Warn("warn msg", "dangling")
	Log.Error("error msg", 42, "numeric key")
}
