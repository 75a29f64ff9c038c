package app

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerFormatSelection(t *testing.T) {
	logger := NewLogger(&Config{AppEnv: "development", LogFormat: "pretty"})
	_, ok := logger.Handler().(*slog.TextHandler)
	require.True(t, ok, "development defaults to text output")

	logger = NewLogger(&Config{AppEnv: "development", LogFormat: "json"})
	_, ok = logger.Handler().(*slog.JSONHandler)
	require.True(t, ok, "LOG_FORMAT=json selects JSON output")

	logger = NewLogger(&Config{AppEnv: "production", LogFormat: "pretty"})
	_, ok = logger.Handler().(*slog.JSONHandler)
	require.True(t, ok, "production always logs JSON")

	logger = NewLogger(nil)
	_, ok = logger.Handler().(*slog.TextHandler)
	require.True(t, ok)
}
