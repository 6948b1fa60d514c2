package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newHandler(&buf, "json", slog.LevelInfo))

	l.Debug("hidden")
	l.Info("role deleted", "role", "DISPECER")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"role":"DISPECER"`)
}

func TestInit_WritesToFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		logger = nil
	})

	path := filepath.Join(t.TempDir(), "nested", "server.log")
	require.NoError(t, Init(&config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Filename: path,
		MaxSize:  1,
	}))

	Info("session issued", "user_id", "42")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "session issued")
}
