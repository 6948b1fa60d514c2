package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger *slog.Logger

// Init installs the process logger: a rotating file, mirrored to stdout in
// text mode.
func Init(cfg *config.LoggingConfig) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0755); err != nil {
		return err
	}

	roller := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var writer io.Writer = roller
	if cfg.Format != "json" {
		writer = io.MultiWriter(os.Stdout, roller)
	}

	logger = slog.New(newHandler(writer, cfg.Format, parseLevel(cfg.Level)))
	slog.SetDefault(logger)
	return nil
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func current() *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func Debug(msg string, args ...any) { current().Debug(msg, args...) }

func Info(msg string, args ...any) { current().Info(msg, args...) }

func Warn(msg string, args ...any) { current().Warn(msg, args...) }

func Error(msg string, args ...any) { current().Error(msg, args...) }

func With(args ...any) *slog.Logger { return current().With(args...) }
