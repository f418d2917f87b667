package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New 建立輸出到 stdout 的 slog.Logger 並設為預設 logger
func New(level string) *slog.Logger {
	logger := NewWithWriter(os.Stdout, level)
	slog.SetDefault(logger)
	return logger
}

func NewWithWriter(w io.Writer, level string) *slog.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      ParseLevel(level),
		AddSource:  true,
		TimeFormat: time.DateTime,
	})
	return slog.New(handler)
}

// ParseLevel 未知的等級一律視為 info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
