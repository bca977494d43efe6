package logs

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hackgods/availability-scheduling/internal/config"
)

// New builds the process logger. Output goes to stdout and, when LOG_FILE is
// set, to a rotated file as well.
func New(cfg config.Config, service string) *slog.Logger {
	writers := []io.Writer{os.Stdout}
	if cfg.LogFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		})
	}
	return NewWithWriter(io.MultiWriter(writers...), cfg, service)
}

func NewWithWriter(w io.Writer, cfg config.Config, service string) *slog.Logger {
	isDev := strings.EqualFold(cfg.Env, "dev")
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.LogLevel),
		AddSource: isDev,
	}

	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") || !isDev {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	return slog.New(h).With(
		slog.String("service", service),
		slog.String("env", cfg.Env),
	)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
