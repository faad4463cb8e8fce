package logger

import (
	"log/slog"
	"os"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/config"
)

func NewLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Logger.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	var handler slog.Handler
	switch cfg.Logger.Format {
	case "TEXT":
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: true, // critical for incident debugging
		})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
	}
	log := slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("env", cfg.Service.Env),
		slog.String("address", cfg.Service.Addr),
		slog.Int("pid", os.Getpid()),
	)
	slog.SetDefault(log)
	return log
}
