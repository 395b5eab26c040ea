package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level maps a LOG_LEVEL value to a slog level. Unknown values fall back
// to fallback.
func Level(value string, fallback slog.Level) slog.Level {
	switch value {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "production", "prod":
		return slog.LevelError
	}
	return fallback
}

// Init installs the default logger on stderr. The client stays quiet
// (errors only) unless LOG_LEVEL says otherwise.
func Init() {
	InitWith(os.Stderr, slog.LevelError)
}

// InitServer is Init for the signaling server, which logs at info.
func InitServer() {
	InitWith(os.Stderr, slog.LevelInfo)
}

func InitWith(w io.Writer, fallback slog.Level) {
	level := Level(os.Getenv("LOG_LEVEL"), fallback)

	logger := slog.New(
		slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}
