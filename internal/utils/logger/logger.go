package logger

import (
	"io"
	"os"

	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"

	"fieldsync/internal/utils/logger/slogpretty"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// New создает логгер для окружения env с выводом в stdout
func New(env string) *slog.Logger {
	return NewWithOutput(env, os.Stdout, "")
}

// NewWithOutput создает логгер с выводом в w. Если задан file, записи в
// формате JSON пишутся в файл с ротацией, а w не используется.
func NewWithOutput(env string, w io.Writer, file string) *slog.Logger {
	if file != "" {
		return slog.New(slog.NewJSONHandler(rotating(file), &slog.HandlerOptions{Level: level(env)}))
	}

	switch env {
	case envLocal:
		return setupPrettySlogTo(w)
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(env)}))
	}
}

func level(env string) slog.Level {
	switch env {
	case envLocal, envDev:
		return slog.LevelDebug
	case envProd:
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

func rotating(file string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   false,
	}
}

func setupPrettySlog() *slog.Logger {
	return setupPrettySlogTo(os.Stdout)
}

func setupPrettySlogTo(w io.Writer) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	return slog.New(opts.NewPrettyHandler(w))
}

// Discard логгер, который ничего не пишет
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
