package main

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the diagnostics logger. With log.file set, records go to
// a size-rotated file at debug level; otherwise to stderr, where only
// warnings show unless verbose is on.
func newLogger(stderr io.Writer) (*slog.Logger, func()) {
	level := slog.LevelWarn
	if k.Bool("verbose") {
		level = slog.LevelDebug
	}

	path := k.String("log.file")
	if path == "" {
		return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})), func() {}
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    intOr("log.maxsize", 10),
		MaxBackups: intOr("log.maxbackups", 3),
		MaxAge:     intOr("log.maxage", 28),
	}
	logger := slog.New(slog.NewTextHandler(rotator, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { _ = rotator.Close() }
}

func intOr(key string, defaultVal int) int {
	if k.Exists(key) {
		return k.Int(key)
	}
	return defaultVal
}
