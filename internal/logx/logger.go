// Package logx provides the kernel's structured logger construction.
package logx

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a configured logger. level is one of debug/info/warn/error;
// unrecognized values fall back to info.
func New(level string) *logrus.Logger {
	logger := logrus.New()

	switch level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	return logger
}

// Noop returns a logger with output discarded, for tests that don't care
// about log lines but still need a non-nil logger.
func Noop() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}
