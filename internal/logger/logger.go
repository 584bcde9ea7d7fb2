package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. Development gets colored text output unless
// format is "json"; everything else logs JSON.
func New(level string, development bool, format string) *logrus.Logger {
	log := logrus.New()

	if level == "" {
		level = "info"
		if development {
			level = "debug"
		}
	}
	if lvl, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", level).Warn("Invalid LOG_LEVEL, using INFO")
	}

	if !development || strings.ToLower(format) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	log.SetOutput(os.Stdout)
	return log
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// WithRun scopes a logger to one simulation run.
func WithRun(log logrus.FieldLogger, runID string, seed int64) logrus.FieldLogger {
	return log.WithFields(logrus.Fields{
		"run_id": runID,
		"seed":   seed,
	})
}
