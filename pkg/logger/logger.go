package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a configured logger instance. Level and format come from the
// configuration layer; LOG_LEVEL in the environment overrides the configured
// level.
func New(level, format string) *logrus.Logger {
	log := logrus.New()

	switch format {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "time",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "msg",
				logrus.FieldKeyFunc:  "func",
			},
		})
	}

	log.SetOutput(os.Stdout)

	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// WithComponent returns an entry tagged with the originating component name.
func WithComponent(log *logrus.Logger, component string) *logrus.Entry {
	return log.WithField("component", component)
}
