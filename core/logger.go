package core

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.SetLevel(logrus.ErrorLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// SetLogLevel accepta silent, error, warn, info i debug.
func SetLogLevel(levelStr string) {
	level := strings.ToLower(strings.TrimSpace(levelStr))
	switch level {
	case "silent":
		logger.SetLevel(logrus.PanicLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	case "warn", "warning":
		logger.SetLevel(logrus.WarnLevel)
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	logger.Debugf("[log] nivell configurat: %s", level)
}

func Debugf(format string, v ...interface{}) {
	logger.Debugf(format, v...)
}

func Infof(format string, v ...interface{}) {
	logger.Infof(format, v...)
}

func Warnf(format string, v ...interface{}) {
	logger.Warnf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	logger.Errorf(format, v...)
}

// AttachLoggerOutput redirigeix la sortida del log.
func AttachLoggerOutput(w io.Writer) {
	logger.SetOutput(w)
}

// logEntry afegeix camps estructurats (tree_id, user_id, job_uuid...).
func logEntry(fields logrus.Fields) *logrus.Entry {
	return logger.WithFields(fields)
}
