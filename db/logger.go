package db

import (
	"strings"

	"github.com/marcmoiagese/ArbreGedcom/cnf"
	"github.com/sirupsen/logrus"
)

var dbLog = logrus.StandardLogger().WithField("component", "db")

// dbLogEnabled decideix segons LOG_LEVEL de cnf.Config; sense configuració, tot surt.
func dbLogEnabled(level logrus.Level) bool {
	if cnf.Config == nil {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(cnf.Config["LOG_LEVEL"])) {
	case "silent":
		return false
	case "error":
		return level <= logrus.ErrorLevel
	case "warn", "warning":
		return level <= logrus.WarnLevel
	default:
		return true
	}
}

func logInfof(format string, v ...interface{}) {
	if dbLogEnabled(logrus.InfoLevel) {
		dbLog.Infof(format, v...)
	}
}

func logErrorf(format string, v ...interface{}) {
	if dbLogEnabled(logrus.ErrorLevel) {
		dbLog.Errorf(format, v...)
	}
}
