package log

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// log is read by allocators on any goroutine and may be swapped by SetLogger.
var log atomic.Pointer[logrus.Logger]

func init() {
	log.Store(newLogger())
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	l.Level = levelFromEnv()
	return l
}

func levelFromEnv() logrus.Level {
	switch strings.ToLower(os.Getenv("BLOCKALLOC_LOGLEVEL")) {
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Get returns the package logger.
func Get() *logrus.Logger {
	return log.Load()
}

// SetLogger replaces the package logger, nil restores a fresh default.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = newLogger()
	}
	log.Store(l)
}
