// Package logger wraps a process-wide structured logger.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

// Init sets up the logger at the given level. Unknown levels fall back to
// info.
func Init(level string) {
	log = logrus.New()
	log.Out = os.Stderr
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
}

func ensure() *logrus.Logger {
	if log == nil {
		Init("info")
	}
	return log
}

// WithField returns an entry with one structured field attached.
func WithField(key string, value any) *logrus.Entry {
	return ensure().WithField(key, value)
}

func Debug(args ...any) { ensure().Debug(args...) }
func Info(args ...any)  { ensure().Info(args...) }
func Warn(args ...any)  { ensure().Warn(args...) }
func Error(args ...any) { ensure().Error(args...) }

func Debugf(format string, args ...any) { ensure().Debugf(format, args...) }
func Infof(format string, args ...any)  { ensure().Infof(format, args...) }
func Warnf(format string, args ...any)  { ensure().Warnf(format, args...) }
func Errorf(format string, args ...any) { ensure().Errorf(format, args...) }
