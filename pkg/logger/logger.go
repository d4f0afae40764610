package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields is an alias so callers don't need to import logrus directly.
type Fields = logrus.Fields

var log = logrus.New()

// Init configures level and output format (called once from main).
func Init(level, format string) {
	log.SetOutput(os.Stdout)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000000",
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
}

func WithFields(fields Fields) *logrus.Entry {
	return log.WithFields(fields)
}

func Infof(format string, v ...any) {
	log.Infof(format, v...)
}

func Warnf(format string, v ...any) {
	log.Warnf(format, v...)
}

func Errorf(format string, v ...any) {
	log.Errorf(format, v...)
}

func Debugf(format string, v ...any) {
	log.Debugf(format, v...)
}

func Fatalf(format string, v ...any) {
	log.Fatalf(format, v...)
}
