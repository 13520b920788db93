package log

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     *logrus.Logger
	loggerOnce sync.Once
)

// initLogger initializes the global logger to write to stderr with timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
		logger.SetLevel(logrus.InfoLevel)
	})
}

// Logger exposes the underlying logrus logger, e.g. to redirect output in tests.
func Logger() *logrus.Logger {
	initLogger()
	return logger
}

func SetLevel(l Level) {
	initLogger()
	logger.SetLevel(toLogrus(l))
}

// ParseLevel maps a config string to a Level. Unknown values yield INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	logger.WithFields(fields(kv...)).Debug(msg)
}

func Info(msg string, kv ...any) {
	initLogger()
	logger.WithFields(fields(kv...)).Info(msg)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	logger.WithFields(fields(kv...)).WithError(err).Error(msg)
}

func toLogrus(l Level) logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// fields converts key, value, key, value, ... into logrus fields.
// Non-string keys are skipped; a trailing odd value is ignored.
func fields(kv ...any) logrus.Fields {
	out := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out[key] = kv[i+1]
	}
	return out
}
