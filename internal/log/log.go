package log

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type Level logrus.Level

const (
	ErrorLevel = Level(logrus.ErrorLevel)
	WarnLevel  = Level(logrus.WarnLevel)
	InfoLevel  = Level(logrus.InfoLevel)
	DebugLevel = Level(logrus.DebugLevel)
	TraceLevel = Level(logrus.TraceLevel)
)

// Logger is the process-wide logger shared by the binaries.
var Logger *logrus.Logger

func init() {
	Logger = New()
}

// New returns a logger using the shared text format.
func New() *logrus.Logger {
	logger := logrus.New()
	logger.Formatter = &logrus.TextFormatter{
		DisableLevelTruncation: true,
		PadLevelText:           true,
		TimestampFormat:        "2006/01/02 15:04:05",
		FullTimestamp:          true,
	}
	return logger
}

// Discard returns a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	logger := New()
	logger.Out = io.Discard
	return logger
}

// ParseLevel accepts the logrus level names ("debug", "info", ...).
func ParseLevel(raw string) (Level, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(raw))
	if err != nil {
		return InfoLevel, fmt.Errorf("log: %w", err)
	}
	return Level(lvl), nil
}

// Configure sets the level and output of the shared logger.
func Configure(level Level, out io.Writer) {
	Logger.SetLevel(logrus.Level(level))
	if out != nil {
		Logger.SetOutput(out)
	}
}

func Debugf(fmt string, args ...any) {
	Logger.Debugf(fmt, args...)
}

func Infof(fmt string, args ...any) {
	Logger.Infof(fmt, args...)
}

func Warnf(fmt string, args ...any) {
	Logger.Warnf(fmt, args...)
}

func Errorf(fmt string, args ...any) {
	Logger.Errorf(fmt, args...)
}

func Fatalf(fmt string, args ...any) {
	Logger.Fatalf(fmt, args...)
}
