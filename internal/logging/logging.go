// Package logging configures the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger = logrus.New()
	mu     sync.Mutex
)

// Fields is a set of structured log fields.
type Fields = logrus.Fields

// Options controls logger setup.
type Options struct {
	Level string // logrus level name; empty means info
	File  string // optional rotating log file
	// Output replaces stderr when set (used by tests).
	Output io.Writer
}

// Setup configures the shared logger. It is safe to call more than once.
func Setup(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	logger.SetFormatter(&formatter.Formatter{
		NoColors:        opts.Output != nil,
		TimestampFormat: "2006-01-02 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})

	var out io.Writer = os.Stderr
	if opts.Output != nil {
		out = opts.Output
	}
	writers := []io.Writer{out}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    50,
			MaxAge:     30,
			MaxBackups: 5,
		})
	}
	logger.SetOutput(io.MultiWriter(writers...))
	logger.SetReportCaller(level >= logrus.DebugLevel)
	return nil
}

// Logger returns the shared logger.
func Logger() *logrus.Logger {
	return logger
}

func Debug(fields Fields, msg string) {
	logger.WithFields(fields).Debug(msg)
}

func Info(fields Fields, msg string) {
	logger.WithFields(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	logger.WithFields(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	logger.WithFields(fields).Error(msg)
}
