package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
)

var levelStrings = map[LogLevel]string{
	DEBUG:   "DEBUG",
	INFO:    "INFO",
	WARNING: "WARNING",
	ERROR:   "ERROR",
}

type Options struct {
	Path       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	MinLevel   LogLevel
}

type Logger struct {
	loggers    map[LogLevel]*log.Logger
	out        io.Writer
	level      LogLevel
	moduleName string
}

// NewLogger writes to stdout and, when opts.Path is set, to a rotating file.
func NewLogger(moduleName string, opts Options) (*Logger, error) {
	if opts.Path == "" {
		return New(moduleName, os.Stdout, opts.MinLevel), nil
	}

	logDir := filepath.Dir(opts.Path)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
		Compress:   true,
	}

	return New(moduleName, io.MultiWriter(rotator, os.Stdout), opts.MinLevel), nil
}

func New(moduleName string, w io.Writer, minLevel LogLevel) *Logger {
	loggers := make(map[LogLevel]*log.Logger)
	for level, prefix := range levelStrings {
		loggers[level] = log.New(w, fmt.Sprintf("[%s] [%s] ", prefix, moduleName), log.LstdFlags)
	}

	return &Logger{
		loggers:    loggers,
		out:        w,
		level:      minLevel,
		moduleName: moduleName,
	}
}

// Discard is used by tests that don't care about output.
func Discard() *Logger {
	return New("TEST", io.Discard, ERROR+1)
}

// Module returns a logger sharing the same writer and level under another
// module prefix.
func (l *Logger) Module(moduleName string) *Logger {
	return New(moduleName, l.out, l.level)
}

func (l *Logger) Debug(format string, v ...interface{}) {
	if l.level <= DEBUG {
		l.loggers[DEBUG].Printf(format, v...)
	}
}

func (l *Logger) Info(format string, v ...interface{}) {
	if l.level <= INFO {
		l.loggers[INFO].Printf(format, v...)
	}
}

func (l *Logger) Warning(format string, v ...interface{}) {
	if l.level <= WARNING {
		l.loggers[WARNING].Printf(format, v...)
	}
}

func (l *Logger) Error(format string, v ...interface{}) {
	if l.level <= ERROR {
		l.loggers[ERROR].Printf(format, v...)
	}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

func GetLogLevelFromString(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARNING", "WARN":
		return WARNING
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}
