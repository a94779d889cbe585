package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/config"
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelAttack
)

const logFileName = "honeycomb.log"

type Logger struct {
	mu     sync.Mutex
	file   *lumberjack.Logger
	logger *log.Logger
	level  LogLevel
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = &Logger{
		logger: log.New(os.Stdout, "", 0),
		level:  LogLevelInfo,
	}
)

// Init sends log lines to stdout and to <logDir>/honeycomb.log, rotated by
// lumberjack according to rotation.
func Init(logDir string, rotation *config.LogRotationConfig, logLevel string, debug bool) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	if rotation == nil {
		rotation = &config.LogRotationConfig{}
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, logFileName),
		MaxSize:    rotation.MaxSizeMB,
		MaxBackups: rotation.MaxBackups,
		MaxAge:     rotation.MaxAgeDays,
		Compress:   rotation.Compress,
	}

	level := parseLogLevel(logLevel, debug)
	l := &Logger{
		file:   file,
		logger: log.New(io.MultiWriter(file, os.Stdout), "", 0),
		level:  level,
	}

	defaultMu.Lock()
	previous := defaultLogger
	defaultLogger = l
	defaultMu.Unlock()
	previous.close()

	fmt.Printf("[LOGGING] Initialized - LogDir: %s, MaxSize: %d MB, Level: %s\n",
		logDir, rotation.MaxSizeMB, strings.ToLower(levelName(level)))
	return nil
}

// SetOutput replaces the destination of all log lines, dropping any file
// output set up by Init.
func SetOutput(w io.Writer, logLevel string) {
	defaultMu.Lock()
	previous := defaultLogger
	defaultLogger = &Logger{
		logger: log.New(w, "", 0),
		level:  parseLogLevel(logLevel, false),
	}
	defaultMu.Unlock()
	previous.close()
}

func parseLogLevel(level string, debug bool) LogLevel {
	if debug {
		return LogLevelDebug
	}

	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func levelName(level LogLevel) string {
	switch level {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelAttack:
		return "ATTACK"
	default:
		return "INFO"
	}
}

func (l *Logger) writeLog(level LogLevel, msg string) {
	// Attack lines are always kept.
	if level < l.level && level != LogLevelAttack {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.logger.Printf("[%s] [%s] %s", timestamp, levelName(level), msg)
}

func (l *Logger) close() {
	if l == nil || l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.file.Close()
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

func Debug(msg string, args ...interface{}) {
	current().writeLog(LogLevelDebug, fmt.Sprintf(msg, args...))
}

func Info(msg string, args ...interface{}) {
	current().writeLog(LogLevelInfo, fmt.Sprintf(msg, args...))
}

func Warn(msg string, args ...interface{}) {
	current().writeLog(LogLevelWarn, fmt.Sprintf(msg, args...))
}

func Error(msg string, args ...interface{}) {
	current().writeLog(LogLevelError, fmt.Sprintf(msg, args...))
}

// Attack logs one decision line regardless of the configured level.
func Attack(sourceIP, method, path, attackType, verdict string) {
	text := fmt.Sprintf("ATTACK | IP: %s | %s %s | Type: %s | %s", sourceIP, method, path, attackType, verdict)
	current().writeLog(LogLevelAttack, text)
}

// Close flushes and closes the log file, reverting to stdout.
func Close() {
	SetOutput(os.Stdout, levelName(current().level))
}
