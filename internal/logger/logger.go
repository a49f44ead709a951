// Package logger writes leveled log lines to stdout and a rotating file and
// relays them to live subscribers.
package logger

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
)

// LogLevel represents the severity level of a log message.
type LogLevel string

const (
	Debug LogLevel = "DEBUG"
	Info  LogLevel = "INFO"
	Warn  LogLevel = "WARN"
	Error LogLevel = "ERROR"
)

// LogFileName is the name of the rotating log file inside the log directory.
const LogFileName = "neonclock.log"

// recentSize bounds the in-memory backlog served to newly connected clients.
const recentSize = 500

// levelPriority returns the numeric priority of a log level (higher = more severe)
func levelPriority(level LogLevel) int {
	switch level {
	case Debug:
		return 0
	case Info:
		return 1
	case Warn:
		return 2
	case Error:
		return 3
	default:
		return 1
	}
}

// ParseLevel maps "debug", "info", "warn" or "error" (any case) to a level.
// Unknown values map to Info.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// LogEntry represents a single log message with metadata for streaming to clients.
type LogEntry struct {
	Timestamp string   `json:"timestamp"`
	Level     LogLevel `json:"level"`
	Message   string   `json:"message"`
}

var (
	mu         sync.Mutex
	minLevel   = Info
	listeners  []chan LogEntry
	recent     []LogEntry
	recentNext int
	fileLogger *lumberjack.Logger
)

func init() {
	// stdout only until Init() is called with a log directory
	log.SetOutput(os.Stdout)
	log.SetFlags(0)
}

// SetLevel sets the minimum log level.
func SetLevel(level string) {
	l := ParseLevel(level)
	mu.Lock()
	minLevel = l
	mu.Unlock()
	log.Printf("Log level set to: %s", l)
}

// Level returns the current minimum level.
func Level() LogLevel {
	mu.Lock()
	defer mu.Unlock()
	return minLevel
}

// Init starts writing to a rotating file in logDir in addition to stdout.
func Init(logDir string) error {
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	fl := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, LogFileName),
		MaxSize:    20, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}

	mu.Lock()
	old := fileLogger
	fileLogger = fl
	mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	log.SetOutput(io.MultiWriter(os.Stdout, fl))
	return nil
}

// Close flushes and detaches the log file. Output falls back to stdout.
func Close() error {
	mu.Lock()
	fl := fileLogger
	fileLogger = nil
	mu.Unlock()

	log.SetOutput(os.Stdout)
	if fl == nil {
		return nil
	}
	return fl.Close()
}

// GetLogDir returns the directory where log files are stored
func GetLogDir() string {
	mu.Lock()
	defer mu.Unlock()
	if fileLogger != nil {
		return filepath.Dir(fileLogger.Filename)
	}
	return ""
}

// Subscribe returns a channel that receives all log entries for real-time streaming.
func Subscribe() chan LogEntry {
	mu.Lock()
	defer mu.Unlock()
	ch := make(chan LogEntry, 100)
	listeners = append(listeners, ch)
	return ch
}

// Unsubscribe removes a log listener channel and closes it.
func Unsubscribe(ch chan LogEntry) {
	mu.Lock()
	defer mu.Unlock()
	for i, l := range listeners {
		if l == ch {
			listeners = append(listeners[:i], listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// Recent returns up to limit of the most recent entries, oldest first.
// limit <= 0 returns the whole backlog.
func Recent(limit int) []LogEntry {
	mu.Lock()
	defer mu.Unlock()

	n := len(recent)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]LogEntry, 0, limit)
	start := n - limit
	for i := start; i < n; i++ {
		// recent is a ring once full; recentNext is the oldest slot
		idx := i
		if n == recentSize {
			idx = (recentNext + i) % recentSize
		}
		out = append(out, recent[idx])
	}
	return out
}

func broadcast(entry LogEntry) {
	mu.Lock()
	defer mu.Unlock()

	if len(recent) < recentSize {
		recent = append(recent, entry)
	} else {
		recent[recentNext] = entry
		recentNext = (recentNext + 1) % recentSize
	}

	for _, ch := range listeners {
		select {
		case ch <- entry:
		default:
			// slow subscriber; drop rather than block the caller
		}
	}
}

// Log writes a formatted message at the specified level to stdout, file, and subscribers.
func Log(level LogLevel, format string, v ...interface{}) {
	if levelPriority(level) < levelPriority(Level()) {
		return
	}

	msg := fmt.Sprintf(format, v...)
	timestamp := time.Now().Format(time.RFC3339)

	log.Printf("%s [%s] %s", timestamp, level, msg)

	broadcast(LogEntry{
		Timestamp: timestamp,
		Level:     level,
		Message:   msg,
	})
}

// Infof logs a formatted message at INFO level.
func Infof(format string, v ...interface{}) {
	Log(Info, format, v...)
}

// Errorf logs a formatted message at ERROR level.
func Errorf(format string, v ...interface{}) {
	Log(Error, format, v...)
}

// Debugf logs a formatted message at DEBUG level.
func Debugf(format string, v ...interface{}) {
	Log(Debug, format, v...)
}

// Warnf logs a formatted message at WARN level.
func Warnf(format string, v ...interface{}) {
	Log(Warn, format, v...)
}
