package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// levels holds the printed name and terminal colour of each LogLevel.
var levels = [...]struct {
	name   string
	colour color.Attribute
}{
	DEBUG: {"DEBUG", color.FgCyan},
	INFO:  {"INFO", color.FgGreen},
	WARN:  {"WARN", color.FgYellow},
	ERROR: {"ERROR", color.FgRed},
	FATAL: {"FATAL", color.FgRed},
}

func (lv LogLevel) String() string {
	return levels[lv].name
}

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// Logger writes coloured lines to the terminal and JSON lines to a file.
// A nil *Logger discards everything, so optional collaborators can hold one.
type Logger struct {
	mu       sync.Mutex
	terminal io.Writer
	jsonOut  io.Writer
	logFile  *os.File
	minLevel LogLevel
}

func NewLogger() *Logger {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Fatal("Failed to create logs directory:", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	logFileName := fmt.Sprintf("logs/registration-service-%s.log", timestamp)

	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatal("Failed to create log file:", err)
	}

	logger := &Logger{
		terminal: os.Stdout,
		jsonOut:  logFile,
		logFile:  logFile,
		minLevel: levelFromEnv(),
	}

	logger.Info("LOGGER", "Logging to "+logFileName)

	return logger
}

// NewWriterLogger logs JSON lines to w only. Used by tools and tests.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{jsonOut: w, minLevel: DEBUG}
}

// levelFromEnv reads LOG_LEVEL; unknown or empty values mean INFO.
func levelFromEnv() LogLevel {
	want := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	for lv := range levels {
		if levels[lv].name == want {
			return LogLevel(lv)
		}
	}
	return INFO
}

func (l *Logger) log(level LogLevel, category, message string) {
	if l == nil || level < l.minLevel {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:     level.String(),
		Category:  strings.ToUpper(category),
		Message:   message,
		File:      file,
		Line:      line,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.terminal != nil {
		fmt.Fprint(l.terminal, terminalLine(level, entry))
	}
	if l.jsonOut != nil {
		jsonBytes, _ := json.Marshal(entry)
		l.jsonOut.Write(append(jsonBytes, '\n'))
	}
}

// terminalLine renders "15:04:05 LEVEL [CATEGORY] message (file:line)".
func terminalLine(level LogLevel, entry LogEntry) string {
	colour := levels[level].colour
	line := fmt.Sprintf("%s %s %s %s",
		color.BlueString(entry.Timestamp[11:19]),
		color.New(colour).Sprintf("%-5s", entry.Level),
		color.New(colour, color.Bold).Sprintf("[%-10s]", entry.Category),
		entry.Message)
	if entry.File != "" && entry.Line > 0 {
		line += color.MagentaString(" (%s:%d)", entry.File, entry.Line)
	}
	return line + "\n"
}

func (l *Logger) Debug(category, message string) {
	l.log(DEBUG, category, message)
}

func (l *Logger) Info(category, message string) {
	l.log(INFO, category, message)
}

func (l *Logger) Warn(category, message string) {
	l.log(WARN, category, message)
}

func (l *Logger) Error(category, message string) {
	l.log(ERROR, category, message)
}

func (l *Logger) Fatal(category, message string) {
	l.log(FATAL, category, message)
	os.Exit(1)
}

func (l *Logger) LogRegistration(action string, eventID int64, message string) {
	l.log(INFO, "LEDGER", fmt.Sprintf("[%s] event=%d - %s", action, eventID, message))
}

func (l *Logger) LogRejection(action string, eventID int64, message string) {
	l.log(WARN, "LEDGER", fmt.Sprintf("[%s] event=%d - %s", action, eventID, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.log(INFO, "API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogKafka(action, topic, message string) {
	l.log(INFO, "KAFKA", fmt.Sprintf("[%s] %s - %s", action, topic, message))
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.log(INFO, "DATABASE", fmt.Sprintf("[%s] %s - %s", operation, table, message))
}

func (l *Logger) Close() {
	if l == nil || l.logFile == nil {
		return
	}
	l.Info("LOGGER", "Closing log file")
	l.logFile.Close()
}
