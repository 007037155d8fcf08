package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"
)

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

var verbose atomic.Bool

func init() {
	verbose.Store(os.Getenv("MEDIALIB_LOG_LEVEL") == "debug")
}

// SetVerbose toggles debug-level output for both the package-level
// Debug helper and Scoped loggers created afterward.
func SetVerbose(v bool) { verbose.Store(v) }

// Ambient structured logging: every call site passes a message plus zero or
// more Fields built with the helpers below (String, Int, Err, ...).

// Info logs an informational message.
func Info(msg string, fields ...Field) { InfoStructured(msg, fields...) }

// Warn logs a warning.
func Warn(msg string, fields ...Field) { WarnStructured(msg, fields...) }

// Error logs an error.
func Error(msg string, fields ...Field) { ErrorStructured(msg, fields...) }

// Debug logs a debug message, emitted only when MEDIALIB_LOG_LEVEL=debug at
// startup or after SetVerbose(true).
func Debug(msg string, fields ...Field) { DebugStructured(msg, fields...) }

// Structured logging functions
func InfoStructured(msg string, fields ...Field) {
	logStructured("INFO", msg, fields...)
}

func WarnStructured(msg string, fields ...Field) {
	logStructured("WARN", msg, fields...)
}

func ErrorStructured(msg string, fields ...Field) {
	logStructured("ERROR", msg, fields...)
}

func DebugStructured(msg string, fields ...Field) {
	if verbose.Load() {
		logStructured("DEBUG", msg, fields...)
	}
}

func logStructured(level, msg string, fields ...Field) {
	if os.Getenv("MEDIALIB_LOG_FORMAT") == "json" {
		// JSON structured logging
		logEntry := map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"level":     level,
			"message":   msg,
		}

		for _, field := range fields {
			logEntry[field.Key] = field.Value
		}

		jsonData, _ := json.Marshal(logEntry)
		log.Println(string(jsonData))
	} else {
		// Human-readable structured logging
		fieldStr := ""
		if len(fields) > 0 {
			fieldStr = " "
			for i, field := range fields {
				if i > 0 {
					fieldStr += " "
				}
				fieldStr += fmt.Sprintf("%s=%v", field.Key, field.Value)
			}
		}
		log.Printf("%s: %s%s", level, msg, fieldStr)
	}
}

// Helper functions for common field types
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Err(key string, err error) Field {
	if err == nil {
		return Field{Key: key, Value: nil}
	}
	return Field{Key: key, Value: err.Error()}
}

func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d.String()}
}
