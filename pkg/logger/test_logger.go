package logger

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

type recorder struct {
	mu       sync.Mutex
	messages []LogMessage
	buffer   bytes.Buffer
}

// TestLogger captures every message so tests can assert on them. Child
// loggers created with WithField/WithError share the parent's recorder.
type TestLogger struct {
	rec    *recorder
	fields map[string]interface{}
	err    error
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{rec: &recorder{}}
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil) }
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, f map[string]interface{}) { l.log("DEBUG", msg, f) }
func (l *TestLogger) InfoWithFields(msg string, f map[string]interface{})  { l.log("INFO", msg, f) }
func (l *TestLogger) WarnWithFields(msg string, f map[string]interface{})  { l.log("WARN", msg, f) }
func (l *TestLogger) ErrorWithFields(msg string, f map[string]interface{}) { l.log("ERROR", msg, f) }
func (l *TestLogger) FatalWithFields(msg string, f map[string]interface{}) { l.log("FATAL", msg, f) }

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return &TestLogger{rec: l.rec, fields: merge(l.fields, fields), err: l.err}
}

func (l *TestLogger) WithError(err error) Logger {
	return &TestLogger{rec: l.rec, fields: l.fields, err: err}
}

func (l *TestLogger) WithContext(ctx context.Context) Logger {
	return l
}

func (l *TestLogger) GetZerolog() *zerolog.Logger {
	z := zerolog.Nop()
	return &z
}

func merge(base, extra map[string]interface{}) map[string]interface{} {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}) {
	fields = merge(l.fields, fields)

	l.rec.mu.Lock()
	defer l.rec.mu.Unlock()

	l.rec.messages = append(l.rec.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  fields,
		Error:   l.err,
	})

	fmt.Fprintf(&l.rec.buffer, "[%s] %s", level, msg)
	if len(fields) > 0 {
		fmt.Fprintf(&l.rec.buffer, " fields=%v", fields)
	}
	if l.err != nil {
		fmt.Fprintf(&l.rec.buffer, " error=%v", l.err)
	}
	l.rec.buffer.WriteByte('\n')
}

// GetMessages returns a copy of all captured log messages
func (l *TestLogger) GetMessages() []LogMessage {
	l.rec.mu.Lock()
	defer l.rec.mu.Unlock()

	messages := make([]LogMessage, len(l.rec.messages))
	copy(messages, l.rec.messages)
	return messages
}

// GetMessagesByLevel returns all messages of a specific level
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var filtered []LogMessage
	for _, msg := range l.GetMessages() {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	for _, msg := range l.GetMessages() {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// HasMessageContaining checks for a logged message containing substr
func (l *TestLogger) HasMessageContaining(substr string) bool {
	for _, msg := range l.GetMessages() {
		if strings.Contains(msg.Message, substr) {
			return true
		}
	}
	return false
}

// HasError checks if an error was logged
func (l *TestLogger) HasError() bool {
	return len(l.GetMessagesByLevel("ERROR")) > 0
}

// Clear clears all captured messages
func (l *TestLogger) Clear() {
	l.rec.mu.Lock()
	defer l.rec.mu.Unlock()

	l.rec.messages = nil
	l.rec.buffer.Reset()
}

// String returns all log messages as a string
func (l *TestLogger) String() string {
	l.rec.mu.Lock()
	defer l.rec.mu.Unlock()

	return l.rec.buffer.String()
}
