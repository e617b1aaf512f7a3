package logger

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// LogRequest logs one Bot API call. The token is never part of method.
func LogRequest(log Logger, method string, statusCode int, durationMs float64) {
	fields := map[string]interface{}{
		"method":      method,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 500:
		log.ErrorWithFields("API request server error", fields)
	case statusCode >= 400:
		log.WarnWithFields("API request client error", fields)
	default:
		log.DebugWithFields("API request completed", fields)
	}
}

// LogDownload logs the outcome of a single sticker
func LogDownload(log Logger, setName, fileUniqueID, status string, err error) {
	l := log.WithFields(map[string]interface{}{
		"set":            setName,
		"file_unique_id": fileUniqueID,
		"status":         status,
	})

	switch {
	case err != nil:
		l.WithError(err).Info("Sticker failed")
	case status == "skipped":
		l.Info("Sticker skipped")
	default:
		l.Debug("Sticker saved")
	}
}

// LogComponentStart logs when a component starts
func LogComponentStart(log Logger, component string, config map[string]interface{}) {
	l := log.WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Debug("Component started")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// BotLogger routes the Bot API library's Println/Printf output into a Logger
// at debug level. It satisfies tgbotapi.BotLogger.
type BotLogger struct {
	log Logger
}

// NewBotLogger wraps log for use with tgbotapi.SetLogger
func NewBotLogger(log Logger) *BotLogger {
	return &BotLogger{log: log.WithField("component", "tgbotapi")}
}

func (b *BotLogger) Println(v ...interface{}) {
	b.log.Debug(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (b *BotLogger) Printf(format string, v ...interface{}) {
	b.log.Debug(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}
