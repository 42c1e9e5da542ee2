package helpers

import (
	"fmt"

	"sjsage522/bestdeal/logger"
)

// LoggerInterface defines the interface for logger implementations
type LoggerInterface interface {
	LogError(name string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger forwards to the structured application logger
type Logger struct {
	log *logger.Logger
}

// NewLogger creates a logger tagged with component
func NewLogger(component string) *Logger {
	return &Logger{log: logger.ForComponent(component)}
}

// LogError logs an error attributed to name, a source or a processing step
func (l *Logger) LogError(name string, err error) {
	l.log.Error().Str("name", name).Err(err).Msg("Operation failed")
}

// LogInfo logs an informational message
func (l *Logger) LogInfo(format string, args ...interface{}) {
	l.log.Info().Msg(fmt.Sprintf(format, args...))
}
