package brandrag

import "github.com/kataras/golog"

// Logger is the minimal logging surface used across the library. Components
// accept one via options and default to the golog-backed logger.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

// GologLogger implements Logger on top of kataras/golog.
type GologLogger struct {
	logger *golog.Logger
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger wraps an existing golog.Logger.
func NewGologLogger(logger *golog.Logger) *GologLogger {
	return &GologLogger{logger: logger}
}

func (l *GologLogger) Debug(format string, v ...any) { l.logger.Debugf(format, v...) }
func (l *GologLogger) Info(format string, v ...any)  { l.logger.Infof(format, v...) }
func (l *GologLogger) Warn(format string, v ...any)  { l.logger.Warnf(format, v...) }
func (l *GologLogger) Error(format string, v ...any) { l.logger.Errorf(format, v...) }

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(format string, v ...any) {}
func (NopLogger) Info(format string, v ...any)  {}
func (NopLogger) Warn(format string, v ...any)  {}
func (NopLogger) Error(format string, v ...any) {}

// DefaultLogger returns the golog default logger wrapped as a Logger.
func DefaultLogger() Logger {
	return NewGologLogger(golog.Default)
}
