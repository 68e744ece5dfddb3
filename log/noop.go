package log

// NoopLogger discards everything
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

func (NoopLogger) Debug(msg string, fields ...Field) {}

func (NoopLogger) Info(msg string, fields ...Field) {}

func (NoopLogger) Warn(msg string, fields ...Field) {}

func (NoopLogger) Error(msg string, fields ...Field) {}
