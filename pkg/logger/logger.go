package logger

// Backend defines the interface for logging sinks.
type Backend interface {
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

var backends []Backend

// Init configures the global logger with one or more sinks. Logging before
// Init (or with no sinks) is a no-op, which keeps library code and tests
// free of logger setup.
func Init(instances ...Backend) {
	backends = instances
}

// Debug writes a message at DEBUG level to all configured sinks.
func Debug(message string, keyvals ...any) {
	for _, backend := range backends {
		backend.Debug(message, keyvals...)
	}
}

// Info writes a message at INFO level to all configured sinks.
func Info(message string, keyvals ...any) {
	for _, backend := range backends {
		backend.Info(message, keyvals...)
	}
}

// Warn writes a message at WARN level to all configured sinks.
func Warn(message string, keyvals ...any) {
	for _, backend := range backends {
		backend.Warn(message, keyvals...)
	}
}

// Error writes a message at ERROR level to all configured sinks.
func Error(message string, keyvals ...any) {
	for _, backend := range backends {
		backend.Error(message, keyvals...)
	}
}

// Fatal writes a message at FATAL level and terminates the program.
func Fatal(message string, keyvals ...any) {
	for _, backend := range backends {
		backend.Fatal(message, keyvals...)
	}
}
