// Validation logging infrastructure
package validation

import (
	"log/slog"
	"sync"

	"github.com/aldirahman/judolscan/internal/logging"
)

var (
	validationLogger   *slog.Logger
	validationLevelVar = new(slog.LevelVar) // Dynamic level control
	loggerCloseFunc    func() error
	loggerOnce         sync.Once
	loggerMu           sync.RWMutex
)

const defaultLogPath = "logs/validation.log"

// InitializeLogger initializes the validation file logger. Safe to call
// multiple times; initialization happens once.
func InitializeLogger(logFilePath string) error {
	var initErr error

	loggerOnce.Do(func() {
		if logFilePath == "" {
			logFilePath = defaultLogPath
		}
		validationLevelVar.Set(slog.LevelInfo)

		logger, closeFn, err := logging.NewFileLogger(logFilePath, "validation", validationLevelVar)
		if err != nil {
			loggerMu.Lock()
			validationLogger = logging.ForService("validation")
			loggerCloseFunc = func() error { return nil }
			loggerMu.Unlock()
			initErr = err
			return
		}

		loggerMu.Lock()
		validationLogger = logger
		loggerCloseFunc = closeFn
		loggerMu.Unlock()
	})

	return initErr
}

// getLogger returns the validation logger, falling back to the default slog
// logger when InitializeLogger has not been called.
func getLogger() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if validationLogger != nil {
		return validationLogger
	}
	return slog.Default()
}

// CloseLogger closes the underlying log writer.
func CloseLogger() error {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if loggerCloseFunc != nil {
		return loggerCloseFunc()
	}
	return nil
}
