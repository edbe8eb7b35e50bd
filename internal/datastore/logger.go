// Package datastore logging infrastructure for database operations
package datastore

import (
	"log/slog"
	"sync"

	"github.com/aldirahman/judolscan/internal/logging"
)

var (
	datastoreLogger   *slog.Logger
	datastoreLevelVar = new(slog.LevelVar) // Dynamic level control
	loggerCloseFunc   func() error
	loggerOnce        sync.Once
	loggerMu          sync.RWMutex
)

// defaultLogPath follows the project-wide convention of a "logs/" directory
// shared by all service loggers.
const defaultLogPath = "logs/datastore.log"

// InitializeLogger initializes the datastore file logger. Safe to call
// multiple times; initialization happens once.
func InitializeLogger(logFilePath string) error {
	var initErr error

	loggerOnce.Do(func() {
		if logFilePath == "" {
			logFilePath = defaultLogPath
		}
		datastoreLevelVar.Set(slog.LevelInfo)

		var err error
		logger, closeFn, err := logging.NewFileLogger(logFilePath, "datastore", datastoreLevelVar)
		if err != nil {
			// Fall back to the shared service logger rather than failing open
			loggerMu.Lock()
			datastoreLogger = logging.ForService("datastore")
			loggerCloseFunc = func() error { return nil }
			loggerMu.Unlock()
			initErr = err
			return
		}

		loggerMu.Lock()
		datastoreLogger = logger
		loggerCloseFunc = closeFn
		loggerMu.Unlock()
	})

	return initErr
}

// getLogger returns the datastore logger, falling back to the default slog
// logger when InitializeLogger has not been called.
func getLogger() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if datastoreLogger != nil {
		return datastoreLogger
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
