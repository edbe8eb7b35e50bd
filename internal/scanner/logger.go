// Scanner logging infrastructure
package scanner

import (
	"log/slog"
	"sync"

	"github.com/aldirahman/judolscan/internal/logging"
)

var (
	scannerLogger   *slog.Logger
	scannerLevelVar = new(slog.LevelVar) // Dynamic level control
	loggerCloseFunc func() error
	loggerOnce      sync.Once
	loggerMu        sync.RWMutex
)

const defaultLogPath = "logs/scanner.log"

// InitializeLogger initializes the scanner file logger. Safe to call multiple
// times; initialization happens once.
func InitializeLogger(logFilePath string) error {
	var initErr error

	loggerOnce.Do(func() {
		if logFilePath == "" {
			logFilePath = defaultLogPath
		}
		scannerLevelVar.Set(slog.LevelInfo)

		logger, closeFn, err := logging.NewFileLogger(logFilePath, "scanner", scannerLevelVar)
		if err != nil {
			loggerMu.Lock()
			scannerLogger = logging.ForService("scanner")
			loggerCloseFunc = func() error { return nil }
			loggerMu.Unlock()
			initErr = err
			return
		}

		loggerMu.Lock()
		scannerLogger = logger
		loggerCloseFunc = closeFn
		loggerMu.Unlock()
	})

	return initErr
}

// getLogger returns the scanner logger, falling back to the default slog
// logger when InitializeLogger has not been called.
func getLogger() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if scannerLogger != nil {
		return scannerLogger
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
