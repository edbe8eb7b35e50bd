// Retraining logging infrastructure
package retraining

import (
	"log/slog"
	"sync"

	"github.com/aldirahman/judolscan/internal/logging"
)

var (
	retrainingLogger   *slog.Logger
	retrainingLevelVar = new(slog.LevelVar) // Dynamic level control
	loggerCloseFunc    func() error
	loggerOnce         sync.Once
	loggerMu           sync.RWMutex
)

const defaultLogPath = "logs/retraining.log"

// InitializeLogger initializes the retraining file logger. Safe to call
// multiple times; initialization happens once.
func InitializeLogger(logFilePath string) error {
	var initErr error

	loggerOnce.Do(func() {
		if logFilePath == "" {
			logFilePath = defaultLogPath
		}
		retrainingLevelVar.Set(slog.LevelInfo)

		logger, closeFn, err := logging.NewFileLogger(logFilePath, "retraining", retrainingLevelVar)
		if err != nil {
			loggerMu.Lock()
			retrainingLogger = logging.ForService("retraining")
			loggerCloseFunc = func() error { return nil }
			loggerMu.Unlock()
			initErr = err
			return
		}

		loggerMu.Lock()
		retrainingLogger = logger
		loggerCloseFunc = closeFn
		loggerMu.Unlock()
	})

	return initErr
}

// getLogger returns the retraining logger, falling back to the default slog
// logger when InitializeLogger has not been called.
func getLogger() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if retrainingLogger != nil {
		return retrainingLogger
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
