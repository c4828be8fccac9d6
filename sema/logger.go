package sema

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the analyzer logger, a no-op logger unless SetLogger was
// called.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger replaces the analyzer logger.
func SetLogger(l *zap.Logger) {
	logger = l
}
