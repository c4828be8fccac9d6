package invoke

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package logger, a no-op logger unless SetLogger was
// called.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger replaces the package logger. Call it before binding functions.
func SetLogger(l *zap.Logger) {
	logger = l
}
