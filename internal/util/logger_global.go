package util

import (
	"sync"
)

var (
	globalMu     sync.RWMutex
	globalLogger LoggerInterface
)

// InitLogger installs the process-wide logger. Calling it again
// replaces the logger, so a command can re-init after settings load.
func InitLogger(logLevel, logFile string, debugToConsole bool) {
	SetLogger(NewLogger(logLevel, logFile, debugToConsole))
}

// SetLogger swaps the global logger. Tests use it to capture output.
func SetLogger(l LoggerInterface) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

func logger() LoggerInterface {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Package-level logging helpers. Safe before InitLogger: messages are
// dropped until a logger is installed.

func LogInfo(msg string) {
	if l := logger(); l != nil {
		l.Info(msg)
	}
}

func LogInfof(format string, args ...interface{}) {
	if l := logger(); l != nil {
		l.Infof(format, args...)
	}
}

func LogDebug(msg string) {
	if l := logger(); l != nil {
		l.Debug(msg)
	}
}

func LogDebugf(format string, args ...interface{}) {
	if l := logger(); l != nil {
		l.Debugf(format, args...)
	}
}

func LogWarn(msg string) {
	if l := logger(); l != nil {
		l.Warn(msg)
	}
}

func LogWarnf(format string, args ...interface{}) {
	if l := logger(); l != nil {
		l.Warnf(format, args...)
	}
}

func LogError(msg string) {
	if l := logger(); l != nil {
		l.Error(msg)
	}
}

func LogErrorf(format string, args ...interface{}) {
	if l := logger(); l != nil {
		l.Errorf(format, args...)
	}
}
