package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// NewTestLogger returns a new logger that outputs Debug+ logs through the test's `Log` method, so
// log lines are attributed to the right test even when tests run in parallel.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	testCore := zaptest.NewLogger(tb, zaptest.Level(level)).Core()
	observerCore, observedLogs := observer.New(level)

	return newImpl("", level, zapcore.NewTee(testCore, observerCore)), observedLogs
}
