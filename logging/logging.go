// Package logging contains the zap backed loggers shared by every offboard component.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging interface handed to components. Loggers are cheap to
// derive with Sublogger and are safe for concurrent use.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a child logger named "<parent>.<subname>". The child shares its
	// parent's level.
	Sublogger(subname string) Logger
	SetLevel(level Level)
	GetLevel() Level
	Sync() error
	AsZap() *zap.SugaredLogger
}

// NewLoggerConfig returns the encoder settings used for console output.
func NewLoggerConfig() zapcore.EncoderConfig {
	// from https://github.com/uber-go/zap/blob/2314926ec34c23ee21f3dd4399438469668f8097/config.go#L135
	// but use same keys as prod, and color levels.
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewLogger returns a new logger that outputs Info+ logs to stdout.
func NewLogger(name string) Logger {
	return newStdoutLogger(name, INFO)
}

// NewDebugLogger returns a new logger that outputs Debug+ logs to stdout.
func NewDebugLogger(name string) Logger {
	return newStdoutLogger(name, DEBUG)
}

func newStdoutLogger(name string, level Level) Logger {
	atomicLevel := zap.NewAtomicLevelAt(level.AsZap())
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(NewLoggerConfig()),
		zapcore.Lock(os.Stdout),
		atomicLevel,
	)
	return newImpl(name, atomicLevel, core)
}

// NewFileLogger returns a logger that writes to stdout and also appends JSON
// lines to a size-rotated file at path. The returned close func releases the file.
func NewFileLogger(name, path string, level Level) (Logger, func() error) {
	atomicLevel := zap.NewAtomicLevelAt(level.AsZap())
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    64,
		MaxBackups: 3,
		Compress:   true,
	}
	fileConfig := NewLoggerConfig()
	fileConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(NewLoggerConfig()), zapcore.Lock(os.Stdout), atomicLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(file), atomicLevel),
	)
	return newImpl(name, atomicLevel, core), file.Close
}
