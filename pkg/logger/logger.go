// Package logger provides the process-wide zap logger.
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.RWMutex
	global  *zap.Logger
	logFile *lumberjack.Logger
)

// Config controls the global logger.
type Config struct {
	Level       string // debug, info, warn, error
	Development bool
	Encoding    string // json or console
	File        string // optional; entries are written to stdout and this file
	MaxSizeMB   int    // rotate File at this size, default 100
}

// Init builds the global logger from cfg, replacing any previous one.
func Init(cfg Config) error {
	l, f, err := build(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		_ = global.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
	global, logFile = l, f
	return nil
}

// InitLogger initializes the logger with console and file output.
func InitLogger(filename, level string) error {
	return Init(Config{Level: level, Encoding: "console", File: filename})
}

func build(cfg Config) (*zap.Logger, *lumberjack.Logger, error) {
	levelName := cfg.Level
	if levelName == "" {
		levelName = "info"
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder
	if cfg.Development {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var enc zapcore.Encoder
	switch cfg.Encoding {
	case "", "console":
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, nil, fmt.Errorf("unknown log encoding %q", cfg.Encoding)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	var f *lumberjack.Logger
	if cfg.File != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		f = &lumberjack.Logger{Filename: cfg.File, MaxSize: maxSize, MaxBackups: 5, MaxAge: 28}
		sinks = append(sinks, zapcore.AddSync(f))
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), zap.NewAtomicLevelAt(level))
	opts := []zap.Option{zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(core, opts...), f, nil
}

// Get returns the global logger, creating an info-level console logger on
// first use.
func Get() *zap.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		l, _, err := build(Config{})
		if err != nil {
			l = zap.NewNop()
		}
		global = l
	}
	return global
}

// Set replaces the global logger. Tests use it with zaptest loggers.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l
}

// Close flushes the logger and closes the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		_ = global.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// With returns a child of the global logger.
func With(fields ...zap.Field) *zap.Logger {
	return Get().With(fields...)
}

func sugar() *zap.SugaredLogger {
	return Get().WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// Debugf logs a formatted debug message.
func Debugf(format string, v ...any) { sugar().Debugf(format, v...) }

// Infof logs a formatted info message.
func Infof(format string, v ...any) { sugar().Infof(format, v...) }

// Warnf logs a formatted warning.
func Warnf(format string, v ...any) { sugar().Warnf(format, v...) }

// Errorf logs a formatted error.
func Errorf(format string, v ...any) { sugar().Errorf(format, v...) }
