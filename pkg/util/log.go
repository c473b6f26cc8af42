package util

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a JSON production logger writing to stdout. LOG_LEVEL
// (debug/info/warn/error) overrides the default info level.
func NewLogger() (*zap.Logger, error) {
	return zap.New(zapcore.NewCore(jsonEncoder(), zapcore.AddSync(os.Stdout), logLevel())), nil
}

// NewLoggerWithFile tees the logger to stdout and an append-only log file,
// creating parent directories as needed.
func NewLoggerWithFile(logPath string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	lvl := logLevel()
	core := zapcore.NewTee(
		zapcore.NewCore(jsonEncoder(), zapcore.AddSync(os.Stdout), lvl),
		zapcore.NewCore(jsonEncoder(), zapcore.AddSync(file), lvl),
	)
	return zap.New(core), nil
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func logLevel() zapcore.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
