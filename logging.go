package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const logFileEnvKey = "PHOTO_CATALOG_LOG_FILE"

var (
	atomicLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	baseLogger  *zap.Logger
	sugar       *zap.SugaredLogger
)

func init() {
	cfg := zap.NewProductionConfig()
	cfg.Level = atomicLevel
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if logFile := os.Getenv(logFileEnvKey); logFile != "" {
		cfg.OutputPaths = []string{logFile}
		cfg.ErrorOutputPaths = []string{logFile}
	} else {
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	baseLogger = logger
	sugar = baseLogger.Sugar()
}

// SetVerbose switches the logger between info and debug level.
func SetVerbose(verbose bool) {
	if verbose {
		atomicLevel.SetLevel(zapcore.DebugLevel)
		return
	}
	atomicLevel.SetLevel(zapcore.InfoLevel)
}

// withRun returns a logger tagged with the run id.
func withRun(runID string) *zap.SugaredLogger {
	return sugar.With(zap.String("run_id", runID))
}

func syncLogger() {
	_ = baseLogger.Sync()
}

func Debugf(format string, args ...any) {
	sugar.Debugf(format, args...)
}

func Infof(format string, args ...any) {
	sugar.Infof(format, args...)
}

func Warnf(format string, args ...any) {
	sugar.Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	sugar.Errorf(format, args...)
}
