package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Records go to stdout and, when logFile is
// set, are appended to that file as well.
func New(level, logFile string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stdout"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, logFile)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("service", "starshop"))
	zap.ReplaceGlobals(logger)
	return logger, nil
}
