package platform

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a console logger writing to out. verbose forces debug
// level regardless of levelValue.
func NewLogger(levelValue string, verbose bool, out io.Writer) (*zap.Logger, error) {
	level, err := ParseLogLevel(levelValue)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(out),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core), nil
}

// ParseLogLevel maps a config value to a zap level. Empty means warn.
func ParseLogLevel(value string) (zapcore.Level, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	switch value {
	case "", "warn", "warning":
		return zapcore.WarnLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.WarnLevel, fmt.Errorf("invalid log level %q", value)
	}
}
