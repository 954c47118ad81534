package platform

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.WarnLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{" info ", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.WarnLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewLoggerVerboseEmitsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("error", true, &buf)
	require.NoError(t, err)

	logger.Debug("fetching registry item")
	assert.Contains(t, buf.String(), "fetching registry item")
}

func TestNewLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("warn", false, &buf)
	require.NoError(t, err)

	logger.Info("quiet")
	assert.Empty(t, buf.String())
}
