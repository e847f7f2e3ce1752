/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/suparena/cloudstore/errors"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
		off  bool
	}{
		{"Critical", zapcore.DPanicLevel, false},
		{"Error", zapcore.ErrorLevel, false},
		{"Warning", zapcore.WarnLevel, false},
		{"information", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"Verbose", zapcore.DebugLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"Off", zapcore.InvalidLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, off, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.off, off)
		})
	}

	_, _, err := ParseLevel("chatty")
	assert.True(t, errors.IsNotConfigured(err))
}

func TestNew(t *testing.T) {
	l, err := New(LevelWarning)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	nop, err := New(LevelOff)
	require.NoError(t, err)
	assert.False(t, nop.Core().Enabled(zapcore.FatalLevel))

	assert.NotNil(t, OrNop(nil))
}
