// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package commons

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewApplicationLoggerDefaultsToInfo(t *testing.T) {
	l, err := NewApplicationLogger()
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, l.Level())
}

func TestNewApplicationLoggerAtHonorsLevel(t *testing.T) {
	l, err := NewApplicationLoggerAt(zapcore.DebugLevel)
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, l.Level())
	l.Debugf("entries at %s do not panic", "debug")
	l.Benchmark("noop", time.Millisecond)
	_ = l.Sync() // stderr sync can legitimately error on some platforms; just exercise it
}
