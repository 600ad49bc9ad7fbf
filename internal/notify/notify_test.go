// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type fakeLogger struct {
	warnings []string
}

func (*fakeLogger) Level() zapcore.Level          { return zapcore.DebugLevel }
func (*fakeLogger) Debug(args ...interface{})     {}
func (*fakeLogger) Debugf(string, ...interface{}) {}
func (*fakeLogger) Info(args ...interface{})      {}
func (*fakeLogger) Infof(string, ...interface{})  {}
func (f *fakeLogger) Warn(args ...interface{}) {
	f.warnings = append(f.warnings, "warn")
}
func (f *fakeLogger) Warnf(format string, args ...interface{}) {
	f.warnings = append(f.warnings, format)
}
func (*fakeLogger) Error(args ...interface{})       {}
func (*fakeLogger) Errorf(string, ...interface{})   {}
func (*fakeLogger) DPanic(args ...interface{})      {}
func (*fakeLogger) DPanicf(string, ...interface{})  {}
func (*fakeLogger) Panic(args ...interface{})       {}
func (*fakeLogger) Panicf(string, ...interface{})   {}
func (*fakeLogger) Fatal(args ...interface{})       {}
func (*fakeLogger) Fatalf(string, ...interface{})   {}
func (*fakeLogger) Benchmark(string, time.Duration) {}
func (*fakeLogger) Sync() error                     { return nil }

func TestNewDefaultsToNoopForEmptyProvider(t *testing.T) {
	n, err := New(&fakeLogger{}, "", "", "", "", "")
	require.NoError(t, err)
	assert.IsType(t, Noop{}, n)
	assert.NoError(t, n.Notify(context.Background(), Notification{}))
}

func TestNewDefaultsToNoopForUnknownProvider(t *testing.T) {
	logger := &fakeLogger{}
	n, err := New(logger, "carrier-pigeon", "", "", "", "")
	require.NoError(t, err)
	assert.IsType(t, Noop{}, n)
	assert.NotEmpty(t, logger.warnings)
}

func TestNewBuildsSendgridNotifierWithoutNetworkCall(t *testing.T) {
	n, err := New(&fakeLogger{}, "sendgrid", "", "jobs@langtrack.test", "student@langtrack.test", "fake-key")
	require.NoError(t, err)
	_, ok := n.(*sendgridNotifier)
	assert.True(t, ok)
}

func TestRenderMessageSuccess(t *testing.T) {
	subject, body := renderMessage(Notification{
		JobID:     "job-1",
		Prefix:    "lesson1",
		Succeeded: true,
		WAVPath:   "/out/lesson1.wav",
		SRTPath:   "/out/lesson1.srt",
		Warnings:  []string{"w1"},
	})
	assert.Contains(t, subject, "lesson1")
	assert.Contains(t, subject, "complete")
	assert.Contains(t, body, "/out/lesson1.wav")
	assert.Contains(t, body, "warnings: 1")
}

func TestRenderMessageFailure(t *testing.T) {
	subject, body := renderMessage(Notification{
		JobID:  "job-2",
		Prefix: "lesson2",
		Err:    errors.New("disk full"),
	})
	assert.Contains(t, subject, "failed")
	assert.Contains(t, body, "disk full")
}
