// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package pcm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rapidaai/langtrack/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHeader = model.WAVHeader{SampleRate: 22050, BitsPerSample: 16, Channels: 1}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")

	frames := make([]byte, 2205*2) // 0.1s of 16-bit mono silence-shaped data
	for i := range frames {
		frames[i] = byte(i % 251)
	}

	require.NoError(t, WriteWAV(path, frames, testHeader))

	gotHeader, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, testHeader, gotHeader)

	gotFrames, err := ReadFrames(path)
	require.NoError(t, err)
	assert.Equal(t, frames, gotFrames)
}

func TestFramesForDuration(t *testing.T) {
	tests := []struct {
		name string
		sec  float64
		want int
	}{
		{"one second", 1.0, 22050 * 2},
		{"half second", 0.5, 11025 * 2},
		{"sub-frame duration truncates to zero", 1.0 / 22050 / 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FramesForDuration(tt.sec, testHeader)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 0, got%testHeader.BytesPerFrame())
		})
	}
}

func TestDurationMsForBytes(t *testing.T) {
	b := FramesForDuration(2.5, testHeader)
	ms := DurationMsForBytes(b, testHeader)
	assert.InDelta(t, 2500, ms, 1)
}

func TestMakeSilenceSignedIsZero(t *testing.T) {
	s := MakeSilence(0.1, testHeader)
	assert.NotEmpty(t, s)
	assert.Equal(t, 0, len(s)%testHeader.BytesPerFrame())
	for _, b := range s {
		assert.Equal(t, byte(0), b)
	}
}

func TestMakeSilenceUnsigned8BitIsMidpoint(t *testing.T) {
	h := model.WAVHeader{SampleRate: 8000, BitsPerSample: 8, Channels: 1}
	s := MakeSilence(0.01, h)
	require.NotEmpty(t, s)
	for _, b := range s {
		assert.Equal(t, byte(128), b)
	}
}

func TestReadHeaderRejectsNonRIFF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file at all"), 0o644))

	_, err := ReadHeader(path)
	assert.Error(t, err)
}
