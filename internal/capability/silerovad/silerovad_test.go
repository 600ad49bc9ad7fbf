// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package silerovad

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/streamer45/silero-vad-go/speech"
)

func TestDecodeMonoFloat32RoundTrips16Bit(t *testing.T) {
	frames := make([]byte, 4)
	binary.LittleEndian.PutUint16(frames[0:2], uint16(int16(16384)))
	binary.LittleEndian.PutUint16(frames[2:4], uint16(int16(-16384)))

	samples := decodeMonoFloat32(frames, 16)
	assert.InDelta(t, 16384.0/math.MaxInt16, samples[0], 0.0001)
	assert.InDelta(t, -16384.0/math.MaxInt16, samples[1], 0.0001)
}

func TestDecodeMonoFloat32RejectsNon16Bit(t *testing.T) {
	assert.Nil(t, decodeMonoFloat32(make([]byte, 8), 8))
}

func TestInvertToSilenceFindsLeadingTrailingAndMidGaps(t *testing.T) {
	segments := []speech.Segment{
		{SpeechStartAt: 1.0, SpeechEndAt: 2.0},
		{SpeechStartAt: 3.0, SpeechEndAt: 4.0},
	}
	pauses := invertToSilence(segments, 5.0, 0.3)
	assert.Len(t, pauses, 3)
	assert.Equal(t, 0.0, pauses[0].StartSec)
	assert.Equal(t, 1.0, pauses[0].EndSec)
	assert.Equal(t, 2.0, pauses[1].StartSec)
	assert.Equal(t, 3.0, pauses[1].EndSec)
	assert.Equal(t, 4.0, pauses[2].StartSec)
	assert.Equal(t, 5.0, pauses[2].EndSec)
}

func TestInvertToSilenceFiltersGapsBelowMinimum(t *testing.T) {
	segments := []speech.Segment{
		{SpeechStartAt: 0.1, SpeechEndAt: 5.0},
	}
	pauses := invertToSilence(segments, 5.0, 0.3)
	assert.Empty(t, pauses)
}
