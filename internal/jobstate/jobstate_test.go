// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package jobstate

import (
	"testing"

	"github.com/rapidaai/langtrack/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasterHeaderSetsOnFirstCall(t *testing.T) {
	m := &MasterHeader{}
	h := model.WAVHeader{SampleRate: 22050, BitsPerSample: 16, Channels: 1}
	require.NoError(t, m.CheckOrSet(h))
	got, ok := m.Get()
	require.True(t, ok)
	assert.Equal(t, h, got)
}

func TestMasterHeaderRejectsMismatch(t *testing.T) {
	m := &MasterHeader{}
	require.NoError(t, m.CheckOrSet(model.WAVHeader{SampleRate: 22050, BitsPerSample: 16, Channels: 1}))
	err := m.CheckOrSet(model.WAVHeader{SampleRate: 44100, BitsPerSample: 16, Channels: 1})
	require.Error(t, err)
}

func TestArtifactTablePutGet(t *testing.T) {
	tbl := NewArtifactTable()
	a := model.Artifact{Header: model.DefaultMasterHeader, PCM: []byte{1, 2, 3, 4}}
	tbl.Put("k1", a)
	got, ok := tbl.Get("k1")
	require.True(t, ok)
	assert.Equal(t, a, got)

	_, ok = tbl.Get("missing")
	assert.False(t, ok)
}

func TestPauseTableCachesByDuration(t *testing.T) {
	pt := NewPauseTable()
	h := model.WAVHeader{SampleRate: 1000, BitsPerSample: 16, Channels: 1}
	first := pt.Silence(10, h)
	second := pt.Silence(10, h)
	assert.Equal(t, len(first), len(second))
	assert.Equal(t, 20, len(first)) // 10ms @ 1000Hz, 16-bit mono = 10 frames * 2 bytes

	assert.Nil(t, pt.Silence(0, h))
}
