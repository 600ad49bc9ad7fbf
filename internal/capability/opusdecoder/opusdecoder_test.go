// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package opusdecoder

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePacketStream(t *testing.T, path string, packets [][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, p := range packets {
		require.NoError(t, binary.Write(f, binary.LittleEndian, uint32(len(p))))
		_, err := f.Write(p)
		require.NoError(t, err)
	}
}

func TestReadPacketStreamRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stream.opus")
	want := [][]byte{{1, 2, 3}, {4, 5}, {}}
	writePacketStream(t, path, want)

	got, err := readPacketStream(path)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], got[i])
	}
}

func TestReadPacketStreamEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.opus")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	got, err := readPacketStream(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// writeOggPage appends one Ogg page wrapping packets (each packet is
// lacing-encoded as one segment run, terminated by a value < 255; this
// helper never splits a packet across pages and allows at most 255
// lacing values per page, which is sufficient for the small fixtures
// these tests need).
func writeOggPage(t *testing.T, packets [][]byte) []byte {
	t.Helper()
	var segTable []byte
	var body []byte
	for _, p := range packets {
		remaining := len(p)
		for remaining >= 255 {
			segTable = append(segTable, 255)
			remaining -= 255
		}
		segTable = append(segTable, byte(remaining))
		body = append(body, p...)
	}
	require.LessOrEqual(t, len(segTable), 255)

	page := []byte("OggS")
	page = append(page, 0)          // version
	page = append(page, 0)          // header_type
	page = append(page, make([]byte, 8)...)  // granule position
	page = append(page, make([]byte, 4)...)  // serial number
	page = append(page, make([]byte, 4)...)  // page sequence number
	page = append(page, make([]byte, 4)...)  // checksum (unverified by the decoder)
	page = append(page, byte(len(segTable)))
	page = append(page, segTable...)
	page = append(page, body...)
	return page
}

func TestReadOggOpusPacketsStripsHeaderPackets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stream.ogg")

	opusHead := append([]byte("OpusHead"), []byte{1, 1, 0, 0}...)
	opusTags := append([]byte("OpusTags"), []byte{0, 0, 0, 0}...)
	audio1 := []byte{0xfc, 1, 2, 3}
	audio2 := []byte{0xfc, 4, 5}

	var stream []byte
	stream = append(stream, writeOggPage(t, [][]byte{opusHead})...)
	stream = append(stream, writeOggPage(t, [][]byte{opusTags})...)
	stream = append(stream, writeOggPage(t, [][]byte{audio1, audio2})...)

	require.NoError(t, os.WriteFile(path, stream, 0o644))

	got, err := readOggOpusPackets(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, audio1, got[0])
	assert.Equal(t, audio2, got[1])
}

func TestReadAnyOpusStreamSniffsOggMagic(t *testing.T) {
	dir := t.TempDir()
	oggPath := filepath.Join(dir, "stream.ogg")
	rawPath := filepath.Join(dir, "stream.raw")

	opusHead := append([]byte("OpusHead"), []byte{1, 1, 0, 0}...)
	audio := []byte{0xfc, 9, 9}
	require.NoError(t, os.WriteFile(oggPath, writeOggPage(t, [][]byte{opusHead, audio}), 0o644))
	writePacketStream(t, rawPath, [][]byte{{1, 2, 3}})

	fromOgg, err := readAnyOpusStream(oggPath)
	require.NoError(t, err)
	require.Len(t, fromOgg, 1)
	assert.Equal(t, audio, fromOgg[0])

	fromRaw, err := readAnyOpusStream(rawPath)
	require.NoError(t, err)
	require.Len(t, fromRaw, 1)
	assert.Equal(t, []byte{1, 2, 3}, fromRaw[0])
}
