// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package model

// WAVHeader carries the fields of a linear-PCM WAV file that must be
// identical across every artifact used in one job (spec.md invariant I1).
type WAVHeader struct {
	SampleRate    uint32
	BitsPerSample uint16
	Channels      uint16
}

// Equal reports whether two headers describe the same PCM layout.
func (h WAVHeader) Equal(o WAVHeader) bool {
	return h.SampleRate == o.SampleRate && h.BitsPerSample == o.BitsPerSample && h.Channels == o.Channels
}

// BytesPerFrame is channels * bitsPerSample/8.
func (h WAVHeader) BytesPerFrame() int {
	return int(h.Channels) * int(h.BitsPerSample) / 8
}

// DefaultMasterHeader is the header a job starts with when no FileCut
// recording establishes one first: 16-bit signed PCM, 22050 Hz, mono
// (spec.md §6 "Outputs produced").
var DefaultMasterHeader = WAVHeader{SampleRate: 22050, BitsPerSample: 16, Channels: 1}

// Artifact is an in-memory pair of a WAV header and raw PCM bytes produced
// by synthesis or file read (GLOSSARY).
type Artifact struct {
	Header WAVHeader
	PCM    []byte
}

// Caption is one emitted subtitle span (spec.md invariant I2).
type Caption struct {
	StartMs int64
	EndMs   int64
	Text    string
	Index   int
}
