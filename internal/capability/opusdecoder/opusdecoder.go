// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package opusdecoder is a reference capability.Decoder adapter decoding
// the Opus payload a speech synthesizer can be asked to emit
// (texttospeechpb.AudioEncoding_OGG_OPUS, the same constant
// internal/capability/googletts accepts) into linear-PCM WAV. It pairs
// two teacher dependencies in one decode step: gopkg.in/hraban/opus.v2
// does the Opus decode itself, and github.com/tphakala/go-audio-resampler
// resamples the decoded frames when they don't already match the job's
// target rate. ToPCMWAV accepts either a real Ogg-Opus container (RFC
// 7845 page framing, the wire format Google TTS actually returns for
// OGG_OPUS) or the package's own length-prefixed raw-packet framing used
// by tests and by callers that already depacketize upstream. The core
// pipeline never imports this package directly — only through
// internal/capability.Decoder (SPEC_FULL.md §11).
package opusdecoder

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	resampler "github.com/tphakala/go-audio-resampler"
	"gopkg.in/hraban/opus.v2"

	"github.com/rapidaai/langtrack/internal/errs"
	"github.com/rapidaai/langtrack/internal/model"
	"github.com/rapidaai/langtrack/internal/pcm"
)

const (
	opusChannels = 1
	opusMaxFrame = 5760 // 120ms at 48kHz, libopus's documented maximum frame size
	decodedRate  = 48000
)

// Decoder is a capability.Decoder backed by an Opus decode plus optional
// resample step.
type Decoder struct {
	// TargetRate is the sample rate ToPCMWAV resamples decoded audio to
	// when it differs from the Opus decoder's native output rate. Zero
	// means "keep the decoder's native rate" (48kHz, per RFC 6716).
	TargetRate int
}

// New returns a Decoder that resamples to targetRate (0 to keep the
// Opus-native 48kHz).
func New(targetRate int) *Decoder {
	return &Decoder{TargetRate: targetRate}
}

// ToPCMWAV implements capability.Decoder (spec.md §6). inPath holds
// either a real Ogg-Opus container or a sequence of length-prefixed raw
// Opus packets (the framing a synthesizer's streaming transport already
// depacketizes to); outPath receives a linear-PCM WAV file.
func (d *Decoder) ToPCMWAV(ctx context.Context, inPath, outPath string) error {
	packets, err := readAnyOpusStream(inPath)
	if err != nil {
		return errs.ForFile(errs.FormatError, inPath, err)
	}

	dec, err := opus.NewDecoder(decodedRate, opusChannels)
	if err != nil {
		return errs.ForFile(errs.SynthError, inPath, err)
	}

	var samples []int16
	buf := make([]int16, opusMaxFrame)
	for _, packet := range packets {
		n, err := dec.Decode(packet, buf)
		if err != nil {
			return errs.ForFile(errs.SynthError, inPath, err)
		}
		samples = append(samples, buf[:n]...)
	}

	targetRate := d.TargetRate
	if targetRate == 0 {
		targetRate = decodedRate
	}
	if targetRate != decodedRate {
		samples = resampleInt16(samples, decodedRate, targetRate)
	}

	header := model.WAVHeader{
		SampleRate:    uint32(targetRate),
		BitsPerSample: 16,
		Channels:      opusChannels,
	}
	frames := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(frames[i*2:i*2+2], uint16(s))
	}
	return pcm.WriteWAV(outPath, frames, header)
}

func resampleInt16(samples []int16, fromRate, toRate int) []int16 {
	in := make([]float64, len(samples))
	for i, s := range samples {
		in[i] = float64(s)
	}
	r := resampler.New(fromRate, toRate)
	out := r.Resample(in)
	result := make([]int16, len(out))
	for i, v := range out {
		result[i] = int16(v)
	}
	return result
}

func readPacketStream(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var packets [][]byte
	for {
		var length uint32
		if err := binary.Read(f, binary.LittleEndian, &length); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		packet := make([]byte, length)
		if _, err := io.ReadFull(f, packet); err != nil {
			return nil, err
		}
		packets = append(packets, packet)
	}
	return packets, nil
}

const oggCapturePattern = "OggS"

// readAnyOpusStream sniffs inPath and dispatches to the real Ogg-Opus
// page demuxer or the package's own length-prefixed framing, returning
// decodable Opus audio packets with any Ogg-Opus header packets
// (OpusHead, OpusTags) already stripped.
func readAnyOpusStream(path string) ([][]byte, error) {
	magic := make([]byte, len(oggCapturePattern))
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	n, _ := io.ReadFull(f, magic)
	f.Close()

	if n == len(oggCapturePattern) && string(magic) == oggCapturePattern {
		return readOggOpusPackets(path)
	}
	return readPacketStream(path)
}

// readOggOpusPackets demuxes an Ogg-Opus container (RFC 7845 §3, RFC
// 3533 page framing) into its constituent Opus packets, dropping the
// leading OpusHead identification and OpusTags comment packets so only
// audio frames remain.
func readOggOpusPackets(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var packets [][]byte
	var cur []byte
	pos := 0
	for pos < len(data) {
		if pos+27 > len(data) || string(data[pos:pos+4]) != oggCapturePattern {
			return nil, fmt.Errorf("opusdecoder: bad Ogg capture pattern at offset %d", pos)
		}
		numSegments := int(data[pos+26])
		segTableStart := pos + 27
		if segTableStart+numSegments > len(data) {
			return nil, fmt.Errorf("opusdecoder: truncated Ogg segment table at offset %d", pos)
		}
		segTable := data[segTableStart : segTableStart+numSegments]

		offset := segTableStart + numSegments
		for _, segLen := range segTable {
			n := int(segLen)
			if offset+n > len(data) {
				return nil, fmt.Errorf("opusdecoder: truncated Ogg segment data at offset %d", offset)
			}
			cur = append(cur, data[offset:offset+n]...)
			offset += n
			if n < 255 {
				packets = append(packets, cur)
				cur = nil
			}
		}
		pos = offset
	}

	var audio [][]byte
	for _, p := range packets {
		if isOggOpusHeaderPacket(p) {
			continue
		}
		audio = append(audio, p)
	}
	return audio, nil
}

func isOggOpusHeaderPacket(p []byte) bool {
	return bytes.HasPrefix(p, []byte("OpusHead")) || bytes.HasPrefix(p, []byte("OpusTags"))
}
