// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package pcm implements C1 (spec.md §4.1): reading and writing linear-PCM
// WAV files, silence generation, and the byte/time alignment rules every
// other component relies on for round-trip stability. Grounded on
// api/assistant-api/internal/audio/recorder/internal/default_audio_recorder.go's
// createWAVFile (manual RIFF header via encoding/binary).
package pcm

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/rapidaai/langtrack/internal/capability"
	"github.com/rapidaai/langtrack/internal/errs"
	"github.com/rapidaai/langtrack/internal/model"
)

const waveFormatPCM = 1

// ReadHeader reads and validates a WAV file's fmt chunk. The whole file is
// parsed, so the frame data is read too and then discarded.
func ReadHeader(path string) (model.WAVHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.WAVHeader{}, errs.ForFile(errs.InputError, path, err)
	}
	defer f.Close()
	h, _, err := parseRIFF(f)
	if err != nil {
		return model.WAVHeader{}, err
	}
	return h, nil
}

// ReadFrames returns the linear-PCM frame bytes of a WAV file, header
// stripped.
func ReadFrames(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.ForFile(errs.InputError, path, err)
	}
	defer f.Close()
	_, data, err := parseRIFF(f)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// parseRIFF walks a RIFF/WAVE container, demanding a linear-PCM fmt chunk,
// and returns the header plus the data chunk's bytes.
func parseRIFF(r io.Reader) (model.WAVHeader, []byte, error) {
	var riffHdr [12]byte
	if _, err := io.ReadFull(r, riffHdr[:]); err != nil {
		return model.WAVHeader{}, nil, errs.New(errs.FormatError, "riff_header", err)
	}
	if string(riffHdr[0:4]) != "RIFF" || string(riffHdr[8:12]) != "WAVE" {
		return model.WAVHeader{}, nil, errs.New(errs.FormatError, "not a RIFF/WAVE file", nil)
	}

	var header model.WAVHeader
	var data []byte
	haveFmt := false

	for {
		var chunkHdr [8]byte
		if _, err := io.ReadFull(r, chunkHdr[:]); err != nil {
			if err == io.EOF {
				break
			}
			return model.WAVHeader{}, nil, errs.New(errs.FormatError, "chunk_header", err)
		}
		id := string(chunkHdr[0:4])
		size := binary.LittleEndian.Uint32(chunkHdr[4:8])

		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return model.WAVHeader{}, nil, errs.New(errs.FormatError, "chunk_body:"+id, err)
		}
		if size%2 == 1 {
			var pad [1]byte
			io.ReadFull(r, pad[:])
		}

		switch id {
		case "fmt ":
			if len(body) < 16 {
				return model.WAVHeader{}, nil, errs.New(errs.FormatError, "fmt chunk too short", nil)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			if format != waveFormatPCM {
				return model.WAVHeader{}, nil, errs.New(errs.FormatError, fmt.Sprintf("unsupported encoding tag %d", format), nil)
			}
			header.Channels = binary.LittleEndian.Uint16(body[2:4])
			header.SampleRate = binary.LittleEndian.Uint32(body[4:8])
			header.BitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			haveFmt = true
		case "data":
			data = body
		}
	}

	if !haveFmt {
		return model.WAVHeader{}, nil, errs.New(errs.FormatError, "missing fmt chunk", nil)
	}
	return header, data, nil
}

// WriteWAV writes a RIFF/WAVE file with a single fmt + data chunk.
func WriteWAV(path string, frames []byte, header model.WAVHeader) error {
	var buf bytes.Buffer
	bytesPerFrame := header.BytesPerFrame()
	byteRate := int(header.SampleRate) * bytesPerFrame

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(frames)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(waveFormatPCM))
	binary.Write(&buf, binary.LittleEndian, header.Channels)
	binary.Write(&buf, binary.LittleEndian, header.SampleRate)
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(bytesPerFrame))
	binary.Write(&buf, binary.LittleEndian, header.BitsPerSample)

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(frames)))
	buf.Write(frames)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errs.ForFile(errs.FormatError, path, err)
	}
	return nil
}

// FramesForDuration returns a byte count aligned down to a whole frame.
func FramesForDuration(sec float64, header model.WAVHeader) int {
	bytesPerFrame := header.BytesPerFrame()
	raw := int(sec * float64(header.SampleRate) * float64(bytesPerFrame))
	if bytesPerFrame == 0 {
		return 0
	}
	return (raw / bytesPerFrame) * bytesPerFrame
}

// DurationMsForBytes returns the integer millisecond duration of a byte
// count, floored.
func DurationMsForBytes(numBytes int, header model.WAVHeader) int64 {
	bytesPerFrame := header.BytesPerFrame()
	if bytesPerFrame == 0 || header.SampleRate == 0 {
		return 0
	}
	frames := numBytes / bytesPerFrame
	return int64(frames) * 1000 / int64(header.SampleRate)
}

// DecodeCompressed delegates to the injected decoder; the core only
// demands the result be a linear-PCM WAV (spec.md §4.1).
func DecodeCompressed(ctx context.Context, dec capability.Decoder, inPath, outPath string) error {
	if err := dec.ToPCMWAV(ctx, inPath, outPath); err != nil {
		return errs.ForFile(errs.SynthError, inPath, err)
	}
	if _, err := ReadHeader(outPath); err != nil {
		return err
	}
	return nil
}

// MakeSilence returns zero-filled PCM for signed encodings, or
// midpoint-filled PCM for unsigned 8-bit, rounded to the nearest whole
// frame (spec.md §4.1).
func MakeSilence(durationSec float64, header model.WAVHeader) []byte {
	bytesPerFrame := header.BytesPerFrame()
	if bytesPerFrame == 0 {
		return nil
	}
	rawFrames := durationSec * float64(header.SampleRate)
	frameCount := int(rawFrames + 0.5) // round to nearest whole frame
	out := make([]byte, frameCount*bytesPerFrame)

	if header.BitsPerSample == 8 {
		// Unsigned 8-bit PCM: midpoint (128) is silence.
		for i := range out {
			out[i] = 128
		}
	}
	// Signed encodings (16-bit etc.) are zero-filled, which is already the
	// zero-value of the allocated slice.
	return out
}
