// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package silerovad is a reference capability.SilenceDetector adapter over
// github.com/streamer45/silero-vad-go, already a teacher dependency. The
// core pipeline never imports this package directly — only through
// internal/capability.SilenceDetector (SPEC_FULL.md §11), consistent with
// spec.md §1 treating the silence detector as an external collaborator.
// Silence is the complement of detected speech: everything the VAD model
// doesn't mark as speech activity is reported back as a pause interval.
package silerovad

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/rapidaai/langtrack/internal/capability"
	"github.com/rapidaai/langtrack/internal/errs"
	"github.com/rapidaai/langtrack/internal/pcm"
	"github.com/streamer45/silero-vad-go/speech"
)

// Detector is a capability.SilenceDetector backed by the Silero VAD ONNX
// model.
type Detector struct {
	modelPath string
}

// New returns a Detector that loads the VAD model from modelPath on each
// Detect call; the model is small enough that per-call loading keeps the
// detector stateless and safe to share across goroutines.
func New(modelPath string) *Detector {
	return &Detector{modelPath: modelPath}
}

// Detect implements capability.SilenceDetector (spec.md §6): pcmWAVPath
// must already be linear-PCM (C1's responsibility); minSilenceSec filters
// out gaps shorter than the caller's threshold. amplitudeThreshold is
// unused by a VAD-based detector — speech/silence is classified by the
// model, not an amplitude floor — so it is accepted for interface
// compatibility and ignored.
func (d *Detector) Detect(ctx context.Context, pcmWAVPath string, amplitudeThreshold, minSilenceSec float64) ([]capability.PauseInterval, error) {
	header, err := pcm.ReadHeader(pcmWAVPath)
	if err != nil {
		return nil, err
	}
	frames, err := pcm.ReadFrames(pcmWAVPath)
	if err != nil {
		return nil, err
	}

	samples := decodeMonoFloat32(frames, header.BitsPerSample)

	sd, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            d.modelPath,
		SampleRate:           int(header.SampleRate),
		Threshold:            0.5,
		MinSilenceDurationMs: int(minSilenceSec * 1000),
	})
	if err != nil {
		return nil, errs.ForFile(errs.DetectError, pcmWAVPath, err)
	}
	defer sd.Destroy()

	segments, err := sd.Detect(samples)
	if err != nil {
		return nil, errs.ForFile(errs.DetectError, pcmWAVPath, err)
	}

	totalSec := float64(len(samples)) / float64(header.SampleRate)
	return invertToSilence(segments, totalSec, minSilenceSec), nil
}

func decodeMonoFloat32(frames []byte, bitsPerSample uint16) []float32 {
	if bitsPerSample != 16 {
		return nil
	}
	count := len(frames) / 2
	out := make([]float32, count)
	for i := 0; i < count; i++ {
		v := int16(binary.LittleEndian.Uint16(frames[i*2 : i*2+2]))
		out[i] = float32(v) / math.MaxInt16
	}
	return out
}

func invertToSilence(segments []speech.Segment, totalSec, minSilenceSec float64) []capability.PauseInterval {
	var pauses []capability.PauseInterval
	cursor := 0.0
	for _, seg := range segments {
		if seg.SpeechStartAt-cursor >= minSilenceSec {
			pauses = append(pauses, capability.PauseInterval{StartSec: cursor, EndSec: seg.SpeechStartAt})
		}
		cursor = seg.SpeechEndAt
	}
	if totalSec-cursor >= minSilenceSec {
		pauses = append(pauses, capability.PauseInterval{StartSec: cursor, EndSec: totalSec})
	}
	return pauses
}
