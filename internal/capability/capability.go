// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package capability declares the injected collaborators the core pipeline
// depends on as small interfaces rather than concrete providers (spec.md
// §6, §9: "Global state in the reference source... becomes explicit
// injected capabilities"). Modeled on the teacher's
// internal_transformer.TextToSpeechTransformer / internal_type.TextNormalizer
// shape: a narrow interface, owned for the job's lifetime by whoever
// constructs the orchestrator.
package capability

import "context"

// PauseInterval is one detected silence window inside a PCM WAV, in seconds.
type PauseInterval struct {
	StartSec float64
	EndSec   float64
}

// Synthesizer produces a compressed or uncompressed audio buffer for one
// SSML document (spec.md §6).
type Synthesizer interface {
	Synthesize(ctx context.Context, ssml, languageCode, voice, encoding string, sampleRate int) ([]byte, error)
}

// Decoder normalizes any supported input into linear-PCM WAV (spec.md §6).
type Decoder interface {
	ToPCMWAV(ctx context.Context, inPath, outPath string) error
}

// SilenceDetector finds pause intervals inside a PCM WAV file (spec.md §6).
type SilenceDetector interface {
	Detect(ctx context.Context, pcmWAVPath string, amplitudeThreshold float64, minSilenceSec float64) ([]PauseInterval, error)
}

// VideoMuxer is an optional extension seam for the explicitly out-of-scope
// video-muxing step (spec.md §1; SPEC_FULL.md §12). Nil by default; the
// orchestrator never constructs or calls an implementation on its own.
type VideoMuxer interface {
	MuxVideo(ctx context.Context, wavPath, srtPath, outPath string) error
}
