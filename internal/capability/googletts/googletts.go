// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package googletts is a reference capability.Synthesizer adapter over
// cloud.google.com/go/texttospeech, already a teacher dependency
// (api/assistant-api/internal/transformer/google exercises the same SDK
// for streaming synthesis). The core pipeline never imports this package
// directly — only through internal/capability.Synthesizer — consistent
// with spec.md §1 excluding cloud credential/transport plumbing from the
// pipeline's own concerns (SPEC_FULL.md §11.1). Option construction
// follows the teacher's googleOption builder shape, generalized from a
// streaming-options builder to a one-shot SynthesizeSpeech request.
package googletts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// DefaultVoice mirrors the teacher's internal_transformer_google default,
// used only when the caller passes an empty voice name.
const DefaultVoice = "en-US-Chirp-HD-F"

// Synthesizer is a capability.Synthesizer backed by the Google Cloud
// Text-to-Speech API.
type Synthesizer struct {
	client *texttospeech.Client
}

// New dials the Text-to-Speech client with the given client options
// (e.g. option.WithCredentialsJSON, option.WithAPIKey), mirroring the
// teacher's googleOption.GetClientOptions.
func New(ctx context.Context, opts ...option.ClientOption) (*Synthesizer, error) {
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dialing texttospeech client: %w", err)
	}
	return &Synthesizer{client: client}, nil
}

// Close releases the underlying gRPC connection.
func (s *Synthesizer) Close() error {
	return s.client.Close()
}

// Synthesize implements capability.Synthesizer (spec.md §6): ssml is sent
// verbatim, encoding selects the wire codec ("MP3", "LINEAR16", ...), and
// sampleRate only applies to LINEAR16 output.
func (s *Synthesizer) Synthesize(ctx context.Context, ssml, languageCode, voice, encoding string, sampleRate int) ([]byte, error) {
	if voice == "" {
		voice = DefaultVoice
	}

	audioEncoding, ok := texttospeechpb.AudioEncoding_value[encoding]
	if !ok || audioEncoding == int32(texttospeechpb.AudioEncoding_AUDIO_ENCODING_UNSPECIFIED) {
		return nil, fmt.Errorf("googletts: unsupported encoding %q", encoding)
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Ssml{Ssml: ssml},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode,
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding(audioEncoding),
		},
	}
	if texttospeechpb.AudioEncoding(audioEncoding) == texttospeechpb.AudioEncoding_LINEAR16 && sampleRate > 0 {
		req.AudioConfig.SampleRateHertz = int32(sampleRate)
	}

	resp, err := s.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}
	return resp.AudioContent, nil
}
