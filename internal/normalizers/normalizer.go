// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package normalizers implements the text-normalization step of C4 (spec.md
// §4.4): trimming, sentence-terminator insertion, and the German-specific
// rewrites (day-number → ordinal word; thousands dots removed; decimal
// comma spoken as "Punkt"). Shaped like the teacher's normalizer pipeline
// (internal_type.TextNormalizer / BuildNormalizerPipeline), generalized
// from TTS-dialect preprocessing to the planner's fixed rewrite set.
package normalizers

import "github.com/rapidaai/langtrack/pkg/commons"

// Normalizer transforms segment text before it is queued for synthesis.
type Normalizer interface {
	Normalize(text string) string
}

// Pipeline runs a sequence of normalizers in order.
type Pipeline struct {
	logger      commons.Logger
	normalizers []Normalizer
}

// NewPipeline builds the normalizer chain for a language: the
// sentence-terminator check first, then the German-specific rewrites for
// German text (spec.md §4.4 only specifies German-specific rewrites).
func NewPipeline(logger commons.Logger, languageTag string) *Pipeline {
	chain := []Normalizer{NewSentenceTerminatorNormalizer(logger)}
	if languageTag == "de" {
		chain = append(chain, NewGermanNormalizer(logger))
	}
	return &Pipeline{logger: logger, normalizers: chain}
}

// Normalize trims the text, then runs every normalizer in the chain.
func (p *Pipeline) Normalize(text string) string {
	out := text
	for _, n := range p.normalizers {
		out = n.Normalize(out)
	}
	return out
}
