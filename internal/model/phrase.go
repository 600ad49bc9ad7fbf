// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package model

// SubtitleInterval directs the planner to cut an utterance from an existing
// recording rather than synthesize it. Produced by the external phrase
// parser; the core only checks Valid().
type SubtitleInterval struct {
	StartSec float64
	EndSec   float64
	FileKey  string // identifies the source audio recording
}

// Valid reports whether the interval can drive a FileCut segment.
func (s SubtitleInterval) Valid() bool {
	return s.FileKey != "" && s.EndSec > s.StartSec && s.StartSec >= 0
}

// PhraseKind distinguishes the two phrase variants accepted from the
// external parser (spec.md §3).
type PhraseKind int

const (
	PhraseDescription PhraseKind = iota
	PhrasePair
)

// Phrase is the external input unit, produced by the phrase-file parser
// (out of scope for this module; consumed here by interface only).
type Phrase struct {
	Kind PhraseKind

	// Description text, valid when Kind == PhraseDescription.
	Description string

	// Pair fields, valid when Kind == PhrasePair.
	Original    string
	Translation string
	HasTranslation bool
	Interval    SubtitleInterval
}
