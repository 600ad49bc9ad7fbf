// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package normalizers

import (
	"strings"
	"unicode"

	"github.com/rapidaai/langtrack/pkg/commons"
)

var sentenceTerminators = []rune{'.', '!', '?', ':', ';'}

// sentenceTerminatorNormalizer trims text and appends a sentence
// terminator when none is present (spec.md §4.4).
type sentenceTerminatorNormalizer struct {
	logger commons.Logger
}

func NewSentenceTerminatorNormalizer(logger commons.Logger) Normalizer {
	return &sentenceTerminatorNormalizer{logger: logger}
}

func (s *sentenceTerminatorNormalizer) Normalize(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return trimmed
	}
	last := []rune(trimmed)[len([]rune(trimmed))-1]
	for _, t := range sentenceTerminators {
		if last == t {
			return trimmed
		}
	}
	return trimmed + "."
}

// latinSupplement covers the German letters beyond plain ASCII Latin
// (spec.md §4.4 "Latin with German supplements").
var latinSupplement = map[rune]bool{
	'ä': true, 'ö': true, 'ü': true, 'ß': true,
	'Ä': true, 'Ö': true, 'Ü': true,
}

// IsSilent reports whether text carries no alphabetic character from Latin
// (with German supplements) or Cyrillic — the derived "silent?" flag on a
// Segment (spec.md §3, §4.4).
func IsSilent(text string) bool {
	for _, r := range text {
		if latinSupplement[r] {
			return false
		}
		if unicode.Is(unicode.Latin, r) || unicode.Is(unicode.Cyrillic, r) {
			return false
		}
	}
	return true
}
