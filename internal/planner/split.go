// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package planner

import (
	"strings"

	"github.com/rapidaai/langtrack/internal/model"
)

// splitPipeSeparated splits a phrase's text on "|" (spec.md §4.4 "line
// splitting by a pipe separator yields multiple segments"), dropping
// empty parts.
func splitPipeSeparated(text string) []string {
	raw := strings.Split(text, "|")
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

// resolveLanguagePrefix strips a leading "de:"/"en:"/"rus:" tag and
// resolves the override language for that split only, falling back to
// defaultLang when no prefix is present (spec.md §4.4).
func resolveLanguagePrefix(text string, defaultLang model.Language) (model.Language, string) {
	idx := strings.Index(text, ":")
	if idx <= 0 {
		return defaultLang, text
	}
	prefix := text[:idx]
	if lang, ok := model.LanguageByPrefix[prefix]; ok {
		return lang, strings.TrimSpace(text[idx+1:])
	}
	return defaultLang, text
}
