// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package model holds the runtime data model shared across the media
// assembly pipeline: phrases, cards, subgroups, segments, artifacts and
// captions. The core treats all of it as plain data; behavior lives in
// the component packages.
package model

// Language is a finite tag with an associated BCP-47 code. The core treats
// it as opaque beyond the code string.
type Language struct {
	Tag  string
	Code string
}

func (l Language) String() string {
	return l.Tag
}

var (
	LanguageGerman  = Language{Tag: "de", Code: "de-DE"}
	LanguageEnglish = Language{Tag: "en", Code: "en-US"}
	LanguageRussian = Language{Tag: "rus", Code: "ru-RU"}
)

// LanguageByPrefix maps a phrase-text prefix tag (e.g. "de:") to a Language.
// Used by the planner to resolve a per-split language override (spec.md §4.4).
var LanguageByPrefix = map[string]Language{
	"de":  LanguageGerman,
	"en":  LanguageEnglish,
	"rus": LanguageRussian,
}
