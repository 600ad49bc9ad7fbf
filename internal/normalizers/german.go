// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package normalizers

import (
	"regexp"
	"strconv"

	"github.com/rapidaai/langtrack/pkg/commons"
	numbertowords "moul.io/number-to-words"
)

// germanOrdinalWords covers the day-of-month range a calendar date needs
// (1-31); German ordinals below 20 are irregular and not derivable from
// the cardinal form, so they are tabulated directly rather than generated.
var germanOrdinalWords = map[int]string{
	1: "erste", 2: "zweite", 3: "dritte", 4: "vierte", 5: "fünfte",
	6: "sechste", 7: "siebte", 8: "achte", 9: "neunte", 10: "zehnte",
	11: "elfte", 12: "zwölfte", 13: "dreizehnte", 14: "vierzehnte", 15: "fünfzehnte",
	16: "sechzehnte", 17: "siebzehnte", 18: "achtzehnte", 19: "neunzehnte", 20: "zwanzigste",
	21: "einundzwanzigste", 22: "zweiundzwanzigste", 23: "dreiundzwanzigste", 24: "vierundzwanzigste",
	25: "fünfundzwanzigste", 26: "sechsundzwanzigste", 27: "siebenundzwanzigste", 28: "achtundzwanzigste",
	29: "neunundzwanzigste", 30: "dreißigste", 31: "einunddreißigste",
}

// germanMonthNames is the lookahead dayOrdinalPattern requires: a bare
// "N." is only a date ordinal when a month name follows it, distinguishing
// "der 3. Mai" from an unrelated trailing number-plus-period such as an
// abbreviation or a sentence-final "12.".
const germanMonthNames = `Januar|Februar|März|April|Mai|Juni|Juli|August|September|Oktober|November|Dezember`

var (
	dayOrdinalPattern   = regexp.MustCompile(`\b([0-9]{1,2})\.(\s*(?:` + germanMonthNames + `)\b)`)
	thousandsDotPattern = regexp.MustCompile(`\b([0-9]{1,3})\.([0-9]{3})\b`)
	decimalCommaPattern = regexp.MustCompile(`([0-9])\,([0-9])`)
)

// germanNormalizer applies the three German-specific text rewrites
// spec.md §4.4 names: day-number → ordinal word, thousands-dot removal,
// decimal comma spoken as "Punkt".
type germanNormalizer struct {
	logger commons.Logger
}

func NewGermanNormalizer(logger commons.Logger) Normalizer {
	return &germanNormalizer{logger: logger}
}

func (g *germanNormalizer) Normalize(text string) string {
	out := text
	out = stripThousandsDots(out)
	out = speakDecimalComma(out)
	out = spellDayOrdinals(out)
	return out
}

// stripThousandsDots removes grouping dots from numbers like "1.234" so
// the synthesizer reads "1234" rather than pausing on the dot.
func stripThousandsDots(text string) string {
	for thousandsDotPattern.MatchString(text) {
		text = thousandsDotPattern.ReplaceAllString(text, "$1$2")
	}
	return text
}

// speakDecimalComma rewrites "3,14" to "3 Punkt 14" so the decimal comma
// is spoken rather than silently skipped.
func speakDecimalComma(text string) string {
	return decimalCommaPattern.ReplaceAllString(text, "$1 Punkt $2")
}

// spellDayOrdinals rewrites "N. <Month>" into its German ordinal word, e.g.
// "der 3. Mai" → "der dritte Mai". A trailing "N." with no month name
// following it is left untouched, since it is not a date.
func spellDayOrdinals(text string) string {
	return dayOrdinalPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := dayOrdinalPattern.FindStringSubmatch(match)
		n, err := strconv.Atoi(groups[1])
		if err != nil {
			return match
		}
		if word, ok := germanOrdinalWords[n]; ok {
			return word + groups[2]
		}
		// Outside the tabulated day-of-month range: fall back to the
		// cardinal spelling rather than leaving a bare "N." for the
		// synthesizer to stumble over.
		return numbertowords.Convert(n) + groups[2]
	})
}
