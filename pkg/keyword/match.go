// Package keyword matches recognizer transcripts against a configured
// keyword set.
//
// Two entry points exist because partial (in-progress) transcripts mutate
// rapidly and fuzzy-matching them produces false positives: [MatchExact] is
// used on partials, [Match] (exact plus Jaro-Winkler fuzzy) on finalized and
// tail transcripts.
package keyword

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// FuzzyThreshold is the minimum Jaro-Winkler similarity for a transcript
// token to count as a fuzzy hit on a keyword.
const FuzzyThreshold = 0.85

// minFuzzyRunes excludes short function words from fuzzy matching; a
// two-letter keyword is one edit away from half the language.
const minFuzzyRunes = 3

// MatchExact reports the first keyword (in list order) contained in text as a
// substring, case-folded. Empty text never matches.
func MatchExact(text string, keywords []string) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// Match reports the first keyword (in list order) that text matches either as
// a substring or fuzzily: any whitespace-separated token of text with
// Jaro-Winkler similarity ≥ [FuzzyThreshold] against the whole keyword.
// Keywords shorter than 3 runes are only ever matched exactly.
func Match(text string, keywords []string) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) || fuzzyMatch(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// fuzzyMatch reports whether any whitespace token of text is similar enough
// to keyword.
func fuzzyMatch(text, keyword string) bool {
	if utf8.RuneCountInString(keyword) < minFuzzyRunes {
		return false
	}
	for _, token := range strings.Fields(text) {
		if matchr.JaroWinkler(token, keyword, false) >= FuzzyThreshold {
			return true
		}
	}
	return false
}

// Normalize lowercases and deduplicates keywords, preserving first-seen
// order. The detector grammar and all matching operate on this normalized
// set.
func Normalize(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		lower := strings.ToLower(strings.TrimSpace(kw))
		if lower == "" {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}
