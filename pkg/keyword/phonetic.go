package keyword

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// PhoneticThreshold is the minimum Jaro-Winkler similarity required for a
// phonetically matched keyword to be accepted. Phonetic overlap alone is too
// permissive; the similarity floor rejects words that merely start with the
// same consonant cluster.
const PhoneticThreshold = 0.70

// MatchPhonetic reports the keyword that sounds like a token of text: the
// Double Metaphone codes of a keyword and a token must overlap, and among
// such candidates the highest Jaro-Winkler similarity wins, provided it
// reaches [PhoneticThreshold].
//
// Keywords shorter than three runes are skipped; their phonetic codes are
// too generic and exact matching covers them.
func MatchPhonetic(text string, keywords []string) (string, bool) {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 || len(keywords) == 0 {
		return "", false
	}

	tokenCodes := make([]map[string]struct{}, len(tokens))
	for i, tok := range tokens {
		tokenCodes[i] = metaphoneCodes(tok)
	}

	var (
		best      string
		bestScore float64
	)
	for _, kw := range keywords {
		if len([]rune(kw)) < minFuzzyRunes {
			continue
		}
		kwCodes := metaphoneCodes(kw)
		for i, tok := range tokens {
			if !codesOverlap(tokenCodes[i], kwCodes) {
				continue
			}
			if score := matchr.JaroWinkler(tok, kw, false); score >= PhoneticThreshold && score > bestScore {
				best = kw
				bestScore = score
			}
		}
	}
	return best, best != ""
}

// metaphoneCodes returns the set of Double Metaphone codes for word. Empty
// codes (short words, no consonants) are excluded.
func metaphoneCodes(word string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
