// Package partnermatch resolves a spoken customer name to a partner record
// using Double Metaphone phonetic encoding combined with Jaro-Winkler
// similarity for ranked selection.
//
// The matcher runs in two stages:
//
//  1. Phonetic candidate filtering: metaphone codes are computed for each
//     token of the spoken phrase and of each partner name. Any code overlap
//     makes the partner a phonetic candidate.
//
//  2. Jaro-Winkler ranking: among phonetic candidates, the partner with the
//     highest similarity wins, provided it clears the phonetic threshold.
//     Without any phonetic candidate, a fallback pass ranks all partners by
//     pure similarity against a stricter fuzzy threshold.
//
// Spoken name phrases usually carry a kinship prefix ("anh Nghĩa",
// "cô Hoa"); the pairwise-token comparison strategy absorbs those without a
// dedicated strip list. Phone numbers are compared by substring containment
// since nobody pronounces a phone number fuzzily.
package partnermatch

import (
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/quangvo/agripos/pkg/catalog"
)

const (
	defaultPhoneticThreshold = 0.60
	defaultFuzzyThreshold    = 0.80
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched partner to be accepted. Default: 0.60.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic candidate exists. Default: 0.80.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher is a phonetic partner matcher. All methods are safe for concurrent
// use — the Matcher is read-only after construction.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a Matcher configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match finds the partner best matching the spoken phrase. It returns the
// matched partner and its confidence score, or (nil, 0, false) when nothing
// clears the thresholds. Digit-bearing phrases are tried as phone-number
// substrings first.
func (m *Matcher) Match(phrase string, partners []catalog.Partner) (partner *catalog.Partner, confidence float64, matched bool) {
	phraseLower := strings.ToLower(strings.TrimSpace(phrase))
	if phraseLower == "" || len(partners) == 0 {
		return nil, 0, false
	}

	if digits := digitsOnly(phraseLower); len(digits) >= 3 {
		for i := range partners {
			if partners[i].Phone != "" && strings.Contains(partners[i].Phone, digits) {
				return &partners[i], 1, true
			}
		}
	}

	phraseTokens := strings.Fields(phraseLower)
	phraseCodes := codesForTokens(phraseTokens)

	type candidate struct {
		idx      int
		score    float64
		phonetic bool
	}
	best := candidate{idx: -1}

	for i := range partners {
		nameLower := strings.ToLower(strings.TrimSpace(partners[i].Name))
		if nameLower == "" {
			continue
		}
		nameTokens := strings.Fields(nameLower)

		phonetic := codesOverlap(phraseCodes, codesForTokens(nameTokens))
		score := bestJWScore(phraseTokens, nameTokens, phraseLower, nameLower)

		if phonetic {
			if score >= m.phoneticThreshold && (!best.phonetic || score > best.score) {
				best = candidate{idx: i, score: score, phonetic: true}
			}
		} else if !best.phonetic && score >= m.fuzzyThreshold && score > best.score {
			best = candidate{idx: i, score: score}
		}
	}

	if best.idx < 0 {
		return nil, 0, false
	}
	return &partners[best.idx], best.score, true
}

// digitsOnly strips everything but digits from s.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// codesForTokens returns the union of Double Metaphone codes for the tokens.
// Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
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

// bestJWScore computes the highest Jaro-Winkler similarity between the
// phrase and the name across three strategies: full strings, space-stripped
// strings, and the best pairwise token score (which absorbs kinship
// prefixes like "anh"/"chị").
func bestJWScore(phraseTokens, nameTokens []string, phraseFull, nameFull string) float64 {
	score := matchr.JaroWinkler(phraseFull, nameFull, false)

	if len(phraseTokens) > 1 || len(nameTokens) > 1 {
		concat1 := strings.Join(phraseTokens, "")
		concat2 := strings.Join(nameTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	for _, pt := range phraseTokens {
		for _, nt := range nameTokens {
			if s := matchr.JaroWinkler(pt, nt, false); s > score {
				score = s
			}
		}
	}
	return score
}
