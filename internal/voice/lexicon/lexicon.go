// Package lexicon holds the fixed Vietnamese vocabulary tables used by the
// voice pipeline and the lexical normalizer that rewrites spoken number words
// into digit tokens.
//
// The tables are Vietnamese-specific on purpose. The shop's voice workflow is
// monolingual and the recognizer is locked to the vi-VN locale, so there is
// no abstraction layer for other languages.
package lexicon

import (
	"regexp"
	"strconv"
	"strings"
)

// numberWords maps spoken Vietnamese number words to their values. Only
// entries below 10 are rewritten by Normalize; the larger denominations
// (mười, trăm, ngàn...) stay as words because typical spoken order
// quantities are single digits and composing full compound numerals is not
// worth the ambiguity it introduces.
var numberWords = map[string]int{
	"không": 0, "một": 1, "mốt": 1, "hai": 2, "ba": 3,
	"bốn": 4, "tư": 4, "năm": 5, "lăm": 5, "sáu": 6,
	"bảy": 7, "tám": 8, "chín": 9,
	"mười": 10, "mươi": 10, "trăm": 100, "ngàn": 1000, "nghìn": 1000,
}

// Units is the spoken sale-unit vocabulary, in the order the classifier
// builds its unit alternation. The regex engine matches alternatives
// leftmost-first, so the order here is load-bearing.
var Units = []string{
	"chai", "bao", "gói", "hũ", "can", "lít", "lit", "ml", "kg", "ký",
	"ki lô", "gam", "gram", "viên", "vỉ", "ống", "thùng", "cặp", "bộ",
	"xấp", "cuộn", "tờ",
}

// wordPatterns holds one compiled whole-word regex per rewritable number
// word. Built once at init; \b does not understand Vietnamese letters, so
// word boundaries are expressed as explicit space-or-edge groups.
var wordPatterns = buildWordPatterns()

func buildWordPatterns() map[string]*regexp.Regexp {
	pats := make(map[string]*regexp.Regexp, len(numberWords))
	for word, value := range numberWords {
		if value >= 10 {
			continue
		}
		pats[word] = regexp.MustCompile(`(^|\s)` + regexp.QuoteMeta(word) + `($|\s)`)
	}
	return pats
}

// Normalize lowercases and trims text, then rewrites every whole-word
// occurrence of a small (< 10) spoken number word into its digit string.
//
// Normalize is pure and idempotent: digits are never rewritten further, so
// applying it to already-normalized text is a no-op.
func Normalize(text string) string {
	result := strings.ToLower(strings.TrimSpace(text))
	for word, re := range wordPatterns {
		digit := strconv.Itoa(numberWords[word])
		// Replace repeatedly: adjacent occurrences share the separating
		// space, which a single ReplaceAll pass would consume.
		for {
			replaced := re.ReplaceAllString(result, "${1}"+digit+"${2}")
			if replaced == result {
				break
			}
			result = replaced
		}
	}
	return result
}
