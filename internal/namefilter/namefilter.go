// Package namefilter decides whether a proposed character-name pair is
// admissible for vote recording. The rules exist because the scouting
// model routinely proposes pronouns, honorific-suffixed forms, and
// punctuated fragments as names; everything here is a pure predicate
// over the candidate strings.
package namefilter

import (
	"regexp"
	"strings"
	"unicode"
)

// Part indicates which part of a person's name a candidate is.
type Part string

const (
	Family  Part = "family"
	Given   Part = "given"
	Unknown Part = "unknown"
)

// ParsePart maps a free-form string (as returned by the model) onto a
// Part. Anything unrecognized becomes Unknown rather than an error.
func ParsePart(s string) Part {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "family":
		return Family
	case "given":
		return Given
	default:
		return Unknown
	}
}

// Known reports whether p is one of the three defined values.
func Known(p Part) bool {
	return p == Family || p == Given || p == Unknown
}

// Entry is a single name candidate produced by extraction.
type Entry struct {
	Original string
	English  string
	Part     Part
}

// badOriginalRE matches characters a bare name must not contain:
// whitespace, Japanese and Latin punctuation, separators, and brackets.
var badOriginalRE = regexp.MustCompile(
	`[\s・･｡､,，。／/：:;!！?？\-—–‑·（）()［\]{}＜＞<>『』「」〈〉【】]`)

// honorificSuffixRE matches Japanese honorific suffixes at the end of a
// name.
var honorificSuffixRE = regexp.MustCompile(
	`(さん|ちゃん|くん|君|様|さま|殿|氏|先生|先輩|嬢)$`)

// englishHonorifics are substrings that disqualify an English rendering,
// matched case-insensitively.
var englishHonorifics = []string{
	"-san", "-chan", "-kun", "-sama", " san", " chan", " kun", " sama",
}

// originalDenylist lists words the scout tends to mislabel as character
// names. Exact match only, so legitimate names are never filtered.
var originalDenylist = map[string]bool{
	// Pronouns and self-references.
	"彼": true, "彼女": true, "あいつ": true, "こいつ": true, "そいつ": true,
	"こちとら": true, "こちら": true, "自分": true,
	"私": true, "わたし": true, "わたくし": true,
	"俺": true, "おれ": true, "僕": true, "ぼく": true, "うち": true,
	"あなた": true, "君": true, "きみ": true,
	"お前": true, "おまえ": true, "貴様": true,
	// Plurals and groups.
	"彼ら": true, "彼女ら": true, "俺たち": true, "僕ら": true,
	"私たち": true, "あなたたち": true, "皆": true, "みんな": true,
}

// ValidOriginal reports whether an original-script name may hold votes:
// non-empty, free of punctuation/whitespace/separators, not a denylisted
// pronoun, and not carrying an honorific suffix.
func ValidOriginal(original string) bool {
	if original == "" {
		return false
	}
	if badOriginalRE.MatchString(original) {
		return false
	}
	if originalDenylist[original] {
		return false
	}
	return !honorificSuffixRE.MatchString(original)
}

// ValidEnglish reports whether an English rendering may receive a vote:
// non-empty, a single token (no internal whitespace), and free of
// honorific substrings.
func ValidEnglish(english string) bool {
	if english == "" {
		return false
	}
	if strings.ContainsFunc(english, unicode.IsSpace) {
		return false
	}
	lower := strings.ToLower(english)
	for _, h := range englishHonorifics {
		if strings.Contains(lower, h) {
			return false
		}
	}
	return true
}

// Admissible reports whether the whole entry passes both field checks.
func Admissible(e Entry) bool {
	return ValidOriginal(e.Original) && ValidEnglish(e.English)
}
