package score

import (
	"strings"
	"unicode"

	"github.com/xrash/smetrics"

	"github.com/quillon/clearwater/internal/config"
)

// HybridSimilarity computes the weighted string similarity used for
// cross-validating titles and artists: a blend of normalized Levenshtein,
// token Jaccard, and Soundex agreement. The result is always in [0, 1] and a
// non-empty string compared with itself scores 1.0.
func HybridSimilarity(a, b string, w config.SimilarityWeights) float64 {
	na := normalizeText(a)
	nb := normalizeText(b)

	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	s := w.Levenshtein*levenshteinSimilarity(na, nb) +
		w.Jaccard*jaccardSimilarity(na, nb) +
		w.Phonetic*phoneticSimilarity(na, nb)

	return clampFloat(s, 0, 1)
}

// normalizeText lowercases, strips punctuation, and collapses whitespace.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case r == '\'' || r == '’':
			// Apostrophes join rather than split ("don't" -> "dont").
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// levenshteinSimilarity converts edit distance to a [0, 1] similarity.
func levenshteinSimilarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 1)
	return 1.0 - float64(dist)/float64(maxLen)
}

// jaccardSimilarity compares the word-token sets of two normalized strings.
func jaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// phoneticSimilarity compares the Soundex code sets of two normalized
// strings, so spelling variants of the same name still agree.
func phoneticSimilarity(a, b string) float64 {
	codesA := soundexSet(a)
	codesB := soundexSet(b)
	if len(codesA) == 0 && len(codesB) == 0 {
		return 1.0
	}
	if len(codesA) == 0 || len(codesB) == 0 {
		return 0.0
	}

	intersection := 0
	for code := range codesA {
		if codesB[code] {
			intersection++
		}
	}
	union := len(codesA) + len(codesB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

// soundexSet encodes each alphabetic token. Pure-digit tokens carry no
// phonetic information and are skipped.
func soundexSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		if !strings.ContainsFunc(tok, unicode.IsLetter) {
			continue
		}
		set[smetrics.Soundex(tok)] = true
	}
	return set
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
