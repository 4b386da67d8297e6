package score

import (
	"math"
	"testing"

	"github.com/quillon/clearwater/internal/config"
)

func defaultWeights() config.SimilarityWeights {
	return config.SimilarityWeights{Levenshtein: 0.5, Jaccard: 0.3, Phonetic: 0.2}
}

func TestHybridSimilaritySelf(t *testing.T) {
	weights := []config.SimilarityWeights{
		{Levenshtein: 0.5, Jaccard: 0.3, Phonetic: 0.2},
		{Levenshtein: 1.0, Jaccard: 0.0, Phonetic: 0.0},
		{Levenshtein: 0.0, Jaccard: 0.5, Phonetic: 0.5},
		{Levenshtein: 0.34, Jaccard: 0.33, Phonetic: 0.33},
	}
	inputs := []string{
		"Bohemian Rhapsody",
		"a",
		"The Dark Side of the Moon",
		"99 Luftballons",
		"  Un-Break   My Heart!! ",
	}

	for _, w := range weights {
		if err := w.Validate(); err != nil {
			t.Fatalf("weight triple should be valid: %v", err)
		}
		for _, in := range inputs {
			if got := HybridSimilarity(in, in, w); got != 1.0 {
				t.Errorf("HybridSimilarity(%q, %q, %+v) = %v, want 1.0", in, in, w, got)
			}
		}
	}
}

func TestHybridSimilarityRange(t *testing.T) {
	pairs := [][2]string{
		{"Bohemian Rhapsody", "Bohemian Rapsody"},
		{"Stairway to Heaven", "Highway to Hell"},
		{"", "Something"},
		{"Something", ""},
		{"", ""},
		{"Smells Like Teen Spirit", "smells like teen spirit (remastered)"},
	}
	w := defaultWeights()
	for _, p := range pairs {
		got := HybridSimilarity(p[0], p[1], w)
		if got < 0 || got > 1 {
			t.Errorf("HybridSimilarity(%q, %q) = %v, out of [0,1]", p[0], p[1], got)
		}
	}
}

func TestHybridSimilarityOrdering(t *testing.T) {
	w := defaultWeights()

	closeSim := HybridSimilarity("Bohemian Rhapsody", "Bohemian Rapsody", w)
	farSim := HybridSimilarity("Bohemian Rhapsody", "Enter Sandman", w)
	if closeSim <= farSim {
		t.Errorf("near-duplicate (%v) should outscore unrelated title (%v)", closeSim, farSim)
	}

	if sim := HybridSimilarity("Bohemian Rhapsody", "Bohemian Rapsody", w); sim < 0.7 {
		t.Errorf("typo variant scored %v, want >= 0.7", sim)
	}
}

func TestHybridSimilarityCaseAndPunctuation(t *testing.T) {
	w := defaultWeights()
	if got := HybridSimilarity("Don't Stop Me Now", "dont stop me now", w); got != 1.0 {
		t.Errorf("case/punctuation variants = %v, want 1.0", got)
	}
}

func TestHybridSimilarityEmptyBoth(t *testing.T) {
	if got := HybridSimilarity("", "", defaultWeights()); got != 1.0 {
		t.Errorf("both empty = %v, want 1.0", got)
	}
	if got := HybridSimilarity("x", "", defaultWeights()); got != 0.0 {
		t.Errorf("one empty = %v, want 0.0", got)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello, World!", "hello world"},
		{"  spaced   out  ", "spaced out"},
		{"UPPER", "upper"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := normalizeText(tt.in); got != tt.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLevenshteinSimilarity(t *testing.T) {
	if got := levenshteinSimilarity("abc", "abc"); got != 1.0 {
		t.Errorf("identical = %v, want 1.0", got)
	}
	if got := levenshteinSimilarity("abc", "abd"); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("one substitution = %v, want 2/3", got)
	}
	if got := levenshteinSimilarity("abc", "xyz"); got != 0.0 {
		t.Errorf("disjoint = %v, want 0.0", got)
	}
}

func TestJaccardSimilarity(t *testing.T) {
	if got := jaccardSimilarity("the dark side", "the dark side"); got != 1.0 {
		t.Errorf("identical = %v, want 1.0", got)
	}
	// {the, dark} vs {the, light}: 1 shared of 3 total.
	if got := jaccardSimilarity("the dark", "the light"); math.Abs(got-1.0/3.0) > 1e-9 {
		t.Errorf("partial overlap = %v, want 1/3", got)
	}
}
