package textutil

import (
	"slices"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Hello World", []string{"hello", "world"}},
		{"The Lord of the Rings", []string{"lord", "rings"}},
		{"Amélie", []string{"amelie"}},
		{"24 Legacy", []string{"24", "legacy"}},
		{"A", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.input)
		if !slices.Equal(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Marvel's Agents of S.H.I.E.L.D.", "marvels agents of shield", 0.8},
		{"Castle (2009)", "castle 2009", 1},
		{"Game of Thrones", "Breaking Bad", 0},
		{"Doctor Who", "Doctor Foster", 0.5},
		{"House House", "House", 2.0 / 3},
		{"", "Lost", 0},
		{"the of", "the of", 0},
	}
	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := Similarity(tt.b, tt.a); got != tt.want {
			t.Errorf("Similarity(%q, %q) = %v, want %v (reversed)", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestSimilarityRanksCloserTitleHigher(t *testing.T) {
	us := Similarity("The Office US", "The Office (US)")
	uk := Similarity("The Office US", "The Office (UK)")
	if us <= uk {
		t.Fatalf("expected US variant to rank higher: us=%v uk=%v", us, uk)
	}
}
