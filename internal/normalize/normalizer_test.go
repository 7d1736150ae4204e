package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := New()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips accents and lowercases",
			input: "CÀ PHÊ  sáng",
			want:  "ca phe sang",
		},
		{
			name:  "already normalized input unchanged",
			input: "ca phe sang",
			want:  "ca phe sang",
		},
		{
			name:  "collapses whitespace",
			input: "  tien   dien  thang 3 ",
			want:  "tien dien thang 3",
		},
		{
			name:  "expands teencode as whole words only",
			input: "ck cho ny",
			want:  "chuyen khoan cho nguoi yeu",
		},
		{
			name:  "teencode never replaces inside a word",
			input: "kem socola",
			want:  "kem socola",
		},
		{
			name:  "full diacritic coverage",
			input: "Đặt đồ ăn trưa",
			want:  "dat do an trua",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New()

	inputs := []string{
		"CÀ PHÊ  sáng",
		"ck tien nha",
		"Grab đi làm",
		"ăn tối vs bạn",
	}

	for _, input := range inputs {
		once := n.Normalize(input)
		assert.Equal(t, once, n.Normalize(once), "normalize must be idempotent for %q", input)
	}
}

func TestNormalizeAccentInsensitive(t *testing.T) {
	n := New()

	assert.Equal(t, n.Normalize("ca phe sang"), n.Normalize("CÀ PHÊ  sáng"))
}

func TestSimilarity(t *testing.T) {
	n := New()

	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical strings", a: "ca phe", b: "ca phe", want: 1.0},
		{name: "both empty", a: "", b: "", want: 1.0},
		{name: "left empty", a: "", b: "ca phe", want: 0.0},
		{name: "right empty", a: "ca phe", b: "", want: 0.0},
		{name: "single edit", a: "caphe", b: "ca phe", want: 1.0 - 1.0/6.0},
		{name: "disjoint strings", a: "abc", b: "xyz", want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, n.Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	n := New()

	assert.InDelta(t, n.Similarity("caphe", "ca phe"), n.Similarity("ca phe", "caphe"), 1e-9)
}

func TestBestMatchExactWord(t *testing.T) {
	n := New()

	candidates := []string{"tra sua", "ca phe", "com"}

	match, score, matchType := n.BestMatch("uong ca phe voi ban", candidates, 0.75)
	assert.Equal(t, "ca phe", match)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, MatchExact, matchType)
}

func TestBestMatchExactNeverPartialWord(t *testing.T) {
	n := New()

	// "com" appears inside "combo" but not as a standalone word.
	match, _, matchType := n.BestMatch("mua combo do choi", []string{"com"}, 0.9)
	assert.Equal(t, MatchNone, matchType)
	assert.Empty(t, match)
}

func TestBestMatchFuzzy(t *testing.T) {
	n := New()

	match, score, matchType := n.BestMatch("caphe szang", []string{"com", "ca phe"}, 0.75)
	assert.Equal(t, "ca phe", match)
	assert.Equal(t, MatchFuzzy, matchType)
	assert.GreaterOrEqual(t, score, 0.75)
}

func TestBestMatchBelowThreshold(t *testing.T) {
	n := New()

	match, score, matchType := n.BestMatch("hoan toan khac", []string{"ca phe"}, 0.75)
	assert.Equal(t, MatchNone, matchType)
	assert.Empty(t, match)
	assert.Zero(t, score)
}

func TestBestMatchFirstCandidateKeepsTies(t *testing.T) {
	n := New()

	// Both candidates are equally distant from the input; the first wins.
	match, _, matchType := n.BestMatch("an xoi", []string{"an xom", "an xoa"}, 0.5)
	assert.Equal(t, MatchFuzzy, matchType)
	assert.Equal(t, "an xom", match)
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a    string
		b    string
		want int
	}{
		{"", "", 0},
		{"a", "", 1},
		{"", "abc", 3},
		{"caphe", "ca phe", 1},
		{"kitten", "sitting", 3},
		{"đồ ăn", "đồ ăn", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "levenshtein(%q, %q)", tt.a, tt.b)
	}
}
