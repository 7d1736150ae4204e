// Package normalize prepares Vietnamese free-text transaction descriptions
// for matching: it strips diacritics, expands teencode abbreviations, and
// exposes a Levenshtein-based similarity metric.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MatchType describes how BestMatch found its candidate.
type MatchType string

// Match types returned by BestMatch.
const (
	MatchExact MatchType = "exact"
	MatchFuzzy MatchType = "fuzzy"
	MatchNone  MatchType = "none"
)

// vietnameseASCII maps every accented Vietnamese letter to its base form.
// The table is fixed; anything it misses is swept up by the Unicode
// combining-mark removal pass.
var vietnameseASCII = map[rune]rune{
	'à': 'a', 'á': 'a', 'ả': 'a', 'ã': 'a', 'ạ': 'a',
	'ă': 'a', 'ằ': 'a', 'ắ': 'a', 'ẳ': 'a', 'ẵ': 'a', 'ặ': 'a',
	'â': 'a', 'ầ': 'a', 'ấ': 'a', 'ẩ': 'a', 'ẫ': 'a', 'ậ': 'a',
	'è': 'e', 'é': 'e', 'ẻ': 'e', 'ẽ': 'e', 'ẹ': 'e',
	'ê': 'e', 'ề': 'e', 'ế': 'e', 'ể': 'e', 'ễ': 'e', 'ệ': 'e',
	'ì': 'i', 'í': 'i', 'ỉ': 'i', 'ĩ': 'i', 'ị': 'i',
	'ò': 'o', 'ó': 'o', 'ỏ': 'o', 'õ': 'o', 'ọ': 'o',
	'ô': 'o', 'ồ': 'o', 'ố': 'o', 'ổ': 'o', 'ỗ': 'o', 'ộ': 'o',
	'ơ': 'o', 'ờ': 'o', 'ớ': 'o', 'ở': 'o', 'ỡ': 'o', 'ợ': 'o',
	'ù': 'u', 'ú': 'u', 'ủ': 'u', 'ũ': 'u', 'ụ': 'u',
	'ư': 'u', 'ừ': 'u', 'ứ': 'u', 'ử': 'u', 'ữ': 'u', 'ự': 'u',
	'ỳ': 'y', 'ý': 'y', 'ỷ': 'y', 'ỹ': 'y', 'ỵ': 'y',
	'đ': 'd',
}

// teencode maps common Vietnamese chat abbreviations to canonical words.
// Keys are matched as whole tokens only, never inside another word, and
// every expansion is itself in canonical form so Normalize stays idempotent.
var teencode = map[string]string{
	"ko":     "khong",
	"k":      "khong",
	"hok":    "khong",
	"hong":   "khong",
	"dc":     "duoc",
	"dk":     "duoc",
	"cf":     "ca phe",
	"ks":     "khach san",
	"bh":     "bao hiem",
	"tk":     "tai khoan",
	"ck":     "chuyen khoan",
	"dt":     "dien thoai",
	"sn":     "sinh nhat",
	"vs":     "voi",
	"trc":    "truoc",
	"ae":     "anh em",
	"ny":     "nguoi yeu",
	"sv":     "sinh vien",
	"bv":     "benh vien",
	"st":     "sieu thi",
	"ts":     "tra sua",
	"trasua": "tra sua",
}

// Normalizer converts raw descriptions into a canonical matching form. The
// zero value is not usable; construct with New.
type Normalizer struct {
	marks transform.Transformer
}

// New creates a Normalizer.
func New() *Normalizer {
	return &Normalizer{
		marks: transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
	}
}

// Normalize lowercases, strips Vietnamese diacritics, expands teencode
// tokens, and collapses whitespace. It is idempotent:
// Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))

	stripped := strings.Map(func(r rune) rune {
		if base, ok := vietnameseASCII[r]; ok {
			return base
		}
		return r
	}, lower)

	// Sweep any combining marks the fixed table does not cover, e.g.
	// decomposed input from mobile keyboards.
	if swept, _, err := transform.String(n.marks, stripped); err == nil {
		stripped = swept
	}

	tokens := strings.Fields(stripped)
	for i, tok := range tokens {
		if expanded, ok := teencode[tok]; ok {
			tokens[i] = expanded
		}
	}

	return strings.Join(tokens, " ")
}

// Similarity returns 1 - levenshtein(a,b)/max(len(a),len(b)) in [0,1].
// Two empty strings are identical (1.0); one empty string matches nothing
// (0.0).
func (n *Normalizer) Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	la := len([]rune(a))
	lb := len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}

	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// BestMatch finds the candidate that best matches the input. A candidate
// present as a whole word (or word sequence) in the normalized input wins
// immediately with score 1.0 and type exact. Otherwise the candidate with
// the highest Similarity wins if it clears threshold; the first candidate
// encountered keeps ties.
func (n *Normalizer) BestMatch(input string, candidates []string, threshold float64) (string, float64, MatchType) {
	normalized := n.Normalize(input)
	if normalized == "" {
		return "", 0, MatchNone
	}

	padded := " " + normalized + " "
	for _, cand := range candidates {
		nc := n.Normalize(cand)
		if nc == "" {
			continue
		}
		if strings.Contains(padded, " "+nc+" ") {
			return cand, 1.0, MatchExact
		}
	}

	var (
		best      string
		bestScore float64
	)
	units := matchUnits(normalized)
	for _, cand := range candidates {
		nc := n.Normalize(cand)
		if nc == "" {
			continue
		}
		score := 0.0
		for _, unit := range units {
			if s := n.Similarity(nc, unit); s > score {
				score = s
			}
		}
		if score > bestScore {
			best = cand
			bestScore = score
		}
	}

	if bestScore >= threshold && best != "" {
		return best, bestScore, MatchFuzzy
	}

	return "", 0, MatchNone
}

// matchUnits returns the comparison units for fuzzy matching: individual
// tokens, adjacent token pairs (so "caphe" can match the keyword "ca phe"
// and vice versa), and the whole string.
func matchUnits(normalized string) []string {
	tokens := strings.Fields(normalized)
	units := make([]string, 0, len(tokens)*2)
	units = append(units, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		units = append(units, tokens[i]+" "+tokens[i+1])
	}
	if len(tokens) > 1 {
		units = append(units, normalized)
	}
	return units
}
