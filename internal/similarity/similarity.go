// Package similarity provides fuzzy string comparison strategies tuned for
// OCR output. Every strategy returns a score in [0,100] and can be combined
// with others through a Matcher.
package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adrg/strutil/metrics"
)

// Func compares two strings and returns a similarity score in [0,100].
type Func func(a, b string) int

// indel is a Levenshtein metric where a substitution costs one deletion plus
// one insertion, which makes Distance the insert/delete edit distance.
var indel = &metrics.Levenshtein{
	CaseSensitive: true,
	InsertCost:    1,
	DeleteCost:    1,
	ReplaceCost:   2,
}

// Ratio scores a and b by their insert/delete edit distance relative to
// their combined length.
func Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	dist := indel.Distance(a, b)

	return int(math.Round(100 * float64(total-dist) / float64(total)))
}

// PartialRatio scores the shorter string against its best aligned window in
// the longer one.
func PartialRatio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}

	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == len(long) {
		return Ratio(a, b)
	}

	needle := string(short)
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		score := Ratio(needle, string(long[i:i+len(short)]))
		if score == 100 {
			return 100
		}
		if score > best {
			best = score
		}
	}

	return best
}

// TokenSortRatio compares a and b after sorting their tokens.
func TokenSortRatio(a, b string) int {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	sort.Strings(ta)
	sort.Strings(tb)

	return Ratio(strings.Join(ta, " "), strings.Join(tb, " "))
}

// TokenSetRatio compares the shared tokens of a and b against each side's
// shared-plus-remaining tokens and keeps the best pairing.
func TokenSetRatio(a, b string) int {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if _, ok := ta[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(common, " ")
	withA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	return max(Ratio(sect, withA), Ratio(sect, withB), Ratio(withA, withB))
}

// ReversedRatio compares a with its token order reversed against b, which
// catches given and family names written in swapped order. Both sides need at
// least two tokens.
func ReversedRatio(a, b string) int {
	pa, pb := strings.Fields(a), strings.Fields(b)
	if len(pa) < 2 || len(pb) < 2 {
		return 0
	}

	for i, j := 0, len(pa)-1; i < j; i, j = i+1, j-1 {
		pa[i], pa[j] = pa[j], pa[i]
	}
	reversed := strings.Join(pa, " ")

	return max(Ratio(reversed, b), TokenSortRatio(reversed, b))
}

// InitialsRatio compares the first letters of each token. It is stricter
// than a plain initials comparison: it only applies when at least one side
// is abbreviated, i.e. has a single-letter token, so "Aniket Todkar" and
// "Amit Tiwari" score 0 rather than 100.
func InitialsRatio(a, b string) int {
	pa, pb := strings.Fields(a), strings.Fields(b)
	if len(pa) == 0 || len(pb) == 0 {
		return 0
	}
	if !hasInitial(pa) && !hasInitial(pb) {
		return 0
	}

	return Ratio(initials(pa), initials(pb))
}

// LCSRatio scores a and b by the length of their longest common
// subsequence. It tolerates heavy character-level damage.
func LCSRatio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	m, n := len(ra), len(rb)
	if m == 0 || n == 0 {
		return 0
	}

	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return int(2.0 * float64(prev[n]) / float64(m+n) * 100)
}

// tokens lowercases s, turns everything but letters and digits into
// separators, and splits on whitespace.
func tokens(s string) []string {
	return strings.Fields(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokens(s) {
		set[tok] = struct{}{}
	}
	return set
}

func hasInitial(parts []string) bool {
	for _, p := range parts {
		if utf8.RuneCountInString(p) == 1 {
			return true
		}
	}
	return false
}

func initials(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		r, _ := utf8.DecodeRuneInString(p)
		b.WriteRune(r)
	}
	return b.String()
}
