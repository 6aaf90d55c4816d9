package similarity

import (
	"fmt"
	"sort"
	"strings"
)

// Combinator reduces per-strategy scores to a single score.
type Combinator func(scores []int) int

// Max returns the highest score, or 0 when there are none.
func Max(scores []int) int {
	best := 0
	for _, s := range scores {
		if s > best {
			best = s
		}
	}
	return best
}

// Matcher runs a set of strategies over normalized input and combines their
// scores. A nil Normalize leaves input untouched and a nil Combine uses Max.
type Matcher struct {
	Normalize  func(string) string
	Combine    Combinator
	Strategies []Func
}

// Similarity returns the combined score for a and b. Empty input on either
// side scores 0.
func (m Matcher) Similarity(a, b string) int {
	if m.Normalize != nil {
		a, b = m.Normalize(a), m.Normalize(b)
	}
	if a == "" || b == "" {
		return 0
	}

	scores := make([]int, 0, len(m.Strategies))
	for _, strategy := range m.Strategies {
		scores = append(scores, strategy(a, b))
	}

	combine := m.Combine
	if combine == nil {
		combine = Max
	}

	return combine(scores)
}

// registry maps strategy names to implementations for configuration.
var registry = map[string]Func{
	"ratio":      Ratio,
	"partial":    PartialRatio,
	"token_sort": TokenSortRatio,
	"token_set":  TokenSetRatio,
	"reversed":   ReversedRatio,
	"initials":   InitialsRatio,
	"lcs":        LCSRatio,
}

// NameStrategies lists the strategy names applied to personal names.
var NameStrategies = []string{"ratio", "partial", "token_sort", "token_set", "reversed", "initials", "lcs"}

// SubjectStrategies lists the strategy names applied to subject names.
var SubjectStrategies = []string{"ratio", "partial", "token_sort"}

// Strategies resolves strategy names into functions.
func Strategies(names []string) ([]Func, error) {
	out := make([]Func, 0, len(names))
	for _, name := range names {
		fn, ok := registry[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown similarity strategy %q (known: %s)", name, strings.Join(Known(), ", "))
		}
		out = append(out, fn)
	}
	return out, nil
}

// Known returns the registered strategy names in sorted order.
func Known() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NameMatcher compares personal names with every name strategy.
func NameMatcher() Matcher {
	strategies, _ := Strategies(NameStrategies)
	return Matcher{
		Normalize:  NormalizeName,
		Strategies: strategies,
	}
}

// SubjectMatcher compares program or subject names case-insensitively.
func SubjectMatcher() Matcher {
	strategies, _ := Strategies(SubjectStrategies)
	return Matcher{
		Normalize:  strings.ToLower,
		Strategies: strategies,
	}
}
