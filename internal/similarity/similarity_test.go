package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy Func
		a        string
		b        string
		want     int
	}{
		{"ratio identical", Ratio, "aniket todkar", "aniket todkar", 100},
		{"ratio empty", Ratio, "", "aniket", 0},
		{"ratio classic pair", Ratio, "kitten", "sitting", 62},
		{"ratio abbreviated given name", Ratio, "j smith", "john smith", 82},
		{"partial substring", PartialRatio, "smith", "john smith", 100},
		{"partial symmetric", PartialRatio, "john smith", "smith", 100},
		{"partial empty", PartialRatio, "smith", "", 0},
		{"token sort swapped", TokenSortRatio, "todkar aniket", "aniket todkar", 100},
		{"token sort punctuation", TokenSortRatio, "Todkar, Aniket", "aniket todkar", 100},
		{"token set trailing noise", TokenSetRatio, "pramodappa todkar third semester", "pramodappa todkar", 100},
		{"token set disjoint", TokenSetRatio, "abc", "xyz", 0},
		{"reversed swap", ReversedRatio, "todkar aniket", "aniket todkar", 100},
		{"reversed needs two tokens", ReversedRatio, "aniket", "aniket todkar", 0},
		{"initials abbreviated", InitialsRatio, "j smith", "john smith", 100},
		{"initials not abbreviated", InitialsRatio, "aniket todkar", "amit tiwari", 0},
		{"lcs one substitution", LCSRatio, "abcd", "abce", 75},
		{"lcs empty", LCSRatio, "", "abce", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.strategy(tt.a, tt.b))
		})
	}
}

func TestStrategies_IdenticalInputScoresFull(t *testing.T) {
	for _, name := range NameStrategies {
		if name == "initials" || name == "reversed" {
			continue
		}
		fns, err := Strategies([]string{name})
		assert.NoError(t, err)
		assert.Equal(t, 100, fns[0]("aniket todkar", "aniket todkar"), name)
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"punctuation and spacing", "  R0BERT   O'Neil ", "robert o neil"},
		{"digit look-alike", "Mi5hra", "mishra"},
		{"letter merge", "SHARRNA", "sharma"},
		{"eight as b", "8ALU", "balu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.input))
		})
	}
}

func TestMatcher_Similarity(t *testing.T) {
	t.Run("name matcher beats plain ratio on initials", func(t *testing.T) {
		m := NameMatcher()
		multi := m.Similarity("J Smith", "John Smith")
		plain := Ratio(NormalizeName("J Smith"), NormalizeName("John Smith"))

		assert.GreaterOrEqual(t, multi, plain)
		assert.Equal(t, 100, multi)
		assert.Equal(t, 82, plain)
	})

	t.Run("self comparison", func(t *testing.T) {
		assert.Equal(t, 100, NameMatcher().Similarity("Aniket Todkar", "Aniket Todkar"))
	})

	t.Run("empty side", func(t *testing.T) {
		assert.Equal(t, 0, NameMatcher().Similarity("", "Aniket Todkar"))
		assert.Equal(t, 0, SubjectMatcher().Similarity("Information Technology", ""))
	})

	t.Run("subject is case insensitive", func(t *testing.T) {
		assert.Equal(t, 100, SubjectMatcher().Similarity("INFORMATION TECHNOLOGY", "Information Technology"))
	})

	t.Run("custom combinator", func(t *testing.T) {
		minimum := func(scores []int) int {
			lowest := 100
			for _, s := range scores {
				lowest = min(lowest, s)
			}
			return lowest
		}
		m := Matcher{
			Strategies: []Func{Ratio, PartialRatio},
			Combine:    minimum,
		}
		assert.Equal(t, Ratio("smith", "john smith"), m.Similarity("smith", "john smith"))
	})
}

func TestStrategies_Lookup(t *testing.T) {
	fns, err := Strategies([]string{"Ratio", " lcs "})
	assert.NoError(t, err)
	assert.Len(t, fns, 2)

	_, err = Strategies([]string{"soundex"})
	assert.ErrorContains(t, err, "unknown similarity strategy")
}

func TestMax(t *testing.T) {
	assert.Equal(t, 0, Max(nil))
	assert.Equal(t, 91, Max([]int{12, 91, 40}))
}
