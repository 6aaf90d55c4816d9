package similarity

import "strings"

// ocrConfusions are applied in order after lowercasing. Digit look-alikes come
// first so that the letter merges below see the repaired letters.
var ocrConfusions = []struct {
	from string
	to   string
}{
	{"0", "o"},
	{"1", "i"},
	{"5", "s"},
	{"8", "b"},
	{"rn", "m"},
	{"ii", "u"},
	{"cl", "d"},
}

// NormalizeName lowercases a name, turns punctuation into spaces, collapses
// whitespace and repairs common OCR character confusions.
func NormalizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, name)
	name = strings.Join(strings.Fields(name), " ")

	for _, c := range ocrConfusions {
		name = strings.ReplaceAll(name, c.from, c.to)
	}

	return strings.TrimSpace(name)
}
