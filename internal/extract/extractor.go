// Package extract turns raw OCR text into structured certificate fields using
// ordered, per-field pattern rules.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/certcheck/internal/common"
	"github.com/Veraticus/certcheck/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// compiledRule holds a compiled pattern with its rule metadata.
type compiledRule struct {
	re *regexp.Regexp
	Rule
}

// find returns the trimmed value of the first match of the rule in s.
func (r compiledRule) find(s string) string {
	m := r.re.FindStringSubmatch(s)
	switch {
	case m == nil:
		return ""
	case len(m) > 1:
		return strings.TrimSpace(m[1])
	default:
		return strings.TrimSpace(m[0])
	}
}

// Extractor applies rule tables to OCR text. It holds no mutable state and
// is safe for concurrent use.
type Extractor struct {
	rules map[model.Field][]compiledRule
}

// New compiles the given rules. Rules keep their relative order per field.
func New(rules []Rule) (*Extractor, error) {
	known := make(map[model.Field]bool, len(model.AllFields))
	for _, f := range model.AllFields {
		known[f] = true
	}

	compiled := make(map[model.Field][]compiledRule, len(model.AllFields))
	for _, r := range rules {
		if !known[r.Field] {
			return nil, fmt.Errorf("%w: rule %s targets unknown field %q", common.ErrInvalidConfig, r.Name, r.Field)
		}

		pattern := r.Pattern
		if !strings.HasPrefix(pattern, "(?i)") {
			pattern = "(?i)" + pattern
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %s: %w", r.Name, err)
		}

		compiled[r.Field] = append(compiled[r.Field], compiledRule{Rule: r, re: re})
	}

	return &Extractor{rules: compiled}, nil
}

// Default returns an extractor over DefaultRules.
func Default() *Extractor {
	e, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return e
}

// Extract recovers every field it can from text. It never fails: a field
// that cannot be matched or does not survive cleanup is left absent.
func (e *Extractor) Extract(text string) model.ExtractedFields {
	collapsed := strings.Join(strings.Fields(text), " ")
	lines := strings.Split(text, "\n")

	var out model.ExtractedFields
	for _, field := range model.AllFields {
		raw, rule := e.match(field, collapsed, lines)
		if raw == "" {
			common.LogDebug("Field not found", common.Fields{"field": field})
			continue
		}

		if !assign(&out, field, raw) {
			common.LogDebug("Field discarded after cleanup", common.Fields{"field": field, "rule": rule, "raw": raw})
			continue
		}

		common.LogDebug("Field extracted", common.Fields{"field": field, "rule": rule})
	}

	return out
}

// match tries each rule against the collapsed text and then line by line.
// The first value longer than one character wins.
func (e *Extractor) match(field model.Field, collapsed string, lines []string) (string, string) {
	for _, r := range e.rules[field] {
		if v := r.find(collapsed); utf8.RuneCountInString(v) > 1 {
			return v, r.Name
		}
		for _, line := range lines {
			if v := r.find(strings.TrimSpace(line)); utf8.RuneCountInString(v) > 1 {
				return v, r.Name
			}
		}
	}
	return "", ""
}

// assign cleans raw into the target field and reports whether it survived.
func assign(out *model.ExtractedFields, field model.Field, raw string) bool {
	switch field {
	case model.FieldSeatNo:
		out.SeatNo = CleanSeatNo(raw)
		return out.SeatNo != ""
	case model.FieldStudentName:
		out.StudentName = CleanName(raw)
		return out.StudentName != ""
	case model.FieldMotherName:
		out.MotherName = CleanName(raw)
		return out.MotherName != ""
	case model.FieldSGPA:
		out.SGPA = ParseSGPA(raw)
		return out.SGPA != nil
	case model.FieldResultDate:
		out.ResultDate = strings.Join(strings.Fields(raw), " ")
		return out.ResultDate != ""
	case model.FieldSubject:
		out.Subject = CleanSubject(raw)
		return out.Subject != ""
	}
	return false
}

// CleanName keeps ASCII letters and whitespace and title-cases each token.
func CleanName(raw string) string {
	return titleWords(keep(raw, func(r rune) bool { return isLetter(r) }))
}

// CleanSubject keeps ASCII letters, whitespace and ampersands and
// title-cases each token.
func CleanSubject(raw string) string {
	return titleWords(keep(raw, func(r rune) bool { return isLetter(r) || r == '&' }))
}

// CleanSeatNo keeps letters and digits, repairs the $ for S misread and
// uppercases the result.
func CleanSeatNo(raw string) string {
	seat := keep(raw, func(r rune) bool { return isLetter(r) || isDigit(r) || r == '$' })
	seat = strings.ReplaceAll(seat, "$", "S")
	return strings.ToUpper(strings.Join(strings.Fields(seat), ""))
}

// ParseSGPA returns the grade point average in raw, or nil when it does
// not parse or falls outside [0,10].
func ParseSGPA(raw string) *float64 {
	s := keep(raw, func(r rune) bool { return isDigit(r) || r == '.' })
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 10 {
		return nil
	}
	return &v
}

// keep replaces every rune not accepted by ok with a space, preserving
// existing whitespace as token separators.
func keep(s string, ok func(rune) bool) string {
	return strings.Map(func(r rune) rune {
		if ok(r) {
			return r
		}
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return ' '
		}
		return -1
	}, s)
}

func titleWords(s string) string {
	caser := cases.Title(language.Und)
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
