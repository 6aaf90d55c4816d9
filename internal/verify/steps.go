package verify

import "fmt"

// Step pairs a bound with the score awarded when the bound is satisfied.
type Step struct {
	Bound float64 `mapstructure:"bound"`
	Score float64 `mapstructure:"score"`
}

// FloorTable awards the score of the first step whose bound the value meets
// or exceeds. Steps must be ordered by strictly descending bound.
type FloorTable struct {
	Steps     []Step  `mapstructure:"steps"`
	Otherwise float64 `mapstructure:"otherwise"`
}

// Score maps v through the table.
func (t FloorTable) Score(v float64) float64 {
	for _, s := range t.Steps {
		if v >= s.Bound {
			return s.Score
		}
	}
	return t.Otherwise
}

// Validate checks ordering and score range.
func (t FloorTable) Validate() error {
	for i, s := range t.Steps {
		if i > 0 && s.Bound >= t.Steps[i-1].Bound {
			return fmt.Errorf("step %d: bound %.4g must be below %.4g", i, s.Bound, t.Steps[i-1].Bound)
		}
		if err := validateScore(s.Score); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return validateScore(t.Otherwise)
}

// CeilTable awards the score of the first step whose bound the value does
// not exceed. Steps must be ordered by strictly ascending bound.
type CeilTable struct {
	Steps     []Step  `mapstructure:"steps"`
	Otherwise float64 `mapstructure:"otherwise"`
}

// Score maps v through the table.
func (t CeilTable) Score(v float64) float64 {
	for _, s := range t.Steps {
		if v <= s.Bound {
			return s.Score
		}
	}
	return t.Otherwise
}

// Validate checks ordering and score range.
func (t CeilTable) Validate() error {
	for i, s := range t.Steps {
		if i > 0 && s.Bound <= t.Steps[i-1].Bound {
			return fmt.Errorf("step %d: bound %.4g must be above %.4g", i, s.Bound, t.Steps[i-1].Bound)
		}
		if err := validateScore(s.Score); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return validateScore(t.Otherwise)
}

func validateScore(s float64) error {
	if s < 0 || s > 1 {
		return fmt.Errorf("score %.4g outside [0,1]", s)
	}
	return nil
}

// DefaultNameScores maps name similarity (0-100) to a field score.
func DefaultNameScores() FloorTable {
	return FloorTable{
		Steps: []Step{
			{95, 1.00},
			{90, 0.95},
			{85, 0.90},
			{80, 0.85},
			{75, 0.80},
			{70, 0.75},
			{65, 0.70},
			{60, 0.65},
			{55, 0.60},
			{50, 0.55},
			{45, 0.50},
			{40, 0.45},
			{35, 0.40},
		},
		Otherwise: 0.30,
	}
}

// DefaultSGPAScores maps the absolute SGPA difference to a field score.
func DefaultSGPAScores() CeilTable {
	return CeilTable{
		Steps: []Step{
			{0.05, 1.00},
			{0.1, 0.95},
			{0.2, 0.90},
			{0.3, 0.85},
			{0.5, 0.75},
			{0.7, 0.60},
			{1.0, 0.40},
		},
		Otherwise: 0.20,
	}
}

// DefaultSubjectScores maps subject similarity (0-100) to a field score.
func DefaultSubjectScores() FloorTable {
	return FloorTable{
		Steps: []Step{
			{90, 0.95},
			{80, 0.90},
			{70, 0.80},
			{60, 0.70},
			{50, 0.60},
		},
		Otherwise: 0.40,
	}
}
