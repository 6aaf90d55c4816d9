package verify

import (
	"errors"
	"fmt"

	"github.com/Veraticus/certcheck/internal/common"
	"github.com/Veraticus/certcheck/internal/model"
	"github.com/Veraticus/certcheck/internal/similarity"
)

// Weights sets the relative importance of each scored field.
type Weights struct {
	StudentName float64 `mapstructure:"student_name"`
	MotherName  float64 `mapstructure:"mother_name"`
	SGPA        float64 `mapstructure:"sgpa"`
	Subject     float64 `mapstructure:"subject"`
	Date        float64 `mapstructure:"date"`
}

// byKey returns the weights keyed like a confidence breakdown, in scoring order.
func (w Weights) byKey() []weighted {
	return []weighted{
		{model.ScoreStudentName, w.StudentName},
		{model.ScoreMotherName, w.MotherName},
		{model.ScoreSGPA, w.SGPA},
		{model.ScoreSubject, w.Subject},
		{model.ScoreDate, w.Date},
	}
}

type weighted struct {
	key    string
	weight float64
}

// Thresholds holds the decision boundaries used by the verifier.
type Thresholds struct {
	// NameSimilarity and SubjectSimilarity are on the 0-100 similarity scale.
	NameSimilarity    int `mapstructure:"name_similarity"`
	SubjectSimilarity int `mapstructure:"subject_similarity"`
	// SGPAMismatch is the absolute difference above which SGPA is reported.
	SGPAMismatch float64 `mapstructure:"sgpa_mismatch"`
	Authentic    float64 `mapstructure:"authentic"`
	Suspicious   float64 `mapstructure:"suspicious"`
	VeryLow      float64 `mapstructure:"very_low"`
	// Strong and Weak classify field scores in the explanation.
	Strong float64 `mapstructure:"strong"`
	Weak   float64 `mapstructure:"weak"`
}

// FixedScores are the scores awarded without a similarity comparison.
type FixedScores struct {
	StudentMissing float64 `mapstructure:"student_missing"`
	Neutral        float64 `mapstructure:"neutral"`
	DateParsed     float64 `mapstructure:"date_parsed"`
	DateUnclear    float64 `mapstructure:"date_unclear"`
	DateMissing    float64 `mapstructure:"date_missing"`
	NoMatch        float64 `mapstructure:"no_match"`
}

// Config holds every tunable of the verifier.
type Config struct {
	NameStrategies    []string    `mapstructure:"name_strategies"`
	SubjectStrategies []string    `mapstructure:"subject_strategies"`
	DateLayouts       []string    `mapstructure:"date_layouts"`
	NameScores        FloorTable  `mapstructure:"name_scores"`
	SubjectScores     FloorTable  `mapstructure:"subject_scores"`
	SGPAScores        CeilTable   `mapstructure:"sgpa_scores"`
	Fixed             FixedScores `mapstructure:"fixed"`
	Weights           Weights     `mapstructure:"weights"`
	Thresholds        Thresholds  `mapstructure:"thresholds"`
}

// DefaultConfig returns the calibrated default configuration.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			StudentName: 0.35,
			MotherName:  0.25,
			SGPA:        0.20,
			Subject:     0.15,
			Date:        0.05,
		},
		Thresholds: Thresholds{
			NameSimilarity:    80,
			SubjectSimilarity: 80,
			SGPAMismatch:      0.5,
			Authentic:         0.8,
			Suspicious:        0.5,
			VeryLow:           0.4,
			Strong:            0.85,
			Weak:              0.6,
		},
		Fixed: FixedScores{
			StudentMissing: 0.0,
			Neutral:        0.5,
			DateParsed:     0.9,
			DateUnclear:    0.6,
			DateMissing:    0.4,
			NoMatch:        0.1,
		},
		NameScores:    DefaultNameScores(),
		SGPAScores:    DefaultSGPAScores(),
		SubjectScores: DefaultSubjectScores(),
		// Go reference layouts for day-month-year, ISO and US orderings.
		DateLayouts: []string{
			"2 January 2006",
			"2-1-2006",
			"2/1/2006",
			"January 2, 2006",
			"2006-1-2",
			"1/2/2006",
		},
		NameStrategies:    append([]string{}, similarity.NameStrategies...),
		SubjectStrategies: append([]string{}, similarity.SubjectStrategies...),
	}
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var errs []error

	total := 0.0
	for _, w := range c.Weights.byKey() {
		if w.weight < 0 {
			errs = append(errs, fmt.Errorf("weight %s is negative", w.key))
		}
		total += w.weight
	}
	if total <= 0 {
		errs = append(errs, errors.New("weights must sum to a positive value"))
	}

	t := c.Thresholds
	if t.Suspicious >= t.Authentic {
		errs = append(errs, fmt.Errorf("suspicious threshold %.2f must be below authentic threshold %.2f", t.Suspicious, t.Authentic))
	}
	for name, v := range map[string]float64{"authentic": t.Authentic, "suspicious": t.Suspicious, "very_low": t.VeryLow} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s threshold %.2f outside [0,1]", name, v))
		}
	}
	if t.NameSimilarity < 0 || t.NameSimilarity > 100 || t.SubjectSimilarity < 0 || t.SubjectSimilarity > 100 {
		errs = append(errs, errors.New("similarity thresholds must be within [0,100]"))
	}

	if err := c.NameScores.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("name scores: %w", err))
	}
	if err := c.SubjectScores.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("subject scores: %w", err))
	}
	if err := c.SGPAScores.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sgpa scores: %w", err))
	}
	if len(c.DateLayouts) == 0 {
		errs = append(errs, errors.New("at least one date layout is required"))
	}
	if _, err := similarity.Strategies(c.NameStrategies); err != nil || len(c.NameStrategies) == 0 {
		errs = append(errs, fmt.Errorf("name strategies: %v", orEmpty(err)))
	}
	if _, err := similarity.Strategies(c.SubjectStrategies); err != nil || len(c.SubjectStrategies) == 0 {
		errs = append(errs, fmt.Errorf("subject strategies: %v", orEmpty(err)))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func orEmpty(err error) string {
	if err != nil {
		return err.Error()
	}
	return "none configured"
}
