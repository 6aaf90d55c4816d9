// Package verify scores extracted certificate fields against the reference
// record for the same seat number and decides whether the submission is
// authentic.
package verify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Veraticus/certcheck/internal/common"
	"github.com/Veraticus/certcheck/internal/model"
	"github.com/Veraticus/certcheck/internal/service"
	"github.com/Veraticus/certcheck/internal/similarity"
)

// Anomaly messages that carry no field values.
const (
	AnomalyNoMatch        = "No matching certificate found"
	AnomalyStudentMissing = "Student name not extracted"
	AnomalyMotherMissing  = "Mother name not extracted"
	AnomalySGPAMissing    = "SGPA not extracted from certificate"
	AnomalyDateMissing    = "Result date not extracted"
	AnomalyVeryLow        = "Very low confidence score - likely fraudulent"
)

// Verifier scores extracted fields against reference records. The only
// blocking call it makes is the record lookup.
type Verifier struct {
	lookup   service.RecordLookup
	names    similarity.Matcher
	subjects similarity.Matcher
	config   Config
}

// New creates a verifier with the default configuration.
func New(lookup service.RecordLookup) *Verifier {
	v, err := NewWithConfig(lookup, DefaultConfig())
	if err != nil {
		panic(err)
	}
	return v
}

// NewWithConfig creates a verifier with a custom configuration.
func NewWithConfig(lookup service.RecordLookup, config Config) (*Verifier, error) {
	if lookup == nil {
		return nil, fmt.Errorf("%w: record lookup is required", common.ErrMissingConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	nameStrategies, _ := similarity.Strategies(config.NameStrategies)
	subjectStrategies, _ := similarity.Strategies(config.SubjectStrategies)

	return &Verifier{
		lookup: lookup,
		config: config,
		names: similarity.Matcher{
			Normalize:  similarity.NormalizeName,
			Strategies: nameStrategies,
		},
		subjects: similarity.Matcher{
			Normalize:  similarity.SubjectMatcher().Normalize,
			Strategies: subjectStrategies,
		},
	}, nil
}

// Config returns the configuration in use.
func (v *Verifier) Config() Config {
	return v.config
}

// Verify decides the status of a submission. It never returns an error:
// lookup failures and internal faults become an ERROR outcome.
func (v *Verifier) Verify(ctx context.Context, fields model.ExtractedFields) (outcome model.VerificationOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = errorOutcome(fmt.Errorf("%v", r))
			common.LogError(fmt.Errorf("%v", r), "Verifier panicked", common.Fields{"seat_no": fields.SeatNo})
		}
	}()

	seatNo := model.NormalizeSeatNo(fields.SeatNo)
	if seatNo == "" {
		return v.noMatch()
	}

	record, err := v.lookup.FindActiveCertificate(ctx, seatNo)
	switch {
	case errors.Is(err, common.ErrNotFound), err == nil && record == nil:
		common.LogDebug("No reference record", common.Fields{"seat_no": seatNo})
		return v.noMatch()
	case err != nil:
		common.LogError(err, "Reference lookup failed", common.Fields{"seat_no": seatNo})
		return errorOutcome(err)
	}

	outcome, err = v.score(fields, record)
	if err != nil {
		common.LogError(err, "Scoring failed", common.Fields{"seat_no": seatNo})
		return errorOutcome(err)
	}

	common.LogDebug("Verified against reference record", common.Fields{
		"seat_no":    seatNo,
		"status":     outcome.Status,
		"confidence": outcome.Confidence,
	})

	return outcome
}

func (v *Verifier) noMatch() model.VerificationOutcome {
	return model.VerificationOutcome{
		Status:     model.StatusFake,
		Confidence: v.config.Fixed.NoMatch,
		Anomalies:  []string{AnomalyNoMatch},
	}
}

func errorOutcome(err error) model.VerificationOutcome {
	return model.VerificationOutcome{
		Status:     model.StatusError,
		Confidence: 0,
		Anomalies:  []string{fmt.Sprintf("Verification error: %s", err)},
	}
}

// score compares every field with the matched record.
func (v *Verifier) score(fields model.ExtractedFields, record *model.Certificate) (model.VerificationOutcome, error) {
	if math.IsNaN(record.SGPA) || record.SGPA < 0 || record.SGPA > 10 {
		return model.VerificationOutcome{}, fmt.Errorf("reference record %s has invalid sgpa %v", record.SeatNo, record.SGPA)
	}

	cfg := v.config
	scores := make(map[string]float64, 5)
	var anomalies []string

	// Student name is held to a stricter standard than mother name: a
	// missing value scores zero rather than neutral.
	if fields.StudentName != "" {
		sim := v.names.Similarity(fields.StudentName, record.StudentName)
		scores[model.ScoreStudentName] = cfg.NameScores.Score(float64(sim))
		if sim < cfg.Thresholds.NameSimilarity {
			anomalies = append(anomalies, fmt.Sprintf("Student name mismatch (similarity: %d%%)", sim))
		}
	} else {
		scores[model.ScoreStudentName] = cfg.Fixed.StudentMissing
		anomalies = append(anomalies, AnomalyStudentMissing)
	}

	switch {
	case fields.MotherName != "" && record.MotherName != "":
		sim := v.names.Similarity(fields.MotherName, record.MotherName)
		scores[model.ScoreMotherName] = cfg.NameScores.Score(float64(sim))
		if sim < cfg.Thresholds.NameSimilarity {
			anomalies = append(anomalies, fmt.Sprintf("Mother name mismatch (similarity: %d%%)", sim))
		}
	case fields.MotherName == "":
		scores[model.ScoreMotherName] = cfg.Fixed.Neutral
		anomalies = append(anomalies, AnomalyMotherMissing)
	default:
		scores[model.ScoreMotherName] = cfg.Fixed.Neutral
	}

	if fields.SGPA != nil {
		diff := math.Abs(*fields.SGPA - record.SGPA)
		scores[model.ScoreSGPA] = cfg.SGPAScores.Score(diff)
		if diff > cfg.Thresholds.SGPAMismatch {
			anomalies = append(anomalies, fmt.Sprintf("SGPA mismatch (extracted: %.2f, expected: %.2f)", *fields.SGPA, record.SGPA))
		}
	} else {
		scores[model.ScoreSGPA] = cfg.Fixed.Neutral
		anomalies = append(anomalies, AnomalySGPAMissing)
	}

	switch {
	case fields.ResultDate == "":
		scores[model.ScoreDate] = cfg.Fixed.DateMissing
		anomalies = append(anomalies, AnomalyDateMissing)
	case v.parseDate(fields.ResultDate):
		scores[model.ScoreDate] = cfg.Fixed.DateParsed
	default:
		scores[model.ScoreDate] = cfg.Fixed.DateUnclear
		anomalies = append(anomalies, fmt.Sprintf("Date format unclear: %s", fields.ResultDate))
	}

	// Subject is only inapplicable when neither side has one.
	switch {
	case fields.Subject != "" && record.Subject != "":
		sim := v.subjects.Similarity(fields.Subject, record.Subject)
		scores[model.ScoreSubject] = cfg.SubjectScores.Score(float64(sim))
		if sim < cfg.Thresholds.SubjectSimilarity {
			anomalies = append(anomalies, fmt.Sprintf("Subject mismatch (similarity: %d%%)", sim))
		}
	case fields.Subject != "" || record.Subject != "":
		scores[model.ScoreSubject] = cfg.Fixed.Neutral
	}

	confidence, applied, total := aggregate(scores, cfg.Weights)
	status := v.decide(confidence)

	switch {
	case status == model.StatusFake && confidence < cfg.Thresholds.VeryLow:
		anomalies = append(anomalies, AnomalyVeryLow)
	case status != model.StatusAuthentic && len(anomalies) == 0:
		anomalies = append(anomalies, fmt.Sprintf("Confidence %.1f%% below authentic threshold", confidence*100))
	}
	if anomalies == nil {
		anomalies = []string{}
	}

	matched := *record
	return model.VerificationOutcome{
		Status:              status,
		Confidence:          confidence,
		MatchedRecord:       &matched,
		Anomalies:           anomalies,
		InstitutionVerified: true,
		Breakdown: &model.ConfidenceBreakdown{
			FieldScores:     scores,
			FieldWeights:    applied,
			WeightedAverage: confidence,
			TotalWeight:     total,
			Thresholds: model.Thresholds{
				Authentic:  cfg.Thresholds.Authentic,
				Suspicious: cfg.Thresholds.Suspicious,
			},
			Explanation: explain(confidence, scores, cfg.Thresholds),
		},
	}, nil
}

// aggregate returns the weighted mean over the fields that were scored,
// together with the weights that took part and their sum.
func aggregate(scores map[string]float64, weights Weights) (float64, map[string]float64, float64) {
	applied := make(map[string]float64, len(scores))
	sum, total := 0.0, 0.0

	for _, w := range weights.byKey() {
		s, ok := scores[w.key]
		if !ok {
			continue
		}
		applied[w.key] = w.weight
		sum += s * w.weight
		total += w.weight
	}

	if total <= 0 {
		return 0, applied, 0
	}
	return sum / total, applied, total
}

func (v *Verifier) decide(confidence float64) model.Status {
	switch {
	case confidence >= v.config.Thresholds.Authentic:
		return model.StatusAuthentic
	case confidence >= v.config.Thresholds.Suspicious:
		return model.StatusSuspicious
	default:
		return model.StatusFake
	}
}

func (v *Verifier) parseDate(s string) bool {
	for _, layout := range v.config.DateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
