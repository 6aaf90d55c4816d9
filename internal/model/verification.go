package model

// Status is the verdict for a single submission.
type Status string

// Verification status constants.
const (
	StatusAuthentic  Status = "AUTHENTIC"
	StatusSuspicious Status = "SUSPICIOUS"
	StatusFake       Status = "FAKE"
	StatusError      Status = "ERROR"
)

// IsFlagged reports whether the status warrants a fraud log entry.
func (s Status) IsFlagged() bool {
	return s == StatusFake || s == StatusSuspicious
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAuthentic, StatusSuspicious, StatusFake, StatusError:
		return true
	default:
		return false
	}
}

// Score keys used in a confidence breakdown.
const (
	ScoreStudentName = "student_name"
	ScoreMotherName  = "mother_name"
	ScoreSGPA        = "sgpa"
	ScoreSubject     = "subject"
	ScoreDate        = "date"
)

// Thresholds records the decision boundaries applied to an outcome.
type Thresholds struct {
	Authentic  float64 `json:"authentic"`
	Suspicious float64 `json:"suspicious"`
}

// ConfidenceBreakdown explains how an aggregate confidence was reached.
type ConfidenceBreakdown struct {
	FieldScores     map[string]float64 `json:"field_scores"`
	FieldWeights    map[string]float64 `json:"field_weights"`
	Explanation     string             `json:"status_explanation"`
	Thresholds      Thresholds         `json:"threshold_used"`
	WeightedAverage float64            `json:"weighted_average"`
	TotalWeight     float64            `json:"total_weight"`
}

// VerificationOutcome is the result of verifying one set of extracted fields.
type VerificationOutcome struct {
	MatchedRecord       *Certificate         `json:"matched_certificate"`
	Breakdown           *ConfidenceBreakdown `json:"confidence_breakdown,omitempty"`
	Status              Status               `json:"status"`
	Anomalies           []string             `json:"anomalies"`
	Confidence          float64              `json:"confidence"`
	InstitutionVerified bool                 `json:"institution_verified"`
}
