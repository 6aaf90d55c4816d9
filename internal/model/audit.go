package model

import "time"

// VerificationLog is the audit record written for every processed submission.
type VerificationLog struct {
	CreatedAt            time.Time
	MatchedCertificateID *int64
	Filename             string
	ExtractedText        string
	Source               string
	Result               Status
	Anomalies            []string
	Extracted            ExtractedFields
	ID                   int64
	Confidence           float64
}

// FraudLog records a submission that was flagged as FAKE or SUSPICIOUS.
type FraudLog struct {
	DetectedAt        time.Time
	ReviewedAt        *time.Time
	VerificationLogID *int64
	Filename          string
	RawText           string
	Source            string
	AdminNotes        string
	Status            Status
	Reasons           []string
	Extracted         ExtractedFields
	ID                int64
	Confidence        float64
	Reviewed          bool
}

// FraudLogFilter narrows fraud log listings.
type FraudLogFilter struct {
	Status         Status
	Limit          int
	UnreviewedOnly bool
}

// StatusStats aggregates verification results for one status.
type StatusStats struct {
	Status            Status
	Count             int
	AverageConfidence float64
}

// VerificationStats summarizes verification activity over a period.
type VerificationStats struct {
	Since      time.Time
	ByStatus   []StatusStats
	Total      int
	FraudTotal int
}
