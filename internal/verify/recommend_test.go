package verify

import (
	"testing"

	"github.com/Veraticus/certcheck/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name    string
		outcome model.VerificationOutcome
		want    []string
	}{
		{
			name:    "authentic high confidence",
			outcome: model.VerificationOutcome{Status: model.StatusAuthentic, Confidence: 0.98},
			want: []string{
				"Certificate appears to be authentic with high confidence.",
				"Consider manual verification for complete assurance.",
			},
		},
		{
			name: "authentic with discrepancies",
			outcome: model.VerificationOutcome{
				Status:     model.StatusAuthentic,
				Confidence: 0.83,
				Anomalies:  []string{"SGPA mismatch (extracted: 9.59, expected: 7.00)"},
			},
			want: []string{
				"Certificate appears authentic but some minor discrepancies detected.",
				"Consider manual verification for complete assurance.",
				"Cross-verify details with original records.",
			},
		},
		{
			name: "suspicious with repeated hint kinds",
			outcome: model.VerificationOutcome{
				Status:     model.StatusSuspicious,
				Confidence: 0.6,
				Anomalies: []string{
					"Student name mismatch (similarity: 40%)",
					"Mother name mismatch (similarity: 30%)",
					"Date format unclear: 31 Smarch 2025",
				},
			},
			want: []string{
				"Certificate requires manual review by authorized personnel.",
				"Contact the issuing institution for verification.",
				"Cross-verify details with original records.",
				"Certificate format appears non-standard for the region.",
			},
		},
		{
			name: "fake without record",
			outcome: model.VerificationOutcome{
				Status:     model.StatusFake,
				Confidence: 0.1,
				Anomalies:  []string{AnomalyNoMatch},
			},
			want: []string{
				"Certificate appears to be fraudulent.",
				"Do not accept this certificate for any official purpose.",
				"Report to appropriate authorities if this was submitted officially.",
			},
		},
		{
			name: "fake with missing fields",
			outcome: model.VerificationOutcome{
				Status:     model.StatusFake,
				Confidence: 0.3,
				Anomalies:  []string{AnomalyStudentMissing, AnomalySGPAMissing},
			},
			want: []string{
				"Certificate appears to be fraudulent.",
				"Do not accept this certificate for any official purpose.",
				"Report to appropriate authorities if this was submitted officially.",
				"Institution verification required.",
			},
		},
		{
			name: "suspicious under a lowered threshold",
			outcome: model.VerificationOutcome{
				Status:     model.StatusSuspicious,
				Confidence: 0.45,
			},
			want: []string{
				"Certificate requires manual review by authorized personnel.",
				"Multiple inconsistencies detected. Proceed with caution.",
				"Contact the issuing institution for verification.",
			},
		},
		{
			name:    "error",
			outcome: model.VerificationOutcome{Status: model.StatusError, Anomalies: []string{"Verification error: boom"}},
			want: []string{
				"Unable to verify certificate due to processing errors.",
				"Try uploading a clearer image or PDF.",
				"Ensure the document is properly scanned and readable.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recommendations(tt.outcome))
		})
	}
}
