package verify

import (
	"strings"

	"github.com/Veraticus/certcheck/internal/model"
)

// Recommendations returns operator guidance for an outcome: advice for its
// status followed by one hint per kind of anomaly present.
func Recommendations(outcome model.VerificationOutcome) []string {
	var recs []string

	switch outcome.Status {
	case model.StatusAuthentic:
		if outcome.Confidence >= 0.9 {
			recs = append(recs, "Certificate appears to be authentic with high confidence.")
		} else {
			recs = append(recs, "Certificate appears authentic but some minor discrepancies detected.")
		}
		recs = append(recs, "Consider manual verification for complete assurance.")
	case model.StatusSuspicious:
		recs = append(recs, "Certificate requires manual review by authorized personnel.")
		// Only reachable when the suspicious threshold is configured below 0.5.
		if outcome.Confidence < 0.5 {
			recs = append(recs, "Multiple inconsistencies detected. Proceed with caution.")
		}
		recs = append(recs, "Contact the issuing institution for verification.")
	case model.StatusFake:
		recs = append(recs,
			"Certificate appears to be fraudulent.",
			"Do not accept this certificate for any official purpose.",
			"Report to appropriate authorities if this was submitted officially.")
	case model.StatusError:
		recs = append(recs,
			"Unable to verify certificate due to processing errors.",
			"Try uploading a clearer image or PDF.",
			"Ensure the document is properly scanned and readable.")
	}

	seen := make(map[string]bool)
	for _, a := range outcome.Anomalies {
		var hint string
		lower := strings.ToLower(a)
		switch {
		case strings.Contains(lower, "format"):
			hint = "Certificate format appears non-standard for the region."
		case strings.Contains(lower, "mismatch"):
			hint = "Cross-verify details with original records."
		case strings.Contains(lower, "not found"), strings.Contains(lower, "not extracted"):
			hint = "Institution verification required."
		}
		if hint != "" && !seen[hint] {
			seen[hint] = true
			recs = append(recs, hint)
		}
	}

	return recs
}
