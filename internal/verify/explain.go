package verify

import (
	"fmt"
	"strings"

	"github.com/Veraticus/certcheck/internal/model"
)

var fieldLabels = []struct {
	key   string
	label string
}{
	{model.ScoreStudentName, "Student name"},
	{model.ScoreMotherName, "Mother name"},
	{model.ScoreSGPA, "SGPA"},
	{model.ScoreSubject, "Subject"},
	{model.ScoreDate, "Date format"},
}

// confidenceBands describe the aggregate, checked from the top down.
var confidenceBands = []struct {
	min  float64
	text string
}{
	{0.9, "Very high confidence (%s) - strong match across all fields"},
	{0.8, "High confidence (%s) - good match with minor variations"},
	{0.65, "Moderate confidence (%s) - some inconsistencies detected"},
	{0, "Low confidence (%s) - significant discrepancies found"},
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// explain summarizes the aggregate and lists strong and weak fields.
func explain(confidence float64, scores map[string]float64, t Thresholds) string {
	var parts []string
	for _, band := range confidenceBands {
		if confidence >= band.min {
			parts = append(parts, fmt.Sprintf(band.text, percent(confidence)))
			break
		}
	}

	var strong, weak []string
	for _, f := range fieldLabels {
		score, ok := scores[f.key]
		if !ok {
			continue
		}
		entry := fmt.Sprintf("%s (%s)", f.label, percent(score))
		switch {
		case score >= t.Strong:
			strong = append(strong, entry)
		case score < t.Weak:
			weak = append(weak, entry)
		}
	}

	if len(strong) > 0 {
		parts = append(parts, "Strong matches: "+strings.Join(strong, ", "))
	}
	if len(weak) > 0 {
		parts = append(parts, "Weak matches: "+strings.Join(weak, ", "))
	}

	return strings.Join(parts, "; ")
}
