package extract

import (
	"fmt"

	"github.com/Veraticus/certcheck/internal/model"
)

// Quality reports how many fields were recovered. It is a coverage signal
// only and is independent of verification confidence.
func Quality(fields model.ExtractedFields) model.ExtractionQuality {
	q := model.ExtractionQuality{
		FieldConfidence: make(map[model.Field]bool, len(model.AllFields)),
		Issues:          []string{},
	}

	for _, f := range model.AllFields {
		found := fields.Has(f)
		q.FieldConfidence[f] = found
		if !found {
			q.Issues = append(q.Issues, fmt.Sprintf("%s not found", f))
		}
	}

	q.OverallConfidence = float64(fields.Populated()) / float64(len(model.AllFields))
	return q
}
