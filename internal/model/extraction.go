package model

// Field names a single extractable certificate field.
type Field string

// Extractable fields, in reporting order.
const (
	FieldSeatNo      Field = "seat_no"
	FieldStudentName Field = "student_name"
	FieldMotherName  Field = "mother_name"
	FieldSGPA        Field = "sgpa"
	FieldResultDate  Field = "result_date"
	FieldSubject     Field = "subject"
)

// AllFields lists every extractable field in reporting order.
var AllFields = []Field{
	FieldSeatNo,
	FieldStudentName,
	FieldMotherName,
	FieldSGPA,
	FieldResultDate,
	FieldSubject,
}

// ExtractedFields is the structured record recovered from OCR text.
// An empty string or nil SGPA means the field is absent.
type ExtractedFields struct {
	SGPA        *float64 `json:"sgpa"`
	SeatNo      string   `json:"seat_no,omitempty"`
	StudentName string   `json:"student_name,omitempty"`
	MotherName  string   `json:"mother_name,omitempty"`
	ResultDate  string   `json:"result_date,omitempty"`
	Subject     string   `json:"subject,omitempty"`
}

// Has reports whether the given field was recovered.
func (e ExtractedFields) Has(f Field) bool {
	switch f {
	case FieldSeatNo:
		return e.SeatNo != ""
	case FieldStudentName:
		return e.StudentName != ""
	case FieldMotherName:
		return e.MotherName != ""
	case FieldSGPA:
		return e.SGPA != nil
	case FieldResultDate:
		return e.ResultDate != ""
	case FieldSubject:
		return e.Subject != ""
	default:
		return false
	}
}

// Populated returns the number of recovered fields.
func (e ExtractedFields) Populated() int {
	n := 0
	for _, f := range AllFields {
		if e.Has(f) {
			n++
		}
	}
	return n
}

// ExtractionQuality summarizes how much of a document was recovered.
// It measures extraction coverage only and says nothing about authenticity.
type ExtractionQuality struct {
	FieldConfidence   map[Field]bool `json:"field_confidence"`
	Issues            []string       `json:"issues"`
	OverallConfidence float64        `json:"overall_confidence"`
}
