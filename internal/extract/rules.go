package extract

import "github.com/Veraticus/certcheck/internal/model"

// Rule is a single extraction pattern for one field. Patterns are matched
// case-insensitively; the first capture group is the value, or the whole
// match when the pattern has no group.
type Rule struct {
	Field   model.Field `mapstructure:"field" yaml:"field"`
	Name    string      `mapstructure:"name" yaml:"name"`
	Pattern string      `mapstructure:"pattern" yaml:"pattern"`
}

// Free-text captures stop at the next recognizable label so that values on a
// single collapsed line do not run into each other.
const (
	labels      = `Seat|Semester|First|Second|Third|Fourth|Fifth|Sixth|Seventh|Eighth|SGPA|CGPA|Result|Date|SUB|Subject|Course|Programme|Branch`
	studentStop = `(?:\b(?:Mother|Father|` + labels + `)\b|$)`
	motherStop  = `(?:\b(?:College|Father|` + labels + `)\b|$)`
	lineStop    = `(?:\n|$)`
	months      = `January|February|March|April|May|June|July|August|September|October|November|December`

	// Names may carry dotted initials ("J. SMITH"); cleanup drops the dots.
	nameChars = `([A-Za-z\s.]+?)`

	// A bare "Name" label only counts at the start of a line, after
	// punctuation or after a value ending in a digit, so that "Mother Name"
	// and "Father Name" never feed the student name.
	bareName = `(?:^|[.:;,|]\s*|[0-9]\s+)Name`

	// Seat-like values must contain a digit, so a label on the next line
	// is not taken as the number.
	seatValue = `([A-Z$]*[0-9][A-Z0-9$]*)`
)

// DefaultRules returns the built-in rule table, ordered per field from the
// most specific labelled pattern to the loosest positional heuristic.
func DefaultRules() []Rule {
	return []Rule{
		// A leading $ is a frequent misread of S in seat numbers.
		{model.FieldSeatNo, "seat_no_label", `Seat\s*No[\s.:]*` + seatValue},
		{model.FieldSeatNo, "seat_number_label", `Seat\s*Number[\s.:]*` + seatValue},
		{model.FieldSeatNo, "seat_prefixed_ten_digits", `[S$][0-9]{10}`},
		{model.FieldSeatNo, "seat_standalone", `(?:^|\s)([SB$][0-9]{7,12})(?:\s|$)`},
		{model.FieldSeatNo, "registration_label", `Registration\s*(?:No|Number)[\s.:]*` + seatValue},
		{model.FieldSeatNo, "roll_label", `Roll\s*(?:No|Number)[\s.:]*` + seatValue},

		{model.FieldStudentName, "student_name_label", `Student\s*Name[\s.:]*` + nameChars + studentStop},
		{model.FieldStudentName, "name_of_student_label", `Name\s*of\s*Student[\s.:]*` + nameChars + studentStop},
		{model.FieldStudentName, "candidate_name_label", `Candidate\s*Name[\s.:]*` + nameChars + studentStop},
		{model.FieldStudentName, "name_label", bareName + `[\s.:]*` + nameChars + studentStop},
		{model.FieldStudentName, "student_label", `STUDENT[\s.:]*` + nameChars + studentStop},

		{model.FieldMotherName, "mother_name_label", `Mother\s*Name[\s.:]*` + nameChars + motherStop},
		{model.FieldMotherName, "mothers_name_label", `Mother's\s*Name[\s.:]*` + nameChars + motherStop},
		{model.FieldMotherName, "mother_label", `Mother[\s.:]*` + nameChars + motherStop},
		{model.FieldMotherName, "mother_name_greedy", `Mother(?:'s)? Name:\s*([A-Za-z\s]+)`},
		{model.FieldMotherName, "mrs_prefix", `Mrs\.\s*([A-Za-z\s]+?)(?:\n|Mrs\.|$)`},

		{model.FieldSGPA, "semester_sgpa_label", `Third\s*Semester\s*SGPA[\s.:]*([0-9.]+)`},
		{model.FieldSGPA, "sgpa_label", `SGPA[\s.:]*([0-9.]+)`},
		{model.FieldSGPA, "grade_label", `Grade[\s.:]*([0-9.]+)`},
		{model.FieldSGPA, "score_label", `Score[\s.:]*([0-9.]+)`},
		{model.FieldSGPA, "gpa_suffix", `([0-9]\.[0-9]{2})\s*(?:SGPA|GPA)`},
		{model.FieldSGPA, "cgpa_label", `CGPA[\s.:]*([0-9.]+)`},
		{model.FieldSGPA, "gpa_label", `GPA[\s.:]*([0-9.]+)`},
		{model.FieldSGPA, "standalone_decimal", `(?:^|\s)([0-9]\.[0-9]{1,2})(?:\s|$)`},

		{model.FieldResultDate, "result_date_label", `Result\s*Date[\s.:]*([0-9]{1,2}\s*[A-Za-z]+\s*[0-9]{4})`},
		{model.FieldResultDate, "date_of_result_label", `Date\s*of\s*Result[\s.:]*([0-9]{1,2}\s*[A-Za-z]+\s*[0-9]{4})`},
		{model.FieldResultDate, "date_label", `Date[\s.:]*([0-9]{1,2}\s*[A-Za-z]+\s*[0-9]{4})`},
		{model.FieldResultDate, "dated_label", `Dated[\s.:]*([0-9]{1,2}\s*[A-Za-z]+\s*[0-9]{4})`},
		{model.FieldResultDate, "examination_date_label", `Examination\s*Date[\s.:]*([0-9]{1,2}\s*[A-Za-z]+\s*[0-9]{4})`},
		{model.FieldResultDate, "day_month_year", `([0-9]{1,2}\s*(?:` + months + `)\s*[0-9]{4})`},
		{model.FieldResultDate, "slash_date", `(?:^|\s)([0-9]{2}/[0-9]{2}/[0-9]{4})(?:\s|$)`},
		{model.FieldResultDate, "dash_date", `(?:^|\s)([0-9]{2}-[0-9]{2}-[0-9]{4})(?:\s|$)`},

		{model.FieldSubject, "sub_parenthesized", `SUB[\s.:]*\(([^)]+)\)`},
		{model.FieldSubject, "subject_label", `Subject[\s.:]*([A-Za-z\s&]+?)` + lineStop},
		{model.FieldSubject, "course_label", `Course[\s.:]*([A-Za-z\s&]+?)` + lineStop},
		{model.FieldSubject, "programme_label", `Programme[\s.:]*([A-Za-z\s&]+?)` + lineStop},
		{model.FieldSubject, "branch_label", `Branch[\s.:]*([A-Za-z\s&]+?)` + lineStop},
		{model.FieldSubject, "specialization_label", `Specialization[\s.:]*([A-Za-z\s&]+?)` + lineStop},
		{model.FieldSubject, "department_of", `Department\s*of\s*([A-Za-z\s&]+?)` + lineStop},
	}
}
