package verify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Veraticus/certcheck/internal/common"
	"github.com/Veraticus/certcheck/internal/extract"
	"github.com/Veraticus/certcheck/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleText = "Seat No: S1900508770 Student Name: ANIKET TODKAR Mother Name: PRAMODAPPA TODKAR " +
	"Third Semester SGPA: 9.59 RESULT DATE: 31 January 2025 SUB:(Information Technology)"

type fakeLookup struct {
	records map[string]model.Certificate
	err     error
	panics  bool
	calls   int
}

func (f *fakeLookup) FindActiveCertificate(_ context.Context, seatNo string) (*model.Certificate, error) {
	f.calls++
	if f.panics {
		panic("corrupt index")
	}
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[seatNo]
	if !ok || !rec.IsActive {
		return nil, common.ErrNotFound
	}
	return &rec, nil
}

func reference() model.Certificate {
	return model.Certificate{
		ID:          7,
		SeatNo:      "S1900508770",
		StudentName: "Aniket Todkar",
		MotherName:  "Pramodappa Todkar",
		SGPA:        9.59,
		ResultDate:  "31 January 2025",
		Subject:     "Information Technology",
		IsActive:    true,
	}
}

func lookupWith(records ...model.Certificate) *fakeLookup {
	f := &fakeLookup{records: make(map[string]model.Certificate)}
	for _, r := range records {
		f.records[r.SeatNo] = r
	}
	return f
}

func floatPtr(f float64) *float64 { return &f }

func matchingFields() model.ExtractedFields {
	return extract.Default().Extract(sampleText)
}

func TestVerifier_FullMatch(t *testing.T) {
	v := New(lookupWith(reference()))

	out := v.Verify(context.Background(), matchingFields())

	assert.Equal(t, model.StatusAuthentic, out.Status)
	assert.GreaterOrEqual(t, out.Confidence, 0.95)
	assert.InDelta(t, 0.9875, out.Confidence, 1e-9)
	assert.Empty(t, out.Anomalies)
	assert.NotNil(t, out.Anomalies)
	assert.True(t, out.InstitutionVerified)
	require.NotNil(t, out.MatchedRecord)
	assert.Equal(t, int64(7), out.MatchedRecord.ID)

	require.NotNil(t, out.Breakdown)
	assert.Equal(t, 1.0, out.Breakdown.FieldScores[model.ScoreStudentName])
	assert.Equal(t, 1.0, out.Breakdown.FieldScores[model.ScoreMotherName])
	assert.Equal(t, 1.0, out.Breakdown.FieldScores[model.ScoreSGPA])
	assert.Equal(t, 0.95, out.Breakdown.FieldScores[model.ScoreSubject])
	assert.Equal(t, 0.9, out.Breakdown.FieldScores[model.ScoreDate])
	assert.InDelta(t, 1.0, out.Breakdown.TotalWeight, 1e-9)
	assert.Equal(t, 0.8, out.Breakdown.Thresholds.Authentic)
	assert.True(t, strings.HasPrefix(out.Breakdown.Explanation, "Very high confidence ("))
	assert.Contains(t, out.Breakdown.Explanation, "Strong matches: Student name (100.0%), Mother name (100.0%), SGPA (100.0%), Subject (95.0%), Date format (90.0%)")
	assert.NotContains(t, out.Breakdown.Explanation, "Weak matches")
}

func TestVerifier_NoMatch(t *testing.T) {
	inactive := reference()
	inactive.SeatNo = "S0000000001"
	inactive.IsActive = false

	tests := []struct {
		name      string
		seatNo    string
		wantCalls int
	}{
		{"unknown seat", "S9999999999", 1},
		{"absent seat", "", 0},
		{"whitespace seat", "   ", 0},
		{"deactivated record", "S0000000001", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := lookupWith(reference(), inactive)
			fields := matchingFields()
			fields.SeatNo = tt.seatNo

			out := New(lookup).Verify(context.Background(), fields)

			assert.Equal(t, model.StatusFake, out.Status)
			assert.Equal(t, 0.1, out.Confidence)
			assert.Equal(t, []string{"No matching certificate found"}, out.Anomalies)
			assert.Nil(t, out.MatchedRecord)
			assert.Nil(t, out.Breakdown)
			assert.False(t, out.InstitutionVerified)
			assert.Equal(t, tt.wantCalls, lookup.calls)
		})
	}
}

func TestVerifier_SeatNormalization(t *testing.T) {
	fields := matchingFields()
	fields.SeatNo = " s19005 08770 "

	out := New(lookupWith(reference())).Verify(context.Background(), fields)
	assert.Equal(t, model.StatusAuthentic, out.Status)
}

func TestVerifier_FieldScoring(t *testing.T) {
	tests := []struct {
		name           string
		mutate         func(f *model.ExtractedFields, r *model.Certificate)
		wantStatus     model.Status
		wantConfidence float64
		wantScores     map[string]float64
		wantAnomalies  []string
	}{
		{
			// 2.59 apart scores 0.20, which alone is not enough to leave AUTHENTIC.
			name: "sgpa far off",
			mutate: func(_ *model.ExtractedFields, r *model.Certificate) {
				r.SGPA = 7.0
			},
			wantStatus:     model.StatusAuthentic,
			wantConfidence: 0.8275,
			wantScores:     map[string]float64{model.ScoreSGPA: 0.2},
			wantAnomalies:  []string{"SGPA mismatch (extracted: 9.59, expected: 7.00)"},
		},
		{
			name: "sgpa close",
			mutate: func(f *model.ExtractedFields, _ *model.Certificate) {
				f.SGPA = floatPtr(9.2)
			},
			wantStatus:     model.StatusAuthentic,
			wantConfidence: 0.9375,
			wantScores:     map[string]float64{model.ScoreSGPA: 0.75},
			wantAnomalies:  []string{},
		},
		{
			name: "sgpa missing",
			mutate: func(f *model.ExtractedFields, _ *model.Certificate) {
				f.SGPA = nil
			},
			wantStatus:     model.StatusAuthentic,
			wantConfidence: 0.8875,
			wantScores:     map[string]float64{model.ScoreSGPA: 0.5},
			wantAnomalies:  []string{"SGPA not extracted from certificate"},
		},
		{
			name: "student name missing",
			mutate: func(f *model.ExtractedFields, _ *model.Certificate) {
				f.StudentName = ""
			},
			wantStatus:     model.StatusSuspicious,
			wantConfidence: 0.6375,
			wantScores:     map[string]float64{model.ScoreStudentName: 0},
			wantAnomalies:  []string{"Student name not extracted"},
		},
		{
			name: "mother name missing",
			mutate: func(f *model.ExtractedFields, _ *model.Certificate) {
				f.MotherName = ""
			},
			wantStatus:     model.StatusAuthentic,
			wantConfidence: 0.8625,
			wantScores:     map[string]float64{model.ScoreMotherName: 0.5},
			wantAnomalies:  []string{"Mother name not extracted"},
		},
		{
			name: "mother name missing from reference",
			mutate: func(_ *model.ExtractedFields, r *model.Certificate) {
				r.MotherName = ""
			},
			wantStatus:     model.StatusAuthentic,
			wantConfidence: 0.8625,
			wantScores:     map[string]float64{model.ScoreMotherName: 0.5},
			wantAnomalies:  []string{},
		},
		{
			name: "date unclear",
			mutate: func(f *model.ExtractedFields, _ *model.Certificate) {
				f.ResultDate = "31 Smarch 2025"
			},
			wantStatus:     model.StatusAuthentic,
			wantConfidence: 0.9725,
			wantScores:     map[string]float64{model.ScoreDate: 0.6},
			wantAnomalies:  []string{"Date format unclear: 31 Smarch 2025"},
		},
		{
			name: "date missing",
			mutate: func(f *model.ExtractedFields, _ *model.Certificate) {
				f.ResultDate = ""
			},
			wantStatus:     model.StatusAuthentic,
			wantConfidence: 0.9625,
			wantScores:     map[string]float64{model.ScoreDate: 0.4},
			wantAnomalies:  []string{"Result date not extracted"},
		},
		{
			name: "numeric date",
			mutate: func(f *model.ExtractedFields, _ *model.Certificate) {
				f.ResultDate = "31/01/2025"
			},
			wantStatus:     model.StatusAuthentic,
			wantConfidence: 0.9875,
			wantScores:     map[string]float64{model.ScoreDate: 0.9},
			wantAnomalies:  []string{},
		},
		{
			name: "subject on one side only",
			mutate: func(f *model.ExtractedFields, _ *model.Certificate) {
				f.Subject = ""
			},
			wantStatus:     model.StatusAuthentic,
			wantConfidence: 0.92,
			wantScores:     map[string]float64{model.ScoreSubject: 0.5},
			wantAnomalies:  []string{},
		},
		{
			name: "subject mismatch",
			mutate: func(f *model.ExtractedFields, _ *model.Certificate) {
				f.Subject = "Zzz"
			},
			wantStatus:     model.StatusAuthentic,
			wantConfidence: 0.905,
			wantScores:     map[string]float64{model.ScoreSubject: 0.4},
			wantAnomalies:  []string{"Subject mismatch (similarity: 0%)"},
		},
		{
			name: "abbreviated given name",
			mutate: func(f *model.ExtractedFields, r *model.Certificate) {
				f.StudentName = "J Smith"
				r.StudentName = "John Smith"
			},
			wantStatus:     model.StatusAuthentic,
			wantConfidence: 0.9875,
			wantScores:     map[string]float64{model.ScoreStudentName: 1.0},
			wantAnomalies:  []string{},
		},
		{
			name: "everything wrong",
			mutate: func(f *model.ExtractedFields, _ *model.Certificate) {
				f.StudentName = "Xyz Qwv"
				f.MotherName = "Xyz Qwv"
				f.SGPA = floatPtr(2.0)
				f.Subject = "Zzz"
				f.ResultDate = ""
			},
			wantStatus:     model.StatusFake,
			wantConfidence: 0.30,
			wantScores: map[string]float64{
				model.ScoreStudentName: 0.3,
				model.ScoreMotherName:  0.3,
				model.ScoreSGPA:        0.2,
				model.ScoreSubject:     0.4,
				model.ScoreDate:        0.4,
			},
			wantAnomalies: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := matchingFields()
			record := reference()
			tt.mutate(&fields, &record)

			out := New(lookupWith(record)).Verify(context.Background(), fields)

			assert.Equal(t, tt.wantStatus, out.Status)
			assert.InDelta(t, tt.wantConfidence, out.Confidence, 1e-9)
			require.NotNil(t, out.Breakdown)
			for key, want := range tt.wantScores {
				assert.InDelta(t, want, out.Breakdown.FieldScores[key], 1e-9, key)
			}
			if tt.wantAnomalies != nil {
				assert.Equal(t, tt.wantAnomalies, out.Anomalies)
			}
		})
	}
}

func TestVerifier_DottedInitialFromOCRText(t *testing.T) {
	text := strings.Replace(sampleText, "ANIKET TODKAR", "J. SMITH", 1)
	fields := extract.Default().Extract(text)
	require.Equal(t, "J Smith", fields.StudentName)
	require.Equal(t, "Pramodappa Todkar", fields.MotherName)

	record := reference()
	record.StudentName = "John Smith"

	out := New(lookupWith(record)).Verify(context.Background(), fields)

	assert.Equal(t, model.StatusAuthentic, out.Status)
	assert.InDelta(t, 0.9875, out.Confidence, 1e-9)
	assert.Empty(t, out.Anomalies)
}

func TestVerifier_SGPAMismatchLowersConfidence(t *testing.T) {
	full := New(lookupWith(reference())).Verify(context.Background(), matchingFields())

	record := reference()
	record.SGPA = 7.0
	off := New(lookupWith(record)).Verify(context.Background(), matchingFields())

	assert.Less(t, off.Confidence, full.Confidence)
	assert.Equal(t, 0.2, off.Breakdown.FieldScores[model.ScoreSGPA])
	assert.Contains(t, strings.Join(off.Anomalies, "\n"), "SGPA mismatch")
}

func TestVerifier_VeryLowConfidence(t *testing.T) {
	fields := model.ExtractedFields{
		SeatNo:      "S1900508770",
		StudentName: "Xyz Qwv",
		MotherName:  "Xyz Qwv",
		SGPA:        floatPtr(2.0),
		Subject:     "Zzz",
	}

	out := New(lookupWith(reference())).Verify(context.Background(), fields)

	assert.Equal(t, model.StatusFake, out.Status)
	assert.Less(t, out.Confidence, 0.4)
	require.NotEmpty(t, out.Anomalies)
	assert.Equal(t, AnomalyVeryLow, out.Anomalies[len(out.Anomalies)-1])
	assert.True(t, strings.HasPrefix(out.Anomalies[0], "Student name mismatch (similarity: "))
	assert.Contains(t, out.Breakdown.Explanation, "Low confidence (")
	assert.Contains(t, out.Breakdown.Explanation, "Weak matches: Student name (30.0%)")
}

func TestVerifier_SubjectInapplicableRenormalizes(t *testing.T) {
	fields := matchingFields()
	fields.Subject = ""
	record := reference()
	record.Subject = ""

	out := New(lookupWith(record)).Verify(context.Background(), fields)

	require.NotNil(t, out.Breakdown)
	_, scored := out.Breakdown.FieldScores[model.ScoreSubject]
	assert.False(t, scored)
	_, weighted := out.Breakdown.FieldWeights[model.ScoreSubject]
	assert.False(t, weighted)
	assert.InDelta(t, 0.85, out.Breakdown.TotalWeight, 1e-9)
	assert.InDelta(t, (0.35+0.25+0.20+0.9*0.05)/0.85, out.Confidence, 1e-9)
	assert.Equal(t, model.StatusAuthentic, out.Status)
}

func TestVerifier_Errors(t *testing.T) {
	t.Run("lookup failure", func(t *testing.T) {
		lookup := &fakeLookup{err: errors.New("database is locked")}

		out := New(lookup).Verify(context.Background(), matchingFields())

		assert.Equal(t, model.StatusError, out.Status)
		assert.Equal(t, 0.0, out.Confidence)
		assert.Equal(t, []string{"Verification error: database is locked"}, out.Anomalies)
	})

	t.Run("lookup panics", func(t *testing.T) {
		lookup := &fakeLookup{panics: true}

		var out model.VerificationOutcome
		assert.NotPanics(t, func() {
			out = New(lookup).Verify(context.Background(), matchingFields())
		})
		assert.Equal(t, model.StatusError, out.Status)
		assert.Equal(t, []string{"Verification error: corrupt index"}, out.Anomalies)
	})

	t.Run("malformed reference record", func(t *testing.T) {
		record := reference()
		record.SGPA = 42

		out := New(lookupWith(record)).Verify(context.Background(), matchingFields())

		assert.Equal(t, model.StatusError, out.Status)
		assert.Equal(t, 0.0, out.Confidence)
		require.Len(t, out.Anomalies, 1)
		assert.Contains(t, out.Anomalies[0], "invalid sgpa")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		lookup := &fakeLookup{err: context.Canceled}

		out := New(lookup).Verify(ctx, matchingFields())
		assert.Equal(t, model.StatusError, out.Status)
	})
}

func TestVerifier_CustomThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds.Authentic = 0.99
	cfg.Thresholds.Suspicious = 0.6

	v, err := NewWithConfig(lookupWith(reference()), cfg)
	require.NoError(t, err)

	out := v.Verify(context.Background(), matchingFields())

	assert.Equal(t, model.StatusSuspicious, out.Status)
	require.Len(t, out.Anomalies, 1)
	assert.True(t, strings.HasPrefix(out.Anomalies[0], "Confidence "))
	assert.True(t, strings.HasSuffix(out.Anomalies[0], "below authentic threshold"))
	assert.Equal(t, 0.99, out.Breakdown.Thresholds.Authentic)
}

func TestNewWithConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(_ *Config) {}, ""},
		{"suspicious above authentic", func(c *Config) { c.Thresholds.Suspicious = 0.9 }, "must be below authentic"},
		{"negative weight", func(c *Config) { c.Weights.Date = -1 }, "weight date is negative"},
		{"zero weights", func(c *Config) { c.Weights = Weights{} }, "positive value"},
		{"unsorted table", func(c *Config) { c.NameScores.Steps[1].Bound = 99 }, "name scores"},
		{"unknown strategy", func(c *Config) { c.NameStrategies = []string{"soundex"} }, "unknown similarity strategy"},
		{"no strategies", func(c *Config) { c.SubjectStrategies = nil }, "none configured"},
		{"no layouts", func(c *Config) { c.DateLayouts = nil }, "date layout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			_, err := NewWithConfig(lookupWith(), cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	t.Run("nil lookup", func(t *testing.T) {
		_, err := NewWithConfig(nil, DefaultConfig())
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})
}
