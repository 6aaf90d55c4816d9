package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/certcheck/internal/engine"
	"github.com/Veraticus/certcheck/internal/model"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestInterruptHandler(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output)

	ctx, stop := handler.HandleInterrupts(context.Background(), 5)
	defer stop()

	handler.MarkCompleted()
	handler.MarkCompleted()
	assert.False(t, handler.WasInterrupted())

	handler.Interrupt()
	handler.Interrupt()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled")
	}

	assert.True(t, handler.WasInterrupted())
	msg := output.String()
	assert.Contains(t, msg, "Verification interrupted!")
	assert.Contains(t, msg, "2 of 5 documents")
	assert.Equal(t, 1, strings.Count(msg, "Verification interrupted!"))
}

func TestInterruptHandlerStopCancels(t *testing.T) {
	handler := NewInterruptHandler(io.Discard)
	ctx, stop := handler.HandleInterrupts(context.Background(), 0)
	stop()
	stop()

	assert.Error(t, ctx.Err())
	assert.False(t, handler.WasInterrupted())
}

func TestLineReader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full yes", input: "YES\n", want: true},
		{name: "no", input: "n\n", want: false},
		{name: "empty", input: "\n", want: false},
		{name: "eof", input: "", want: false},
		{name: "no trailing newline", input: "yes", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			r := NewLineReader(strings.NewReader(tt.input), &out)
			got, err := r.Confirm(context.Background(), "Deactivate?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Deactivate? [y/N]")
		})
	}
}

func TestLineReaderCanceled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewLineReader(pr, nil)
	_, err := r.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)
}

func TestLineReaderPrompt(t *testing.T) {
	r := NewLineReader(strings.NewReader("  checked with registrar  \nnext\n"), nil)

	first, err := r.Prompt(context.Background(), "Notes")
	require.NoError(t, err)
	assert.Equal(t, "checked with registrar", first)

	second, err := r.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "next", second)
}

func TestFormatStatus(t *testing.T) {
	for _, status := range []model.Status{model.StatusAuthentic, model.StatusSuspicious, model.StatusFake, model.StatusError} {
		t.Run(string(status), func(t *testing.T) {
			assert.Contains(t, FormatStatus(status), string(status))
		})
	}
	assert.Equal(t, SuccessIcon, StatusIcon(model.StatusAuthentic))
	assert.Equal(t, ErrorIcon, StatusIcon(model.StatusFake))
}

func TestRenderReport(t *testing.T) {
	sgpa := 9.59
	report := &engine.Report{
		Filename: "aniket.png",
		Source:   "tesseract",
		Fields: model.ExtractedFields{
			SeatNo:      "S1900508770",
			StudentName: "Aniket Todkar",
			SGPA:        &sgpa,
		},
		Quality: model.ExtractionQuality{
			OverallConfidence: 0.5,
			Issues:            []string{"Mother name not found"},
		},
		Outcome: model.VerificationOutcome{
			Status:     model.StatusSuspicious,
			Confidence: 0.72,
			Anomalies:  []string{"Subject mismatch"},
			MatchedRecord: &model.Certificate{
				ID:          7,
				SeatNo:      "S1900508770",
				StudentName: "Aniket Todkar",
			},
			Breakdown: &model.ConfidenceBreakdown{
				FieldScores:  map[string]float64{model.ScoreStudentName: 1, model.ScoreSubject: 0.3},
				FieldWeights: map[string]float64{model.ScoreStudentName: 0.35, model.ScoreSubject: 0.15},
				Explanation:  "Moderate confidence",
			},
		},
		Recommendations: []string{"Contact the institution"},
		Duration:        1500 * time.Millisecond,
	}

	out := RenderReport(report)
	for _, want := range []string{
		"SUSPICIOUS",
		"72.0%",
		"aniket.png via tesseract",
		"S1900508770",
		"9.59",
		"Mother name not found",
		"Matched record #7",
		"student_name",
		"Subject mismatch",
		"Contact the institution",
	} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "mother_name"), 0)
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(engine.BatchSummary{
		ByStatus: map[model.Status]int{model.StatusAuthentic: 3, model.StatusFake: 1},
		Total:    5,
		Failed:   1,
	})
	assert.Contains(t, out, "Processed 5 documents")
	assert.Contains(t, out, "AUTHENTIC: 3")
	assert.Contains(t, out, "FAKE: 1")
	assert.NotContains(t, out, "SUSPICIOUS")
	assert.Contains(t, out, "1 failed")
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, "SEAT", "NAME")
	table.Row("S1", "Aniket")
	table.Row("T2023001", "Rahul")
	require.NoError(t, table.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "SEAT")
	assert.Equal(t, strings.Index(lines[1], "Aniket"), strings.Index(lines[2], "Rahul"))
}

func TestFormatSGPA(t *testing.T) {
	f := 8.0
	assert.Equal(t, "-", FormatSGPA(nil))
	assert.Equal(t, "8.00", FormatSGPA(&f))
}
