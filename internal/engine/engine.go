// Package engine runs certificate submissions through the verification
// pipeline: OCR, field extraction, scoring and audit logging.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Veraticus/certcheck/internal/extract"
	"github.com/Veraticus/certcheck/internal/model"
	"github.com/Veraticus/certcheck/internal/service"
	"github.com/Veraticus/certcheck/internal/verify"
)

// Verifier scores extracted fields against the reference store.
type Verifier interface {
	Verify(ctx context.Context, fields model.ExtractedFields) model.VerificationOutcome
}

// ErrNoReader is returned when a file submission reaches an engine built
// without a TextReader.
var ErrNoReader = errors.New("no OCR reader configured")

// Submission is one document to verify. When Text is set the OCR step is
// skipped and Path is used only for naming.
type Submission struct {
	Path     string
	Text     string
	Filename string
}

func (s Submission) name() string {
	if s.Filename != "" {
		return s.Filename
	}
	if s.Path != "" {
		return filepath.Base(s.Path)
	}
	return "text"
}

// Report is the full result of processing one submission.
type Report struct {
	FraudLogID      *int64                    `json:"fraud_log_id,omitempty"`
	Filename        string                    `json:"filename"`
	Source          string                    `json:"source"`
	Text            string                    `json:"extracted_text"`
	Recommendations []string                  `json:"recommendations"`
	Outcome         model.VerificationOutcome `json:"verification"`
	Fields          model.ExtractedFields     `json:"extracted_data"`
	Quality         model.ExtractionQuality   `json:"extraction_quality"`
	LogID           int64                     `json:"verification_log_id,omitempty"`
	Duration        time.Duration             `json:"duration"`
}

// Engine wires the pipeline collaborators together.
type Engine struct {
	reader    service.TextReader
	extractor *extract.Extractor
	verifier  Verifier
	audit     service.AuditLog
	source    string
}

// Option configures an Engine.
type Option func(*Engine)

// WithReader sets the OCR reader used for file submissions.
func WithReader(reader service.TextReader, source string) Option {
	return func(e *Engine) {
		e.reader = reader
		e.source = source
	}
}

// WithAuditLog enables persistence of verification and fraud logs.
func WithAuditLog(audit service.AuditLog) Option {
	return func(e *Engine) { e.audit = audit }
}

// New creates an engine. A nil extractor uses the default rule table.
func New(extractor *extract.Extractor, verifier Verifier, opts ...Option) *Engine {
	if extractor == nil {
		extractor = extract.Default()
	}
	e := &Engine{extractor: extractor, verifier: verifier, source: "text"}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs one submission through the pipeline. OCR failures become an
// ERROR outcome in the report; only audit-log failures are returned as errors.
func (e *Engine) Process(ctx context.Context, sub Submission) (*Report, error) {
	start := time.Now()
	report := &Report{Filename: sub.name(), Source: "text"}

	text := sub.Text
	var ocrErr error
	if text == "" && sub.Path != "" {
		report.Source = e.source
		if e.reader == nil {
			ocrErr = ErrNoReader
		} else {
			text, ocrErr = e.reader.ReadText(ctx, sub.Path)
		}
	}
	report.Text = text

	if ocrErr != nil {
		slog.Warn("OCR failed", "file", report.Filename, "error", ocrErr)
		report.Quality = extract.Quality(model.ExtractedFields{})
		report.Outcome = model.VerificationOutcome{
			Status:     model.StatusError,
			Confidence: 0,
			Anomalies:  []string{fmt.Sprintf("OCR error: %v", ocrErr)},
		}
	} else {
		report.Fields = e.extractor.Extract(text)
		report.Quality = extract.Quality(report.Fields)
		report.Outcome = e.verifier.Verify(ctx, report.Fields)
	}
	report.Recommendations = verify.Recommendations(report.Outcome)

	if err := e.record(ctx, report); err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	slog.Info("Processed submission",
		"file", report.Filename,
		"status", report.Outcome.Status,
		"confidence", fmt.Sprintf("%.1f%%", report.Outcome.Confidence*100),
		"duration", report.Duration)

	return report, nil
}

func (e *Engine) record(ctx context.Context, report *Report) error {
	if e.audit == nil {
		return nil
	}

	entry := &model.VerificationLog{
		Filename:      report.Filename,
		ExtractedText: report.Text,
		Source:        report.Source,
		Result:        report.Outcome.Status,
		Anomalies:     report.Outcome.Anomalies,
		Extracted:     report.Fields,
		Confidence:    report.Outcome.Confidence,
	}
	if rec := report.Outcome.MatchedRecord; rec != nil && rec.ID != 0 {
		id := rec.ID
		entry.MatchedCertificateID = &id
	}
	if err := e.audit.SaveVerificationLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to save verification log: %w", err)
	}
	report.LogID = entry.ID

	if !report.Outcome.Status.IsFlagged() {
		return nil
	}

	logID := entry.ID
	fraud := &model.FraudLog{
		VerificationLogID: &logID,
		Filename:          report.Filename,
		RawText:           report.Text,
		Source:            report.Source,
		Status:            report.Outcome.Status,
		Reasons:           report.Outcome.Anomalies,
		Extracted:         report.Fields,
		Confidence:        report.Outcome.Confidence,
	}
	if err := e.audit.SaveFraudLog(ctx, fraud); err != nil {
		return fmt.Errorf("failed to save fraud log: %w", err)
	}
	report.FraudLogID = &fraud.ID
	return nil
}
