package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/certcheck/internal/model"
	"github.com/Veraticus/certcheck/internal/service"
	"github.com/Veraticus/certcheck/internal/testutil"
	"github.com/Veraticus/certcheck/internal/verify"
)

type fakeReader struct {
	texts map[string]string
	err   error
	calls atomic.Int32
}

func (f *fakeReader) ReadText(_ context.Context, path string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.texts[path], nil
}

// failingAudit wraps a real audit log and fails verification log writes.
type failingAudit struct {
	service.AuditLog
}

func (failingAudit) SaveVerificationLog(context.Context, *model.VerificationLog) error {
	return errors.New("disk full")
}

func newTestEngine(t *testing.T, reader *fakeReader) (*Engine, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t, testutil.SampleCertificates()...)
	opts := []Option{WithAuditLog(db.Storage)}
	if reader != nil {
		opts = append(opts, WithReader(reader, "fake-ocr"))
	}
	return New(nil, verify.New(db.Storage), opts...), db
}

func TestEngine_ProcessAuthenticText(t *testing.T) {
	e, db := newTestEngine(t, nil)
	ctx := context.Background()

	report, err := e.Process(ctx, Submission{Text: testutil.SampleText})
	require.NoError(t, err)

	assert.Equal(t, model.StatusAuthentic, report.Outcome.Status)
	assert.Greater(t, report.Outcome.Confidence, 0.9)
	assert.Equal(t, testutil.SeatAniket, report.Fields.SeatNo)
	assert.InDelta(t, 1.0, report.Quality.OverallConfidence, 1e-9)
	assert.Equal(t, "text", report.Filename)
	assert.Equal(t, "text", report.Source)
	assert.NotZero(t, report.LogID)
	assert.Nil(t, report.FraudLogID)
	assert.NotEmpty(t, report.Recommendations)

	logs, err := db.Storage.ListVerificationLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].MatchedCertificateID)
	assert.Equal(t, db.MustFind(testutil.SeatAniket).ID, *logs[0].MatchedCertificateID)

	frauds, err := db.Storage.ListFraudLogs(ctx, model.FraudLogFilter{})
	require.NoError(t, err)
	assert.Empty(t, frauds)
}

func TestEngine_ProcessUnknownSeatIsFlagged(t *testing.T) {
	reader := &fakeReader{texts: map[string]string{
		"/scans/forged.png": "Seat No: Z9999999 Student Name: JOHN DOE SGPA: 9.99",
	}}
	e, db := newTestEngine(t, reader)
	ctx := context.Background()

	report, err := e.Process(ctx, Submission{Path: "/scans/forged.png"})
	require.NoError(t, err)

	assert.Equal(t, model.StatusFake, report.Outcome.Status)
	assert.Equal(t, "forged.png", report.Filename)
	assert.Equal(t, "fake-ocr", report.Source)
	require.NotNil(t, report.FraudLogID)

	frauds, err := db.Storage.ListFraudLogs(ctx, model.FraudLogFilter{})
	require.NoError(t, err)
	require.Len(t, frauds, 1)
	assert.Equal(t, model.StatusFake, frauds[0].Status)
	require.NotNil(t, frauds[0].VerificationLogID)
	assert.Equal(t, report.LogID, *frauds[0].VerificationLogID)
	assert.Equal(t, report.Outcome.Anomalies, frauds[0].Reasons)
}

func TestEngine_ProcessOCRFailure(t *testing.T) {
	reader := &fakeReader{err: errors.New("tesseract missing")}
	e, db := newTestEngine(t, reader)
	ctx := context.Background()

	report, err := e.Process(ctx, Submission{Path: "cert.png"})
	require.NoError(t, err, "OCR failures are reported, not returned")

	assert.Equal(t, model.StatusError, report.Outcome.Status)
	assert.Zero(t, report.Outcome.Confidence)
	assert.Equal(t, []string{"OCR error: tesseract missing"}, report.Outcome.Anomalies)
	assert.Nil(t, report.FraudLogID, "errors are not fraud")

	logs, err := db.Storage.ListVerificationLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.StatusError, logs[0].Result)
}

func TestEngine_ProcessWithoutReader(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	report, err := e.Process(context.Background(), Submission{Path: "cert.png"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, report.Outcome.Status)
	assert.Contains(t, report.Outcome.Anomalies[0], ErrNoReader.Error())
}

func TestEngine_AuditFailureIsReturned(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.SampleCertificates()...)
	e := New(nil, verify.New(db.Storage), WithAuditLog(failingAudit{AuditLog: db.Storage}))

	report, err := e.Process(context.Background(), Submission{Text: testutil.SampleText})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, report)
	assert.Equal(t, model.StatusAuthentic, report.Outcome.Status)
}

func TestEngine_ProcessWithoutAuditLog(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.SampleCertificates()...)
	e := New(nil, verify.New(db.Storage))

	report, err := e.Process(context.Background(), Submission{Text: testutil.SampleText, Filename: "inline"})
	require.NoError(t, err)
	assert.Zero(t, report.LogID)
	assert.Equal(t, "inline", report.Filename)
}

func TestEngine_ProcessBatch(t *testing.T) {
	reader := &fakeReader{texts: map[string]string{
		"a.png": testutil.SampleText,
		"b.png": "Seat No: Z1 Student Name: NOBODY",
		"c.png": testutil.SampleText,
	}}
	e, _ := newTestEngine(t, reader)

	subs := []Submission{{Path: "a.png"}, {Path: "b.png"}, {Path: "c.png"}, {Text: testutil.SampleText, Filename: "inline"}}

	var progress []int
	reports, summary, err := e.ProcessBatch(context.Background(), subs, 2, func(i int, r *Report, err error) {
		assert.NoError(t, err)
		assert.NotNil(t, r)
		progress = append(progress, i)
	})
	require.NoError(t, err)
	require.Len(t, reports, 4)

	assert.Equal(t, "a.png", reports[0].Filename)
	assert.Equal(t, model.StatusFake, reports[1].Outcome.Status)
	assert.Equal(t, "c.png", reports[2].Filename)
	assert.Equal(t, "inline", reports[3].Filename)
	assert.ElementsMatch(t, []int{0, 1, 2, 3}, progress)
	assert.Equal(t, int32(3), reader.calls.Load())

	assert.Equal(t, 4, summary.Total)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 3, summary.ByStatus[model.StatusAuthentic])
	assert.Equal(t, 1, summary.ByStatus[model.StatusFake])
	assert.Greater(t, summary.ProcessingTime, time.Duration(0))
}

func TestEngine_ProcessBatchCanceled(t *testing.T) {
	e, _ := newTestEngine(t, &fakeReader{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, summary, err := e.ProcessBatch(ctx, []Submission{{Text: "x"}, {Text: "y"}}, 0, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, reports[0])
	assert.Equal(t, 2, summary.Failed)
}
