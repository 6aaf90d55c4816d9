package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/certcheck/internal/common"
	"github.com/Veraticus/certcheck/internal/model"
)

// DefaultLogLimit bounds audit listings when the caller passes no limit.
const DefaultLogLimit = 50

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to marshal list: %w", err)
	}
	return string(data), nil
}

func decodeStrings(raw string) ([]string, error) {
	var values []string
	if raw == "" {
		return []string{}, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal list: %w", err)
	}
	return values, nil
}

func nullSGPA(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func sgpaPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// SaveVerificationLog appends an audit entry for a processed submission.
func (s *SQLiteStorage) SaveVerificationLog(ctx context.Context, entry *model.VerificationLog) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: verification log", ErrNilParameter)
	}
	if err := validateStatus(entry.Result); err != nil {
		return err
	}

	anomalies, err := encodeStrings(entry.Anomalies)
	if err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	f := entry.Extracted
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_logs (
			filename, source, extracted_text,
			extracted_seat_no, extracted_student_name, extracted_mother_name,
			extracted_sgpa, extracted_result_date, extracted_subject,
			result, confidence, anomalies, matched_certificate_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.Filename, entry.Source, entry.ExtractedText,
		f.SeatNo, f.StudentName, f.MotherName,
		nullSGPA(f.SGPA), f.ResultDate, f.Subject,
		string(entry.Result), entry.Confidence, anomalies, entry.MatchedCertificateID, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save verification log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read verification log id: %w", err)
	}
	entry.ID = id
	return nil
}

// SaveFraudLog records a flagged submission for admin review.
func (s *SQLiteStorage) SaveFraudLog(ctx context.Context, entry *model.FraudLog) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: fraud log", ErrNilParameter)
	}
	if !entry.Status.IsFlagged() {
		return fmt.Errorf("%w: %q is not a fraud status", ErrInvalidStatus, entry.Status)
	}

	reasons, err := encodeStrings(entry.Reasons)
	if err != nil {
		return err
	}
	if entry.DetectedAt.IsZero() {
		entry.DetectedAt = time.Now().UTC()
	}

	f := entry.Extracted
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO fraud_logs (
			verification_log_id, filename, source, raw_text,
			extracted_seat_no, extracted_student_name, extracted_mother_name,
			extracted_sgpa, extracted_result_date, extracted_subject,
			fraud_status, confidence, reasons, detected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.VerificationLogID, entry.Filename, entry.Source, entry.RawText,
		f.SeatNo, f.StudentName, f.MotherName,
		nullSGPA(f.SGPA), f.ResultDate, f.Subject,
		string(entry.Status), entry.Confidence, reasons, entry.DetectedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save fraud log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read fraud log id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListVerificationLogs returns the most recent audit entries first.
func (s *SQLiteStorage) ListVerificationLogs(ctx context.Context, limit int) ([]model.VerificationLog, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, source, extracted_text,
			extracted_seat_no, extracted_student_name, extracted_mother_name,
			extracted_sgpa, extracted_result_date, extracted_subject,
			result, confidence, anomalies, matched_certificate_id, created_at
		FROM verification_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []model.VerificationLog
	for rows.Next() {
		var (
			entry     model.VerificationLog
			sgpa      sql.NullFloat64
			matched   sql.NullInt64
			result    string
			anomalies string
		)
		if err := rows.Scan(
			&entry.ID, &entry.Filename, &entry.Source, &entry.ExtractedText,
			&entry.Extracted.SeatNo, &entry.Extracted.StudentName, &entry.Extracted.MotherName,
			&sgpa, &entry.Extracted.ResultDate, &entry.Extracted.Subject,
			&result, &entry.Confidence, &anomalies, &matched, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan verification log: %w", err)
		}
		entry.Extracted.SGPA = sgpaPtr(sgpa)
		entry.Result = model.Status(result)
		if matched.Valid {
			id := matched.Int64
			entry.MatchedCertificateID = &id
		}
		if entry.Anomalies, err = decodeStrings(anomalies); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// ListFraudLogs returns flagged submissions, newest first.
func (s *SQLiteStorage) ListFraudLogs(ctx context.Context, filter model.FraudLogFilter) ([]model.FraudLog, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		if !filter.Status.IsFlagged() {
			return nil, fmt.Errorf("%w: %q is not a fraud status", ErrInvalidStatus, filter.Status)
		}
		where = append(where, "fraud_status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.UnreviewedOnly {
		where = append(where, "reviewed = 0")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	query := `
		SELECT id, verification_log_id, filename, source, raw_text,
			extracted_seat_no, extracted_student_name, extracted_mother_name,
			extracted_sgpa, extracted_result_date, extracted_subject,
			fraud_status, confidence, reasons, detected_at, reviewed, admin_notes, reviewed_at
		FROM fraud_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY detected_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list fraud logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []model.FraudLog
	for rows.Next() {
		var (
			entry      model.FraudLog
			verifyID   sql.NullInt64
			sgpa       sql.NullFloat64
			status     string
			reasons    string
			reviewedAt sql.NullTime
		)
		if err := rows.Scan(
			&entry.ID, &verifyID, &entry.Filename, &entry.Source, &entry.RawText,
			&entry.Extracted.SeatNo, &entry.Extracted.StudentName, &entry.Extracted.MotherName,
			&sgpa, &entry.Extracted.ResultDate, &entry.Extracted.Subject,
			&status, &entry.Confidence, &reasons, &entry.DetectedAt, &entry.Reviewed, &entry.AdminNotes, &reviewedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fraud log: %w", err)
		}
		entry.Extracted.SGPA = sgpaPtr(sgpa)
		entry.Status = model.Status(status)
		if verifyID.Valid {
			id := verifyID.Int64
			entry.VerificationLogID = &id
		}
		if reviewedAt.Valid {
			t := reviewedAt.Time
			entry.ReviewedAt = &t
		}
		if entry.Reasons, err = decodeStrings(reasons); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// ReviewFraudLog marks a fraud log as reviewed with the admin's notes.
func (s *SQLiteStorage) ReviewFraudLog(ctx context.Context, id int64, notes string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE fraud_logs SET reviewed = 1, admin_notes = ?, reviewed_at = ?
		WHERE id = ?
	`, strings.TrimSpace(notes), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to review fraud log: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check review update: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// GetVerificationStats aggregates verification results since a point in time.
// A zero since covers the whole log.
func (s *SQLiteStorage) GetVerificationStats(ctx context.Context, since time.Time) (*model.VerificationStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	since = since.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT result, COUNT(*), COALESCE(AVG(confidence), 0)
		FROM verification_logs
		WHERE created_at >= ?
		GROUP BY result
		ORDER BY result
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query verification stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &model.VerificationStats{Since: since}
	for rows.Next() {
		var (
			row    model.StatusStats
			status string
		)
		if err := rows.Scan(&status, &row.Count, &row.AverageConfidence); err != nil {
			return nil, fmt.Errorf("failed to scan verification stats: %w", err)
		}
		row.Status = model.Status(status)
		stats.ByStatus = append(stats.ByStatus, row)
		stats.Total += row.Count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fraud_logs WHERE detected_at >= ?`, since).Scan(&stats.FraudTotal)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to count fraud logs: %w", err)
	}
	return stats, nil
}
