package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Veraticus/certcheck/internal/common"
	"github.com/Veraticus/certcheck/internal/model"
)

const certificateColumns = `id, seat_no, student_name, mother_name, sgpa, result_date, subject, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*model.Certificate, error) {
	var cert model.Certificate
	err := row.Scan(
		&cert.ID,
		&cert.SeatNo,
		&cert.StudentName,
		&cert.MotherName,
		&cert.SGPA,
		&cert.ResultDate,
		&cert.Subject,
		&cert.IsActive,
		&cert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindActiveCertificate returns the active reference record for a seat number.
func (s *SQLiteStorage) FindActiveCertificate(ctx context.Context, seatNo string) (*model.Certificate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	seat := model.NormalizeSeatNo(seatNo)
	if seat == "" {
		return nil, fmt.Errorf("%w: seatNo", ErrEmptyString)
	}

	cert, err := scanCertificate(s.db.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE seat_no = ? AND is_active = 1`, seat))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find certificate: %w", err)
	}
	return cert, nil
}

// ExistingSeatNumbers returns every stored seat number, active or not.
func (s *SQLiteStorage) ExistingSeatNumbers(ctx context.Context) (map[string]struct{}, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT seat_no FROM certificates`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seat numbers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	seats := make(map[string]struct{})
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return nil, fmt.Errorf("failed to scan seat number: %w", err)
		}
		seats[seat] = struct{}{}
	}
	return seats, rows.Err()
}

// SaveCertificate inserts a new reference record.
// The seat number is normalized and must not already exist.
func (s *SQLiteStorage) SaveCertificate(ctx context.Context, cert *model.Certificate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := ValidateCertificate(cert); err != nil {
		return err
	}
	return s.insertCertificate(ctx, s.db, cert)
}

// SaveCertificates inserts a batch of reference records in one transaction.
// Nothing is stored if any record is rejected.
func (s *SQLiteStorage) SaveCertificates(ctx context.Context, certs []model.Certificate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCertificates(certs); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for i := range certs {
			if err := s.insertCertificate(ctx, tx, &certs[i]); err != nil {
				return fmt.Errorf("certificate %s: %w", certs[i].SeatNo, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStorage) insertCertificate(ctx context.Context, q queryable, cert *model.Certificate) error {
	cert.SeatNo = model.NormalizeSeatNo(cert.SeatNo)
	cert.StudentName = strings.TrimSpace(cert.StudentName)
	cert.MotherName = strings.TrimSpace(cert.MotherName)
	cert.ResultDate = strings.TrimSpace(cert.ResultDate)
	cert.Subject = strings.TrimSpace(cert.Subject)
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = time.Now().UTC()
	}
	cert.IsActive = true

	result, err := q.ExecContext(ctx, `
		INSERT INTO certificates (seat_no, student_name, mother_name, sgpa, result_date, subject, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
	`, cert.SeatNo, cert.StudentName, cert.MotherName, cert.SGPA, cert.ResultDate, cert.Subject, cert.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: seat number %s", common.ErrDuplicateEntry, cert.SeatNo)
		}
		return fmt.Errorf("failed to insert certificate: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read certificate id: %w", err)
	}
	cert.ID = id
	return nil
}

// GetCertificate retrieves a reference record by id, active or not.
func (s *SQLiteStorage) GetCertificate(ctx context.Context, id int64) (*model.Certificate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	cert, err := scanCertificate(s.db.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return cert, nil
}

// ListCertificates returns reference records ordered by seat number.
func (s *SQLiteStorage) ListCertificates(ctx context.Context, filter model.CertificateFilter) ([]model.Certificate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if !filter.IncludeInactive {
		where = append(where, "is_active = 1")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		where = append(where, "(seat_no LIKE ? OR student_name LIKE ? OR mother_name LIKE ?)")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := `SELECT ` + certificateColumns + ` FROM certificates`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seat_no"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var certs []model.Certificate
	for rows.Next() {
		cert, scanErr := scanCertificate(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", scanErr)
		}
		certs = append(certs, *cert)
	}
	return certs, rows.Err()
}

// DeactivateCertificate soft-deletes the record for a seat number.
func (s *SQLiteStorage) DeactivateCertificate(ctx context.Context, seatNo string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	seat := model.NormalizeSeatNo(seatNo)
	if seat == "" {
		return fmt.Errorf("%w: seatNo", ErrEmptyString)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE certificates SET is_active = 0 WHERE seat_no = ? AND is_active = 1`, seat)
	if err != nil {
		return fmt.Errorf("failed to deactivate certificate: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deactivation: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
