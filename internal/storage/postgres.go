package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Veraticus/certcheck/internal/common"
	"github.com/Veraticus/certcheck/internal/model"
)

type certificateRow struct {
	CreatedAt   time.Time `gorm:"not null"`
	SeatNo      string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	StudentName string    `gorm:"type:varchar(255);not null"`
	MotherName  string    `gorm:"type:varchar(255);not null;default:''"`
	ResultDate  string    `gorm:"type:varchar(255);not null;default:''"`
	Subject     string    `gorm:"type:varchar(255);not null;default:''"`
	ID          int64     `gorm:"primaryKey"`
	SGPA        float64   `gorm:"column:sgpa;not null;check:sgpa >= 0 AND sgpa <= 10"`
	IsActive    bool      `gorm:"not null;default:true;index"`
}

func (certificateRow) TableName() string { return "certificates" }

type verificationLogRow struct {
	CreatedAt            time.Time `gorm:"not null;index"`
	MatchedCertificateID *int64
	ExtractedSGPA        *float64 `gorm:"column:extracted_sgpa"`
	Filename             string
	Source               string
	ExtractedText        string
	ExtractedSeatNo      string
	ExtractedStudentName string
	ExtractedMotherName  string
	ExtractedResultDate  string
	ExtractedSubject     string
	Result               string `gorm:"type:varchar(16);not null;index"`
	Anomalies            string `gorm:"type:jsonb;not null;default:'[]'"`
	ID                   int64  `gorm:"primaryKey"`
	Confidence           float64
}

func (verificationLogRow) TableName() string { return "verification_logs" }

type fraudLogRow struct {
	DetectedAt           time.Time `gorm:"not null;index"`
	ReviewedAt           *time.Time
	VerificationLogID    *int64
	ExtractedSGPA        *float64 `gorm:"column:extracted_sgpa"`
	Filename             string
	Source               string
	RawText              string
	ExtractedSeatNo      string
	ExtractedStudentName string
	ExtractedMotherName  string
	ExtractedResultDate  string
	ExtractedSubject     string
	FraudStatus          string `gorm:"type:varchar(16);not null"`
	Reasons              string `gorm:"type:jsonb;not null;default:'[]'"`
	AdminNotes           string
	ID                   int64 `gorm:"primaryKey"`
	Confidence           float64
	Reviewed             bool `gorm:"not null;default:false;index"`
}

func (fraudLogRow) TableName() string { return "fraud_logs" }

// PostgresStorage implements the Storage interface on PostgreSQL through GORM.
type PostgresStorage struct {
	db *gorm.DB
}

// NewPostgresStorage connects to the database described by dsn.
func NewPostgresStorage(dsn string) (*PostgresStorage, error) {
	if err := validateString(dsn, "dsn"); err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get db from gorm: %w", err)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &PostgresStorage{db: db}, nil
}

// Migrate creates or updates the schema with AutoMigrate.
func (p *PostgresStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for _, m := range []any{&certificateRow{}, &verificationLogRow{}, &fraudLogRow{}} {
		if err := p.db.WithContext(ctx).AutoMigrate(m); err != nil {
			return fmt.Errorf("automigration failed for %T: %w", m, err)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func (p *PostgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toCertificate(r *certificateRow) *model.Certificate {
	return &model.Certificate{
		CreatedAt:   r.CreatedAt,
		SeatNo:      r.SeatNo,
		StudentName: r.StudentName,
		MotherName:  r.MotherName,
		ResultDate:  r.ResultDate,
		Subject:     r.Subject,
		ID:          r.ID,
		SGPA:        r.SGPA,
		IsActive:    r.IsActive,
	}
}

func fromCertificate(c *model.Certificate) certificateRow {
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return certificateRow{
		CreatedAt:   created,
		SeatNo:      model.NormalizeSeatNo(c.SeatNo),
		StudentName: strings.TrimSpace(c.StudentName),
		MotherName:  strings.TrimSpace(c.MotherName),
		ResultDate:  strings.TrimSpace(c.ResultDate),
		Subject:     strings.TrimSpace(c.Subject),
		SGPA:        c.SGPA,
		IsActive:    true,
	}
}

func translateWriteError(err error, seatNo string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: seat number %s", common.ErrDuplicateEntry, seatNo)
	}
	return fmt.Errorf("failed to insert certificate: %w", err)
}

// FindActiveCertificate returns the active reference record for a seat number.
func (p *PostgresStorage) FindActiveCertificate(ctx context.Context, seatNo string) (*model.Certificate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	seat := model.NormalizeSeatNo(seatNo)
	if seat == "" {
		return nil, fmt.Errorf("%w: seatNo", ErrEmptyString)
	}

	var row certificateRow
	err := p.db.WithContext(ctx).Where("seat_no = ? AND is_active = ?", seat, true).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find certificate: %w", err)
	}
	return toCertificate(&row), nil
}

// ExistingSeatNumbers returns every stored seat number.
func (p *PostgresStorage) ExistingSeatNumbers(ctx context.Context) (map[string]struct{}, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	var seats []string
	if err := p.db.WithContext(ctx).Model(&certificateRow{}).Pluck("seat_no", &seats).Error; err != nil {
		return nil, fmt.Errorf("failed to query seat numbers: %w", err)
	}
	out := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		out[s] = struct{}{}
	}
	return out, nil
}

// SaveCertificate inserts a new reference record.
func (p *PostgresStorage) SaveCertificate(ctx context.Context, cert *model.Certificate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := ValidateCertificate(cert); err != nil {
		return err
	}
	row := fromCertificate(cert)
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translateWriteError(err, row.SeatNo)
	}
	*cert = *toCertificate(&row)
	return nil
}

// SaveCertificates inserts a batch of reference records in one transaction.
func (p *PostgresStorage) SaveCertificates(ctx context.Context, certs []model.Certificate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCertificates(certs); err != nil {
		return err
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range certs {
			row := fromCertificate(&certs[i])
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("certificate %s: %w", row.SeatNo, translateWriteError(err, row.SeatNo))
			}
			certs[i] = *toCertificate(&row)
		}
		return nil
	})
}

// GetCertificate retrieves a reference record by id.
func (p *PostgresStorage) GetCertificate(ctx context.Context, id int64) (*model.Certificate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	var row certificateRow
	err := p.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return toCertificate(&row), nil
}

// ListCertificates returns reference records ordered by seat number.
func (p *PostgresStorage) ListCertificates(ctx context.Context, filter model.CertificateFilter) ([]model.Certificate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	q := p.db.WithContext(ctx).Model(&certificateRow{})
	if !filter.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		q = q.Where("seat_no ILIKE ? OR student_name ILIKE ? OR mother_name ILIKE ?", pattern, pattern, pattern)
	}
	q = q.Order("seat_no")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}

	var rows []certificateRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	certs := make([]model.Certificate, 0, len(rows))
	for i := range rows {
		certs = append(certs, *toCertificate(&rows[i]))
	}
	return certs, nil
}

// DeactivateCertificate soft-deletes the record for a seat number.
func (p *PostgresStorage) DeactivateCertificate(ctx context.Context, seatNo string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	seat := model.NormalizeSeatNo(seatNo)
	if seat == "" {
		return fmt.Errorf("%w: seatNo", ErrEmptyString)
	}
	result := p.db.WithContext(ctx).Model(&certificateRow{}).
		Where("seat_no = ? AND is_active = ?", seat, true).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate certificate: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// SaveVerificationLog appends an audit entry for a processed submission.
func (p *PostgresStorage) SaveVerificationLog(ctx context.Context, entry *model.VerificationLog) error {
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
	row := verificationLogRow{
		CreatedAt:            entry.CreatedAt,
		MatchedCertificateID: entry.MatchedCertificateID,
		ExtractedSGPA:        f.SGPA,
		Filename:             entry.Filename,
		Source:               entry.Source,
		ExtractedText:        entry.ExtractedText,
		ExtractedSeatNo:      f.SeatNo,
		ExtractedStudentName: f.StudentName,
		ExtractedMotherName:  f.MotherName,
		ExtractedResultDate:  f.ResultDate,
		ExtractedSubject:     f.Subject,
		Result:               string(entry.Result),
		Anomalies:            anomalies,
		Confidence:           entry.Confidence,
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save verification log: %w", err)
	}
	entry.ID = row.ID
	return nil
}

// SaveFraudLog records a flagged submission for admin review.
func (p *PostgresStorage) SaveFraudLog(ctx context.Context, entry *model.FraudLog) error {
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
	row := fraudLogRow{
		DetectedAt:           entry.DetectedAt,
		VerificationLogID:    entry.VerificationLogID,
		ExtractedSGPA:        f.SGPA,
		Filename:             entry.Filename,
		Source:               entry.Source,
		RawText:              entry.RawText,
		ExtractedSeatNo:      f.SeatNo,
		ExtractedStudentName: f.StudentName,
		ExtractedMotherName:  f.MotherName,
		ExtractedResultDate:  f.ResultDate,
		ExtractedSubject:     f.Subject,
		FraudStatus:          string(entry.Status),
		Reasons:              reasons,
		Confidence:           entry.Confidence,
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save fraud log: %w", err)
	}
	entry.ID = row.ID
	return nil
}

// ListVerificationLogs returns the most recent audit entries first.
func (p *PostgresStorage) ListVerificationLogs(ctx context.Context, limit int) ([]model.VerificationLog, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	var rows []verificationLogRow
	if err := p.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list verification logs: %w", err)
	}

	logs := make([]model.VerificationLog, 0, len(rows))
	for _, r := range rows {
		anomalies, err := decodeStrings(r.Anomalies)
		if err != nil {
			return nil, err
		}
		logs = append(logs, model.VerificationLog{
			CreatedAt:            r.CreatedAt,
			MatchedCertificateID: r.MatchedCertificateID,
			Filename:             r.Filename,
			ExtractedText:        r.ExtractedText,
			Source:               r.Source,
			Result:               model.Status(r.Result),
			Anomalies:            anomalies,
			Extracted: model.ExtractedFields{
				SGPA:        r.ExtractedSGPA,
				SeatNo:      r.ExtractedSeatNo,
				StudentName: r.ExtractedStudentName,
				MotherName:  r.ExtractedMotherName,
				ResultDate:  r.ExtractedResultDate,
				Subject:     r.ExtractedSubject,
			},
			ID:         r.ID,
			Confidence: r.Confidence,
		})
	}
	return logs, nil
}

// ListFraudLogs returns flagged submissions, newest first.
func (p *PostgresStorage) ListFraudLogs(ctx context.Context, filter model.FraudLogFilter) ([]model.FraudLog, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	q := p.db.WithContext(ctx).Model(&fraudLogRow{})
	if filter.Status != "" {
		if !filter.Status.IsFlagged() {
			return nil, fmt.Errorf("%w: %q is not a fraud status", ErrInvalidStatus, filter.Status)
		}
		q = q.Where("fraud_status = ?", string(filter.Status))
	}
	if filter.UnreviewedOnly {
		q = q.Where("reviewed = ?", false)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	var rows []fraudLogRow
	if err := q.Order("detected_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list fraud logs: %w", err)
	}

	logs := make([]model.FraudLog, 0, len(rows))
	for _, r := range rows {
		reasons, err := decodeStrings(r.Reasons)
		if err != nil {
			return nil, err
		}
		logs = append(logs, model.FraudLog{
			DetectedAt:        r.DetectedAt,
			ReviewedAt:        r.ReviewedAt,
			VerificationLogID: r.VerificationLogID,
			Filename:          r.Filename,
			RawText:           r.RawText,
			Source:            r.Source,
			AdminNotes:        r.AdminNotes,
			Status:            model.Status(r.FraudStatus),
			Reasons:           reasons,
			Extracted: model.ExtractedFields{
				SGPA:        r.ExtractedSGPA,
				SeatNo:      r.ExtractedSeatNo,
				StudentName: r.ExtractedStudentName,
				MotherName:  r.ExtractedMotherName,
				ResultDate:  r.ExtractedResultDate,
				Subject:     r.ExtractedSubject,
			},
			ID:         r.ID,
			Confidence: r.Confidence,
			Reviewed:   r.Reviewed,
		})
	}
	return logs, nil
}

// ReviewFraudLog marks a fraud log as reviewed with the admin's notes.
func (p *PostgresStorage) ReviewFraudLog(ctx context.Context, id int64, notes string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	now := time.Now().UTC()
	result := p.db.WithContext(ctx).Model(&fraudLogRow{}).Where("id = ?", id).Updates(map[string]any{
		"reviewed":    true,
		"admin_notes": strings.TrimSpace(notes),
		"reviewed_at": now,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to review fraud log: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// GetVerificationStats aggregates verification results since a point in time.
func (p *PostgresStorage) GetVerificationStats(ctx context.Context, since time.Time) (*model.VerificationStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	since = since.UTC()

	var grouped []struct {
		Result     string
		Count      int
		Confidence float64
	}
	err := p.db.WithContext(ctx).Model(&verificationLogRow{}).
		Select("result, COUNT(*) AS count, COALESCE(AVG(confidence), 0) AS confidence").
		Where("created_at >= ?", since).
		Group("result").
		Order("result").
		Scan(&grouped).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query verification stats: %w", err)
	}

	stats := &model.VerificationStats{Since: since}
	for _, g := range grouped {
		stats.ByStatus = append(stats.ByStatus, model.StatusStats{
			Status:            model.Status(g.Result),
			Count:             g.Count,
			AverageConfidence: g.Confidence,
		})
		stats.Total += g.Count
	}

	var fraud int64
	if err := p.db.WithContext(ctx).Model(&fraudLogRow{}).Where("detected_at >= ?", since).Count(&fraud).Error; err != nil {
		return nil, fmt.Errorf("failed to count fraud logs: %w", err)
	}
	stats.FraudTotal = int(fraud)
	return stats, nil
}
