// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/certcheck/internal/model"
)

// RecordLookup is the read path the verifier depends on.
type RecordLookup interface {
	// FindActiveCertificate returns the active record for seatNo or
	// common.ErrNotFound.
	FindActiveCertificate(ctx context.Context, seatNo string) (*model.Certificate, error)
}

// SeatIndex exposes the set of known seat numbers for duplicate checks.
type SeatIndex interface {
	ExistingSeatNumbers(ctx context.Context) (map[string]struct{}, error)
}

// CertificateStore is the administrative write path for reference records.
type CertificateStore interface {
	RecordLookup
	SeatIndex
	SaveCertificate(ctx context.Context, cert *model.Certificate) error
	SaveCertificates(ctx context.Context, certs []model.Certificate) error
	GetCertificate(ctx context.Context, id int64) (*model.Certificate, error)
	ListCertificates(ctx context.Context, filter model.CertificateFilter) ([]model.Certificate, error)
	DeactivateCertificate(ctx context.Context, seatNo string) error
}

// AuditLog persists verification and fraud records.
type AuditLog interface {
	SaveVerificationLog(ctx context.Context, entry *model.VerificationLog) error
	SaveFraudLog(ctx context.Context, entry *model.FraudLog) error
	ListVerificationLogs(ctx context.Context, limit int) ([]model.VerificationLog, error)
	ListFraudLogs(ctx context.Context, filter model.FraudLogFilter) ([]model.FraudLog, error)
	ReviewFraudLog(ctx context.Context, id int64, notes string) error
	GetVerificationStats(ctx context.Context, since time.Time) (*model.VerificationStats, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	CertificateStore
	AuditLog
	Migrate(ctx context.Context) error
	Close() error
}

// TextReader turns a document on disk into raw text.
type TextReader interface {
	ReadText(ctx context.Context, path string) (string, error)
}
