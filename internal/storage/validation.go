// Package storage provides the data persistence layer for reference records
// and verification audit logs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/certcheck/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidCertificate = errors.New("invalid certificate")
	ErrInvalidStatus      = errors.New("invalid verification status")
)

// Column limits for reference records.
const (
	MaxSeatNoLength = 50
	MaxTextLength   = 255
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// ValidateCertificate checks a reference record before it is stored.
func ValidateCertificate(cert *model.Certificate) error {
	if cert == nil {
		return fmt.Errorf("%w: certificate", ErrNilParameter)
	}
	if model.NormalizeSeatNo(cert.SeatNo) == "" {
		return fmt.Errorf("%w: missing seat number", ErrInvalidCertificate)
	}
	if utf8.RuneCountInString(cert.SeatNo) > MaxSeatNoLength {
		return fmt.Errorf("%w: seat number exceeds %d characters", ErrInvalidCertificate, MaxSeatNoLength)
	}
	if strings.TrimSpace(cert.StudentName) == "" {
		return fmt.Errorf("%w: missing student name", ErrInvalidCertificate)
	}
	for name, v := range map[string]string{
		"student name": cert.StudentName,
		"mother name":  cert.MotherName,
		"result date":  cert.ResultDate,
		"subject":      cert.Subject,
	} {
		if utf8.RuneCountInString(v) > MaxTextLength {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidCertificate, name, MaxTextLength)
		}
	}
	if math.IsNaN(cert.SGPA) || cert.SGPA < 0 || cert.SGPA > 10 {
		return fmt.Errorf("%w: sgpa %v outside [0,10]", ErrInvalidCertificate, cert.SGPA)
	}
	return nil
}

// validateCertificates validates a batch of reference records.
func validateCertificates(certs []model.Certificate) error {
	if certs == nil {
		return fmt.Errorf("%w: certificates", ErrNilParameter)
	}
	if len(certs) == 0 {
		return fmt.Errorf("%w: certificates", ErrEmptySlice)
	}
	for i := range certs {
		if err := ValidateCertificate(&certs[i]); err != nil {
			return fmt.Errorf("certificate at index %d: %w", i, err)
		}
	}
	return nil
}

func validateStatus(s model.Status) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return nil
}
