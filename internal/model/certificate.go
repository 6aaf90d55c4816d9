// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"
	"time"
)

// Certificate is the authoritative reference record for an issued result.
// Records are keyed by seat number and are deactivated rather than deleted.
type Certificate struct {
	CreatedAt   time.Time `json:"created_at"`
	SeatNo      string    `json:"seat_no"`
	StudentName string    `json:"student_name"`
	MotherName  string    `json:"mother_name"`
	ResultDate  string    `json:"result_date"`
	Subject     string    `json:"subject"`
	ID          int64     `json:"id"`
	SGPA        float64   `json:"sgpa"`
	IsActive    bool      `json:"is_active"`
}

// NormalizeSeatNo returns the canonical lookup form of a seat number.
func NormalizeSeatNo(seatNo string) string {
	return strings.ToUpper(strings.Join(strings.Fields(seatNo), ""))
}

// CertificateFilter narrows certificate listings.
type CertificateFilter struct {
	Search          string
	Limit           int
	Offset          int
	IncludeInactive bool
}
