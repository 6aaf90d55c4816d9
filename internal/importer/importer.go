// Package importer bulk-loads reference certificate records from CSV.
//
// Loading is two-phase: Parse validates every row and reports problems
// without touching the store, and Commit saves the valid rows atomically.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Veraticus/certcheck/internal/model"
	"github.com/Veraticus/certcheck/internal/service"
	"github.com/Veraticus/certcheck/internal/storage"
)

// RequiredColumns lists the CSV headers every import file must carry.
var RequiredColumns = []string{"seat_no", "student_name", "mother_name", "sgpa", "result_date", "subject"}

// MaxResultDateLength bounds the free-form result date column.
const MaxResultDateLength = 50

// ErrMissingColumns is returned when the header lacks required columns.
var ErrMissingColumns = errors.New("missing required columns")

// ErrNoRows is returned when a file has a header but no data rows.
var ErrNoRows = errors.New("csv file contains no valid data rows")

// Row is a validated record with its position in the source file.
type Row struct {
	Certificate model.Certificate
	Line        int
}

// Report is the outcome of parsing an import file.
type Report struct {
	Valid            []Row
	ValidationErrors []string
	Duplicates       []string
	Skipped          int
}

// Problems returns the number of rejected rows.
func (r *Report) Problems() int {
	return len(r.ValidationErrors) + len(r.Duplicates)
}

// Certificates returns the valid records in file order.
func (r *Report) Certificates() []model.Certificate {
	certs := make([]model.Certificate, len(r.Valid))
	for i, row := range r.Valid {
		certs[i] = row.Certificate
	}
	return certs
}

// Importer validates CSV files against the seats already in a store.
type Importer struct {
	seats service.SeatIndex
}

// New creates an importer that rejects seats known to seats.
func New(seats service.SeatIndex) *Importer {
	return &Importer{seats: seats}
}

// Parse reads and validates every row in r. It returns an error only when the
// file as a whole is unusable; row-level problems are collected in the report.
func (im *Importer) Parse(ctx context.Context, r io.Reader) (*Report, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv file: %w", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	existing, err := im.seats.ExistingSeatNumbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing seat numbers: %w", err)
	}

	report := &Report{}
	seen := make(map[string]int)
	dataRows := 0

	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			var parseErr *csv.ParseError
			if errors.As(readErr, &parseErr) {
				report.ValidationErrors = append(report.ValidationErrors,
					fmt.Sprintf("Row %d: malformed csv: %v", parseErr.StartLine, parseErr.Err))
				continue
			}
			return nil, fmt.Errorf("failed to read csv: %w", readErr)
		}
		if blank(record) {
			continue
		}
		dataRows++
		line, _ := reader.FieldPos(0)

		get := func(col string) string {
			i := index[col]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		if get("seat_no") == "" {
			report.Skipped++
			continue
		}

		cert, problem := validateRow(get)
		if problem != "" {
			report.ValidationErrors = append(report.ValidationErrors, fmt.Sprintf("Row %d: %s", line, problem))
			continue
		}

		if _, ok := existing[cert.SeatNo]; ok {
			report.Duplicates = append(report.Duplicates,
				fmt.Sprintf("Row %d: Certificate with seat_no %q already exists in database", line, cert.SeatNo))
			continue
		}
		if first, ok := seen[cert.SeatNo]; ok {
			report.Duplicates = append(report.Duplicates,
				fmt.Sprintf("Row %d: Duplicate seat_no %q found in CSV file (first seen at row %d)", line, cert.SeatNo, first))
			continue
		}

		seen[cert.SeatNo] = line
		report.Valid = append(report.Valid, Row{Certificate: cert, Line: line})
	}

	if dataRows == 0 {
		return nil, ErrNoRows
	}

	slog.Debug("Parsed import file",
		"valid", len(report.Valid),
		"validation_errors", len(report.ValidationErrors),
		"duplicates", len(report.Duplicates),
		"skipped", report.Skipped)

	return report, nil
}

// Commit stores the report's valid rows in a single transaction.
func Commit(ctx context.Context, store service.CertificateStore, report *Report) (int, error) {
	if report == nil || len(report.Valid) == 0 {
		return 0, nil
	}
	certs := report.Certificates()
	if err := store.SaveCertificates(ctx, certs); err != nil {
		return 0, fmt.Errorf("bulk insert failed: %w", err)
	}
	slog.Info("Imported certificates", "count", len(certs))
	return len(certs), nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return index, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func titleCase(s string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(s), " "))
}

// validateRow normalizes a row and returns a description of the first
// problem found, or "" when the row is valid.
func validateRow(get func(string) string) (model.Certificate, string) {
	cert := model.Certificate{
		SeatNo:      model.NormalizeSeatNo(get("seat_no")),
		StudentName: titleCase(get("student_name")),
		MotherName:  titleCase(get("mother_name")),
		ResultDate:  get("result_date"),
		Subject:     get("subject"),
	}

	raw := get("sgpa")
	if raw == "" {
		return cert, "SGPA is required"
	}
	sgpa, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(sgpa) || math.IsInf(sgpa, 0) {
		return cert, fmt.Sprintf("Invalid SGPA value %q, must be a number", raw)
	}
	if sgpa < 0 || sgpa > 10 {
		return cert, fmt.Sprintf("SGPA must be between 0 and 10, got %v", sgpa)
	}
	cert.SGPA = math.Round(sgpa*100) / 100

	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"seat_no", cert.SeatNo},
		{"student_name", cert.StudentName},
		{"mother_name", cert.MotherName},
		{"subject", cert.Subject},
		{"result_date", cert.ResultDate},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return cert, "Missing required fields: " + strings.Join(missing, ", ")
	}

	for _, f := range []struct {
		name  string
		value string
		max   int
	}{
		{"seat_no", cert.SeatNo, storage.MaxSeatNoLength},
		{"student_name", cert.StudentName, storage.MaxTextLength},
		{"mother_name", cert.MotherName, storage.MaxTextLength},
		{"subject", cert.Subject, storage.MaxTextLength},
		{"result_date", cert.ResultDate, MaxResultDateLength},
	} {
		if utf8.RuneCountInString(f.value) > f.max {
			return cert, fmt.Sprintf("%s too long (max %d characters)", f.name, f.max)
		}
	}

	return cert, ""
}
