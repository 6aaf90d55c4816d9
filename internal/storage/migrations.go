package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Reference certificate records",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS certificates (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					seat_no TEXT UNIQUE NOT NULL,
					student_name TEXT NOT NULL,
					mother_name TEXT NOT NULL DEFAULT '',
					sgpa REAL NOT NULL CHECK (sgpa >= 0 AND sgpa <= 10),
					result_date TEXT NOT NULL DEFAULT '',
					subject TEXT NOT NULL DEFAULT '',
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_certificates_active ON certificates(is_active)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Verification audit log",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS verification_logs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					filename TEXT NOT NULL DEFAULT '',
					source TEXT NOT NULL DEFAULT '',
					extracted_text TEXT NOT NULL DEFAULT '',
					extracted_seat_no TEXT NOT NULL DEFAULT '',
					extracted_student_name TEXT NOT NULL DEFAULT '',
					extracted_mother_name TEXT NOT NULL DEFAULT '',
					extracted_sgpa REAL,
					extracted_result_date TEXT NOT NULL DEFAULT '',
					extracted_subject TEXT NOT NULL DEFAULT '',
					result TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					anomalies TEXT NOT NULL DEFAULT '[]',
					matched_certificate_id INTEGER REFERENCES certificates(id),
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_verification_logs_created ON verification_logs(created_at)`,
				`CREATE INDEX idx_verification_logs_result ON verification_logs(result)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Fraud log for flagged verifications",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS fraud_logs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					verification_log_id INTEGER REFERENCES verification_logs(id),
					filename TEXT NOT NULL DEFAULT '',
					source TEXT NOT NULL DEFAULT '',
					raw_text TEXT NOT NULL DEFAULT '',
					extracted_seat_no TEXT NOT NULL DEFAULT '',
					extracted_student_name TEXT NOT NULL DEFAULT '',
					extracted_mother_name TEXT NOT NULL DEFAULT '',
					extracted_sgpa REAL,
					extracted_result_date TEXT NOT NULL DEFAULT '',
					extracted_subject TEXT NOT NULL DEFAULT '',
					fraud_status TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					reasons TEXT NOT NULL DEFAULT '[]',
					detected_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					reviewed BOOLEAN NOT NULL DEFAULT 0,
					admin_notes TEXT NOT NULL DEFAULT '',
					reviewed_at DATETIME
				)`,
				`CREATE INDEX idx_fraud_logs_detected ON fraud_logs(detected_at)`,
			})
		},
	},
	{
		Version:     4,
		Description: "Index fraud logs by review state",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE INDEX idx_fraud_logs_reviewed ON fraud_logs(reviewed, fraud_status)`,
			})
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}
