// Package testutil provides test helpers shared across packages: an isolated
// in-memory store seeded with reference records.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/certcheck/internal/model"
	"github.com/Veraticus/certcheck/internal/storage"
)

// TestDB represents a test database with its seeded records.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	Records []model.Certificate
}

// SetupTestDB creates a migrated in-memory database seeded with records.
// Cleanup is registered on t.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.SampleCertificates()...)
func SetupTestDB(t *testing.T, records ...model.Certificate) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Records: records})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	Records        []model.Certificate
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	records := append([]model.Certificate(nil), opts.Records...)
	if len(records) > 0 {
		if err := store.SaveCertificates(ctx, records); err != nil {
			t.Fatalf("failed to seed certificates: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage: store,
		Records: records,
		t:       t,
	}
}

// MustFind returns the seeded record for seatNo or fails the test.
func (db *TestDB) MustFind(seatNo string) model.Certificate {
	db.t.Helper()
	seat := model.NormalizeSeatNo(seatNo)
	for _, r := range db.Records {
		if r.SeatNo == seat {
			return r
		}
	}
	db.t.Fatalf("certificate %q not found in test data", seatNo)
	return model.Certificate{}
}
