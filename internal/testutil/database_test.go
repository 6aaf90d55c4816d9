package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDB_Seeds(t *testing.T) {
	db := SetupTestDB(t, SampleCertificates()...)

	cert, err := db.Storage.FindActiveCertificate(context.Background(), SeatPriya)
	require.NoError(t, err)
	assert.Equal(t, "Priya Sunil Patil", cert.StudentName)

	seeded := db.MustFind(SeatRahul)
	assert.NotZero(t, seeded.ID)
}

func TestSetupTestDB_Empty(t *testing.T) {
	db := SetupTestDB(t)
	seats, err := db.Storage.ExistingSeatNumbers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, seats)
}
