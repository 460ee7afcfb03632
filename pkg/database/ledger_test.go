package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arnavshah/oncall-rota-go/pkg/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestLedgerRoundTrip(t *testing.T) {
	db := testDB(t)
	week := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	saved := []models.LedgerEntry{
		{
			UserID:          "alice",
			MonthCount:      16,
			CumulativeCount: 16,
			ShiftTypeCounts: map[string]int{"tier2-morning": 16},
			LastAssigned:    map[string]time.Time{"tier2-morning": week},
		},
		{
			UserID:          "bob",
			MonthCount:      15,
			CumulativeCount: 15,
			ShiftTypeCounts: map[string]int{"tier2-evening": 15},
		},
	}
	require.NoError(t, SaveLedger(db, saved))

	loaded, err := LoadLedger(db)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	require.Equal(t, "alice", loaded[0].UserID)
	require.Equal(t, 16, loaded[0].CumulativeCount)
	require.Equal(t, 16, loaded[0].ShiftTypeCounts["tier2-morning"])
	require.True(t, loaded[0].LastAssigned["tier2-morning"].Equal(week))

	require.Equal(t, "bob", loaded[1].UserID)
	require.Equal(t, 15, loaded[1].ShiftTypeCounts["tier2-evening"])

	// Month counts are run-scoped and never persist.
	require.Equal(t, 0, loaded[0].MonthCount)
	require.Equal(t, 0, loaded[1].MonthCount)
}

func TestSaveLedger_UpsertsExistingRows(t *testing.T) {
	db := testDB(t)

	require.NoError(t, SaveLedger(db, []models.LedgerEntry{
		{UserID: "alice", CumulativeCount: 3, ShiftTypeCounts: map[string]int{"tier3-morning": 3}},
	}))
	require.NoError(t, SaveLedger(db, []models.LedgerEntry{
		{UserID: "alice", CumulativeCount: 5, ShiftTypeCounts: map[string]int{"tier3-morning": 5}},
		{UserID: "carol", CumulativeCount: 1},
	}))

	loaded, err := LoadLedger(db)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, 5, loaded[0].CumulativeCount)
	require.Equal(t, 5, loaded[0].ShiftTypeCounts["tier3-morning"])
	require.Equal(t, "carol", loaded[1].UserID)

	var count int64
	db.Model(&LedgerRecord{}).Count(&count)
	require.EqualValues(t, 2, count)
	db.Model(&RotationRecord{}).Count(&count)
	require.EqualValues(t, 1, count)
}

func TestSaveLedger_EmptyIsNoop(t *testing.T) {
	db := testDB(t)
	require.NoError(t, SaveLedger(db, nil))

	loaded, err := LoadLedger(db)
	require.NoError(t, err)
	require.Empty(t, loaded)
}
