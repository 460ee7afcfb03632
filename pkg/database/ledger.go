package database

import (
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/oncall-rota-go/pkg/models"
)

// LoadLedger reads the persisted fairness counters into ledger entries,
// ordered by user. Month counts are run-scoped and never stored, so loaded
// entries always start a fresh month.
func LoadLedger(db *gorm.DB) ([]models.LedgerEntry, error) {
	var ledgerRows []LedgerRecord
	if err := db.Order("user_id").Find(&ledgerRows).Error; err != nil {
		return nil, err
	}
	var rotationRows []RotationRecord
	if err := db.Order("user_id, shift_key").Find(&rotationRows).Error; err != nil {
		return nil, err
	}

	entries := make([]models.LedgerEntry, 0, len(ledgerRows))
	index := make(map[string]int)
	for _, row := range ledgerRows {
		index[row.UserID] = len(entries)
		entries = append(entries, models.LedgerEntry{
			UserID:          row.UserID,
			CumulativeCount: row.CumulativeCount,
			ShiftTypeCounts: make(map[string]int),
			LastAssigned:    make(map[string]time.Time),
		})
	}
	for _, row := range rotationRows {
		i, ok := index[row.UserID]
		if !ok {
			i = len(entries)
			index[row.UserID] = i
			entries = append(entries, models.LedgerEntry{
				UserID:          row.UserID,
				ShiftTypeCounts: make(map[string]int),
				LastAssigned:    make(map[string]time.Time),
			})
		}
		entries[i].ShiftTypeCounts[row.ShiftKey] = row.Count
		if !row.LastAssigned.IsZero() {
			entries[i].LastAssigned[row.ShiftKey] = row.LastAssigned
		}
	}
	return entries, nil
}

// SaveLedger upserts the fairness counters for every entry in one batch per
// table (supported by both Postgres and SQLite)
func SaveLedger(db *gorm.DB, entries []models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ledgerRows := make([]LedgerRecord, 0, len(entries))
	var rotationRows []RotationRecord
	for _, e := range entries {
		ledgerRows = append(ledgerRows, LedgerRecord{
			UserID:          e.UserID,
			CumulativeCount: e.CumulativeCount,
		})

		keys := make([]string, 0, len(e.ShiftTypeCounts))
		for k := range e.ShiftTypeCounts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rotationRows = append(rotationRows, RotationRecord{
				UserID:       e.UserID,
				ShiftKey:     k,
				Count:        e.ShiftTypeCounts[k],
				LastAssigned: e.LastAssigned[k],
			})
		}
	}

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"cumulative_count", "updated_at"}),
	}).Create(&ledgerRows).Error; err != nil {
		return err
	}

	if len(rotationRows) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "shift_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"count", "last_assigned"}),
	}).Create(&rotationRows).Error
}
