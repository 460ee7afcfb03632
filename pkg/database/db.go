package database

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"key"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table. TotalUnits counts assigned
// schedulable units and TotalUsers counts roster members seen per request.
type APIUsage struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	KeyID        uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date         string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount int    `gorm:"default:0" json:"request_count"`
	TotalUnits   int    `gorm:"default:0" json:"total_units"`
	TotalUsers   int    `gorm:"default:0" json:"total_users"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// LedgerRecord represents the ledger_records table: one row per user holding
// the cumulative on-call count carried across months
type LedgerRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"uniqueIndex;not null" json:"user_id"`
	CumulativeCount int       `gorm:"default:0" json:"cumulative_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RotationRecord represents the rotation_records table: one row per user and
// shift key holding the per-shift-type count and the last assigned unit
type RotationRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"uniqueIndex:idx_user_shift;not null" json:"user_id"`
	ShiftKey     string    `gorm:"uniqueIndex:idx_user_shift;not null" json:"shift_key"`
	Count        int       `gorm:"default:0" json:"count"`
	LastAssigned time.Time `json:"last_assigned"`
}

// ScheduleRecord represents the schedule_records table: one generated run
// with its assignment set stored as JSON
type ScheduleRecord struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	RunID           string         `gorm:"uniqueIndex;not null" json:"run_id"`
	Month           int            `gorm:"not null" json:"month"`
	Year            int            `gorm:"not null" json:"year"`
	AssignmentCount int            `gorm:"default:0" json:"assignment_count"`
	WarningCount    int            `gorm:"default:0" json:"warning_count"`
	Assignments     datatypes.JSON `json:"assignments"`
	CreatedAt       time.Time      `json:"created_at"`
}

// InitDB initializes the database connection and migrates the schema
func InitDB() *gorm.DB {
	var db *gorm.DB
	var err error

	dsn := os.Getenv("DATABASE_URL")
	if dsn != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		dbPath := os.Getenv("DATA_PATH")
		if dbPath == "" {
			dbPath = "rota.db"
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	}

	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect database")
	}

	if err := Migrate(db); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate schema")
	}

	return db
}

// OpenSQLite opens a sqlite database at the given path and migrates the schema
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the schema auto-migration for every table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&APIKey{},
		&APIUsage{},
		&MasterUser{},
		&LedgerRecord{},
		&RotationRecord{},
		&ScheduleRecord{},
	)
}
