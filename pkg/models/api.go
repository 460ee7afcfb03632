package models

// LoadUsersInput is the body for the direct roster upload endpoint
type LoadUsersInput struct {
	Tier  string   `json:"tier"`
	Users []string `json:"users"`
}

// GenerateInput is the body for schedule generation requests. PTO maps a user
// to a comma-separated list of date ranges in DD/MM/YYYY or MM/DD/YYYY form.
type GenerateInput struct {
	MonthYear string            `json:"month_year"`
	PTO       map[string]string `json:"pto"`
}

// DayView is one calendar day in the month view
type DayView struct {
	Date     string            `json:"date"`
	FullDate string            `json:"full_date"`
	Shifts   map[string]string `json:"shifts"`
}

// WeekView is one Monday-Sunday row in the month view
type WeekView struct {
	Start string    `json:"start"`
	End   string    `json:"end"`
	Days  []DayView `json:"days"`
}

// GenerateResponse carries the month view, the flat date-keyed schedule map,
// the raw assignments, the run's warning report and the ledger it advanced to
type GenerateResponse struct {
	Month       int                                     `json:"month"`
	Year        int                                     `json:"year"`
	MonthName   string                                  `json:"month_name"`
	Weeks       []WeekView                              `json:"weeks"`
	Schedule    map[string]map[string]map[string]string `json:"schedule"`
	Assignments []Assignment                            `json:"assignments"`
	Warnings    []Warning                               `json:"warnings"`
	Ledger      []LedgerEntry                           `json:"ledger"`
	RunID       string                                  `json:"run_id"`
}

// ScheduleInput is the one-shot scheduling API request: rosters, PTO and an
// optional seed ledger all travel in the request body
type ScheduleInput struct {
	Tier2Users   []string          `json:"tier2_users"`
	Tier3Users   []string          `json:"tier3_users"`
	UpgradeUsers []string          `json:"upgrade_users"`
	MonthYear    string            `json:"month_year"`
	PTO          map[string]string `json:"pto"`
	Ledger       []LedgerEntry     `json:"ledger,omitempty"`
}

// ScheduleResponse is the one-shot scheduling API result
type ScheduleResponse struct {
	Assignments []Assignment  `json:"assignments"`
	Ledger      []LedgerEntry `json:"ledger"`
	Warnings    []Warning     `json:"warnings"`
}

// ValidateInput is the standalone validation API request
type ValidateInput struct {
	Tier2Users   []string          `json:"tier2_users"`
	Tier3Users   []string          `json:"tier3_users"`
	UpgradeUsers []string          `json:"upgrade_users"`
	MonthYear    string            `json:"month_year"`
	PTO          map[string]string `json:"pto"`
	Assignments  []Assignment      `json:"assignments"`
}

// ExportInput is the body for CSV export requests
type ExportInput struct {
	Assignments []Assignment `json:"assignments"`
}

// ImportResponse reports the ledger effect of importing a prior schedule
type ImportResponse struct {
	Imported int           `json:"imported"`
	Ledger   []LedgerEntry `json:"ledger"`
}
