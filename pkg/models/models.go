package models

import "time"

// Tier identifies one of the three on-call rotation groups
type Tier string

const (
	TierTwo     Tier = "tier2"
	TierThree   Tier = "tier3"
	TierUpgrade Tier = "upgrade"
)

// TierOrder is the canonical tier ordering used for roster positions and exports
var TierOrder = []Tier{TierTwo, TierThree, TierUpgrade}

// ShiftType tags a slot within a tier's day or week
type ShiftType string

const (
	ShiftMorning ShiftType = "morning"
	ShiftEvening ShiftType = "evening"
	ShiftFull    ShiftType = "full"
)

// Cadence describes how often a shift recurs
type Cadence string

const (
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
)

// ShiftKey returns the rotation key for a tier and shift type, e.g. "tier3-morning"
func ShiftKey(tier Tier, st ShiftType) string {
	return string(tier) + "-" + string(st)
}

// ShiftDefinition describes one recurring shift slot
type ShiftDefinition struct {
	Tier      Tier      `json:"tier"`
	Type      ShiftType `json:"shift_type"`
	Cadence   Cadence   `json:"cadence"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Timezone  string    `json:"timezone"`
	TimeLabel string    `json:"time_label"`
}

// Key returns the definition's rotation key
func (d ShiftDefinition) Key() string {
	return ShiftKey(d.Tier, d.Type)
}

// DefaultShiftDefinitions returns the five live shift slots
func DefaultShiftDefinitions() []ShiftDefinition {
	return []ShiftDefinition{
		{Tier: TierTwo, Type: ShiftMorning, Cadence: CadenceDaily, Start: "11:00", End: "17:00", Timezone: "EST", TimeLabel: "11:00am-5:00pm EST"},
		{Tier: TierTwo, Type: ShiftEvening, Cadence: CadenceDaily, Start: "17:00", End: "23:00", Timezone: "EST", TimeLabel: "5:00pm-11:00pm EST"},
		{Tier: TierThree, Type: ShiftMorning, Cadence: CadenceWeekly, Start: "11:00", End: "17:00", Timezone: "EST", TimeLabel: "11:00am-5:00pm EST"},
		{Tier: TierThree, Type: ShiftEvening, Cadence: CadenceWeekly, Start: "17:00", End: "23:00", Timezone: "EST", TimeLabel: "5:00pm-11:00pm EST"},
		{Tier: TierUpgrade, Type: ShiftFull, Cadence: CadenceWeekly, Start: "12:00", End: "20:30", Timezone: "EST", TimeLabel: "12:00pm-8:30pm EST"},
	}
}

// ShiftDefinitionFor looks up the live definition for a tier and shift type
func ShiftDefinitionFor(tier Tier, st ShiftType) (ShiftDefinition, bool) {
	for _, d := range DefaultShiftDefinitions() {
		if d.Tier == tier && d.Type == st {
			return d, true
		}
	}
	return ShiftDefinition{}, false
}

// Assignment records one user covering one schedulable unit. Unit is the
// calendar date for daily cadence and the week's Monday for weekly cadence.
type Assignment struct {
	Unit        time.Time `json:"unit"`
	Tier        Tier      `json:"tier"`
	Type        ShiftType `json:"shift_type"`
	Cadence     Cadence   `json:"cadence"`
	UserID      string    `json:"user_id"`
	IsDouble    bool      `json:"is_double,omitempty"`
	IsEmergency bool      `json:"is_emergency,omitempty"`
}

// Key returns the rotation key this assignment belongs to
func (a Assignment) Key() string {
	return ShiftKey(a.Tier, a.Type)
}

// LastDay returns the final calendar day the assignment covers
func (a Assignment) LastDay() time.Time {
	if a.Cadence == CadenceWeekly {
		return a.Unit.AddDate(0, 0, 6)
	}
	return a.Unit
}

// Days lists every calendar day the assignment covers
func (a Assignment) Days() []time.Time {
	days := []time.Time{a.Unit}
	if a.Cadence == CadenceWeekly {
		for i := 1; i < 7; i++ {
			days = append(days, a.Unit.AddDate(0, 0, i))
		}
	}
	return days
}

// Covers reports whether the assignment spans the given calendar day
func (a Assignment) Covers(day time.Time) bool {
	return !day.Before(a.Unit) && !day.After(a.LastDay())
}

// Overlaps reports whether two assignments share at least one calendar day
func (a Assignment) Overlaps(b Assignment) bool {
	return !a.Unit.After(b.LastDay()) && !b.Unit.After(a.LastDay())
}

// PTORange is an inclusive span of days a user is off
type PTORange struct {
	UserID string    `json:"user_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Raw    string    `json:"raw,omitempty"`
}

// Contains reports whether the given day falls inside the range
func (p PTORange) Contains(day time.Time) bool {
	return !day.Before(p.Start) && !day.After(p.End)
}

// LedgerEntry holds one user's fairness counters
type LedgerEntry struct {
	UserID          string               `json:"user_id"`
	MonthCount      int                  `json:"month_count"`
	CumulativeCount int                  `json:"cumulative_count"`
	ShiftTypeCounts map[string]int       `json:"shift_type_counts"`
	LastAssigned    map[string]time.Time `json:"last_assigned"`
}

// Warning kinds reported by the generator and validator
const (
	WarnMalformedPTO     = "malformed_pto_range"
	WarnBackToBack       = "back_to_back"
	WarnRotationCap      = "rotation_cap_exceeded"
	WarnCrossTier        = "cross_tier"
	WarnDoubleShift      = "double_shift"
	WarnEmergency        = "emergency_coverage"
	WarnPTOViolation     = "pto_violation"
	WarnUnfilled         = "unfilled"
	WarnUpgradeUnfilled  = "upgrade_unfilled"
	WarnDoubleBooking    = "double_booking"
	WarnImbalance        = "shift_imbalance"
	WarnRotationPriority = "rotation_priority"
)

// Warning flags a degraded decision or policy violation without blocking the schedule
type Warning struct {
	Kind    string    `json:"kind"`
	Unit    time.Time `json:"unit"`
	Tier    Tier      `json:"tier,omitempty"`
	Type    ShiftType `json:"shift_type,omitempty"`
	Users   []string  `json:"users,omitempty"`
	Message string    `json:"message"`
}
