package scheduler

import (
	"sort"
	"time"

	"github.com/arnavshah/oncall-rota-go/pkg/models"
)

// Ledger tracks per-user fairness counters. Cumulative counts, per-type
// counts and last-assigned units persist across runs; month counts and the
// run-scoped per-type counts are reset at the start of each generation.
type Ledger struct {
	entries    map[string]*models.LedgerEntry
	monthTypes map[string]map[string]int
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{
		entries:    make(map[string]*models.LedgerEntry),
		monthTypes: make(map[string]map[string]int),
	}
}

// NewLedgerFromEntries seeds a ledger from persisted entries
func NewLedgerFromEntries(entries []models.LedgerEntry) *Ledger {
	l := NewLedger()
	for _, e := range entries {
		entry := e
		if entry.ShiftTypeCounts == nil {
			entry.ShiftTypeCounts = make(map[string]int)
		}
		if entry.LastAssigned == nil {
			entry.LastAssigned = make(map[string]time.Time)
		}
		l.entries[entry.UserID] = &entry
	}
	return l
}

// Entry returns the user's ledger entry, creating it on first touch
func (l *Ledger) Entry(userID string) *models.LedgerEntry {
	e, ok := l.entries[userID]
	if !ok {
		e = &models.LedgerEntry{
			UserID:          userID,
			ShiftTypeCounts: make(map[string]int),
			LastAssigned:    make(map[string]time.Time),
		}
		l.entries[userID] = e
	}
	return e
}

// peek reads a user's counters without creating an entry
func (l *Ledger) peek(userID string) models.LedgerEntry {
	if e, ok := l.entries[userID]; ok {
		return *e
	}
	return models.LedgerEntry{UserID: userID}
}

// Clone deep-copies the ledger so a generation run never mutates its seed
func (l *Ledger) Clone() *Ledger {
	c := NewLedger()
	for id, e := range l.entries {
		entry := *e
		entry.ShiftTypeCounts = make(map[string]int, len(e.ShiftTypeCounts))
		for k, v := range e.ShiftTypeCounts {
			entry.ShiftTypeCounts[k] = v
		}
		entry.LastAssigned = make(map[string]time.Time, len(e.LastAssigned))
		for k, v := range e.LastAssigned {
			entry.LastAssigned[k] = v
		}
		c.entries[id] = &entry
	}
	for id, counts := range l.monthTypes {
		mt := make(map[string]int, len(counts))
		for k, v := range counts {
			mt[k] = v
		}
		c.monthTypes[id] = mt
	}
	return c
}

// ResetMonth zeroes every month-scoped counter ahead of a generation run
func (l *Ledger) ResetMonth() {
	for _, e := range l.entries {
		e.MonthCount = 0
	}
	l.monthTypes = make(map[string]map[string]int)
}

// Apply records one assignment's effect on the counters
func (l *Ledger) Apply(a models.Assignment) {
	e := l.Entry(a.UserID)
	key := a.Key()
	e.MonthCount++
	e.CumulativeCount++
	e.ShiftTypeCounts[key]++
	if a.Unit.After(e.LastAssigned[key]) {
		e.LastAssigned[key] = a.Unit
	}

	mt := l.monthTypes[a.UserID]
	if mt == nil {
		mt = make(map[string]int)
		l.monthTypes[a.UserID] = mt
	}
	mt[key]++
}

// UpdateFromSchedule folds a previously generated schedule into the
// persistent counters: one cumulative unit per assignment, never touching
// the month counters, which every generation run starts from zero anyway.
func (l *Ledger) UpdateFromSchedule(assignments []models.Assignment) {
	for _, a := range assignments {
		e := l.Entry(a.UserID)
		key := a.Key()
		e.CumulativeCount++
		e.ShiftTypeCounts[key]++
		if a.Unit.After(e.LastAssigned[key]) {
			e.LastAssigned[key] = a.Unit
		}
	}
}

// TypeCount returns the user's persisted count for one rotation key
func (l *Ledger) TypeCount(userID, key string) int {
	if e, ok := l.entries[userID]; ok {
		return e.ShiftTypeCounts[key]
	}
	return 0
}

// MonthTypeCount returns the user's run-scoped count for one rotation key
func (l *Ledger) MonthTypeCount(userID, key string) int {
	return l.monthTypes[userID][key]
}

// LastAssignedUnit returns the user's most recent unit for one rotation key
func (l *Ledger) LastAssignedUnit(userID, key string) time.Time {
	if e, ok := l.entries[userID]; ok {
		return e.LastAssigned[key]
	}
	return time.Time{}
}

// Rank orders candidates for one rotation key: ascending cumulative count,
// then month count, then the key's per-type count, with roster position as
// the deterministic final tie-break. Two runs over identical inputs always
// rank identically.
func (l *Ledger) Rank(candidates []models.User, key string) []models.User {
	ranked := append([]models.User(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := l.peek(ranked[i].ID), l.peek(ranked[j].ID)
		if a.CumulativeCount != b.CumulativeCount {
			return a.CumulativeCount < b.CumulativeCount
		}
		if a.MonthCount != b.MonthCount {
			return a.MonthCount < b.MonthCount
		}
		if a.ShiftTypeCounts[key] != b.ShiftTypeCounts[key] {
			return a.ShiftTypeCounts[key] < b.ShiftTypeCounts[key]
		}
		return ranked[i].Position < ranked[j].Position
	})
	return ranked
}

// Snapshot returns deep copies of the entries sorted by user, ready for
// serialization
func (l *Ledger) Snapshot() []models.LedgerEntry {
	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.LedgerEntry, 0, len(ids))
	for _, id := range ids {
		e := *l.entries[id]
		counts := make(map[string]int, len(e.ShiftTypeCounts))
		for k, v := range e.ShiftTypeCounts {
			counts[k] = v
		}
		e.ShiftTypeCounts = counts
		lastAssigned := make(map[string]time.Time, len(e.LastAssigned))
		for k, v := range e.LastAssigned {
			lastAssigned[k] = v
		}
		e.LastAssigned = lastAssigned
		out = append(out, e)
	}
	return out
}
