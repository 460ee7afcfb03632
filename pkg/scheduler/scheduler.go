package scheduler

import (
	"fmt"
	"time"

	"github.com/arnavshah/oncall-rota-go/pkg/models"
)

// weeklyShiftCap is the most units of one weekly shift type a user should
// draw in a single month
const weeklyShiftCap = 2

// Scheduler generates one month of on-call assignments from a roster, a
// time-off calendar and a seed fairness ledger
type Scheduler struct {
	Roster    *models.Roster
	Tolerance int

	avail       *Availability
	seed        *Ledger
	ptoWarnings []models.Warning
}

// Result is one generation run's output: the assignment set, the updated
// ledger and the ordered warning report
type Result struct {
	Assignments []models.Assignment
	Ledger      *Ledger
	Report      []models.Warning
}

// New creates a scheduler. Raw PTO ranges are normalized up front; a
// malformed range voids the owning user's PTO and surfaces on every run's
// report. A nil seed ledger means no history.
func New(roster *models.Roster, pto map[string][]string, seed *Ledger) *Scheduler {
	avail, warnings := ParsePTO(pto)
	if seed == nil {
		seed = NewLedger()
	}
	return &Scheduler{
		Roster:      roster,
		Tolerance:   1,
		avail:       avail,
		seed:        seed,
		ptoWarnings: warnings,
	}
}

// Generate produces the target month's assignments. Weekly units are filled
// first, week by week in upgrade, tier3-morning, tier3-evening order, then
// the tier2 day slots for every date of the month. The seed ledger is never
// mutated, so identical inputs always yield identical output.
func (s *Scheduler) Generate(year, month int) (*Result, error) {
	if month < 1 || month > 12 || year < 1 {
		return nil, fmt.Errorf("%w: %02d/%04d", ErrInvalidMonth, month, year)
	}

	r := &run{
		sched:  s,
		ledger: s.seed.Clone(),
		held:   make(map[string][]models.Assignment),
	}
	r.ledger.ResetMonth()
	r.warnings = append(r.warnings, s.ptoWarnings...)

	for _, week := range MonthWeeks(year, month) {
		for _, def := range weeklyDefinitions() {
			r.assignUnit(def, week.Start)
		}
	}
	for _, day := range MonthDays(year, month) {
		for _, def := range dailyDefinitions() {
			r.assignUnit(def, day)
		}
	}

	report := append(r.warnings, s.checkAssignments(r.assignments, r.ledger, year, month)...)
	return &Result{Assignments: r.assignments, Ledger: r.ledger, Report: report}, nil
}

// Validate re-checks a finished assignment set against the scheduler's
// roster and PTO calendar, reporting advisory warnings only. The schedule is
// never mutated.
func (s *Scheduler) Validate(year, month int, assignments []models.Assignment) ([]models.Warning, error) {
	if month < 1 || month > 12 || year < 1 {
		return nil, fmt.Errorf("%w: %02d/%04d", ErrInvalidMonth, month, year)
	}
	l := NewLedger()
	for _, a := range assignments {
		l.Apply(a)
	}
	report := append([]models.Warning(nil), s.ptoWarnings...)
	report = append(report, s.checkAssignments(assignments, l, year, month)...)
	return report, nil
}

// weeklyDefinitions returns the weekly slots in assignment order: the
// upgrade week first, then the tier3 rotations
func weeklyDefinitions() []models.ShiftDefinition {
	var upgrade, rest []models.ShiftDefinition
	for _, d := range models.DefaultShiftDefinitions() {
		if d.Cadence != models.CadenceWeekly {
			continue
		}
		if d.Tier == models.TierUpgrade {
			upgrade = append(upgrade, d)
		} else {
			rest = append(rest, d)
		}
	}
	return append(upgrade, rest...)
}

// dailyDefinitions returns the day slots in assignment order
func dailyDefinitions() []models.ShiftDefinition {
	var defs []models.ShiftDefinition
	for _, d := range models.DefaultShiftDefinitions() {
		if d.Cadence == models.CadenceDaily {
			defs = append(defs, d)
		}
	}
	return defs
}

// otherTier maps each non-upgrade tier to its cross-coverage partner
func otherTier(t models.Tier) models.Tier {
	if t == models.TierTwo {
		return models.TierThree
	}
	return models.TierTwo
}

// run carries one generation pass's mutable state
type run struct {
	sched       *Scheduler
	ledger      *Ledger
	assignments []models.Assignment
	warnings    []models.Warning
	held        map[string][]models.Assignment
}

func (r *run) warn(w models.Warning) {
	r.warnings = append(r.warnings, w)
}

// holdsOverlap reports whether the user already covers any day of the span
func (r *run) holdsOverlap(userID string, first, last time.Time) bool {
	for _, a := range r.held[userID] {
		if !a.Unit.After(last) && !first.After(a.LastDay()) {
			return true
		}
	}
	return false
}

// record books an assignment, stamping the double flag whenever the user
// already covers an overlapping span
func (r *run) record(a models.Assignment) {
	if r.holdsOverlap(a.UserID, a.Unit, a.LastDay()) {
		a.IsDouble = true
	}
	r.assignments = append(r.assignments, a)
	r.held[a.UserID] = append(r.held[a.UserID], a)
	r.ledger.Apply(a)
}

// assignUnit dispatches one schedulable unit. A tier with an empty roster
// produces no units at all.
func (r *run) assignUnit(def models.ShiftDefinition, unit time.Time) {
	if len(r.sched.Roster.Tier(def.Tier)) == 0 {
		return
	}
	if def.Cadence == models.CadenceWeekly {
		r.assignWeekly(def, unit)
		return
	}
	r.assignDaily(def, unit)
}

// assignDaily fills one tier2 day slot
func (r *run) assignDaily(def models.ShiftDefinition, day time.Time) {
	var pool []models.User
	for _, u := range r.sched.Roster.Tier(def.Tier) {
		if r.sched.avail.IsAvailable(u.ID, day, day) && !r.holdsOverlap(u.ID, day, day) {
			pool = append(pool, u)
		}
	}
	if len(pool) == 0 {
		r.fallback(def, day, day)
		return
	}

	pick := r.ledger.Rank(pool, def.Key())[0]
	r.record(models.Assignment{Unit: day, Tier: def.Tier, Type: def.Type, Cadence: def.Cadence, UserID: pick.ID})
}

// assignWeekly fills one weekly rotation unit. Users at the monthly cap for
// this shift type sit out, as does last week's holder; either exclusion is
// relaxed, with a warning, when it would empty the candidate set. Among the
// remaining candidates the lowest per-type count goes first, so everyone
// gets one unit of a type before anyone gets two.
func (r *run) assignWeekly(def models.ShiftDefinition, unit time.Time) {
	key := def.Key()
	last := unit.AddDate(0, 0, 6)

	var pool []models.User
	for _, u := range r.sched.Roster.Tier(def.Tier) {
		if r.sched.avail.IsAvailable(u.ID, unit, last) && !r.holdsOverlap(u.ID, unit, last) {
			pool = append(pool, u)
		}
	}
	if len(pool) == 0 {
		if def.Tier == models.TierUpgrade {
			r.warn(models.Warning{
				Kind: models.WarnUpgradeUnfilled, Unit: unit, Tier: def.Tier, Type: def.Type,
				Message: fmt.Sprintf("no upgrade user available for the week of %s, week left unassigned", unit.Format("2006-01-02")),
			})
			return
		}
		r.fallback(def, unit, last)
		return
	}

	capRelaxed := false
	candidates := excludeCapped(pool, r.ledger, key)
	if len(candidates) == 0 {
		candidates = pool
		capRelaxed = true
	}

	restRelaxed := false
	prev := unit.AddDate(0, 0, -7)
	rested := excludeBackToBack(candidates, r.ledger, key, prev)
	if len(rested) == 0 {
		rested = candidates
		restRelaxed = true
	}

	pick := r.ledger.Rank(restrictToLowestTypeCount(rested, r.ledger, key), key)[0]
	r.record(models.Assignment{Unit: unit, Tier: def.Tier, Type: def.Type, Cadence: def.Cadence, UserID: pick.ID})

	if capRelaxed {
		r.warn(models.Warning{
			Kind: models.WarnRotationCap, Unit: unit, Tier: def.Tier, Type: def.Type, Users: []string{pick.ID},
			Message: fmt.Sprintf("%s takes a third %s unit this month, every candidate was at the cap", pick.ID, key),
		})
	}
	if restRelaxed {
		r.warn(models.Warning{
			Kind: models.WarnBackToBack, Unit: unit, Tier: def.Tier, Type: def.Type, Users: []string{pick.ID},
			Message: fmt.Sprintf("%s works consecutive weeks of %s, no rested candidate was available", pick.ID, key),
		})
	}
}

// fallback escalates an empty home candidate set: cross-tier coverage, then
// a double shift, then emergency coverage. Only the emergency path may
// override recorded time off, and it always warns.
func (r *run) fallback(def models.ShiftDefinition, first, last time.Time) {
	key := def.Key()

	var cross []models.User
	for _, u := range r.sched.Roster.Tier(otherTier(def.Tier)) {
		if r.sched.avail.IsAvailable(u.ID, first, last) && !r.holdsOverlap(u.ID, first, last) {
			cross = append(cross, u)
		}
	}
	if len(cross) > 0 {
		pick := r.ledger.Rank(cross, key)[0]
		r.record(models.Assignment{Unit: first, Tier: def.Tier, Type: def.Type, Cadence: def.Cadence, UserID: pick.ID})
		r.warn(models.Warning{
			Kind: models.WarnCrossTier, Unit: first, Tier: def.Tier, Type: def.Type, Users: []string{pick.ID},
			Message: fmt.Sprintf("%s covers %s from the %s roster", pick.ID, key, pick.Tier),
		})
		return
	}

	var doubles []models.User
	for _, tier := range []models.Tier{models.TierTwo, models.TierThree} {
		for _, u := range r.sched.Roster.Tier(tier) {
			if r.sched.avail.IsAvailable(u.ID, first, last) && r.holdsOverlap(u.ID, first, last) {
				doubles = append(doubles, u)
			}
		}
	}
	if len(doubles) > 0 {
		pick := r.ledger.Rank(doubles, key)[0]
		r.record(models.Assignment{Unit: first, Tier: def.Tier, Type: def.Type, Cadence: def.Cadence, UserID: pick.ID, IsDouble: true})
		r.warn(models.Warning{
			Kind: models.WarnDoubleShift, Unit: first, Tier: def.Tier, Type: def.Type, Users: []string{pick.ID},
			Message: fmt.Sprintf("%s doubles up to cover %s", pick.ID, key),
		})
		return
	}

	everyone := r.sched.Roster.All()
	if len(everyone) == 0 {
		r.warn(models.Warning{
			Kind: models.WarnUnfilled, Unit: first, Tier: def.Tier, Type: def.Type,
			Message: fmt.Sprintf("%s on %s left unassigned, the roster is empty", key, first.Format("2006-01-02")),
		})
		return
	}
	pick := r.ledger.Rank(everyone, key)[0]
	r.record(models.Assignment{Unit: first, Tier: def.Tier, Type: def.Type, Cadence: def.Cadence, UserID: pick.ID, IsEmergency: true})
	r.warn(models.Warning{
		Kind: models.WarnEmergency, Unit: first, Tier: def.Tier, Type: def.Type, Users: []string{pick.ID},
		Message: fmt.Sprintf("%s drafted for %s as emergency coverage", pick.ID, key),
	})
	if !r.sched.avail.IsAvailable(pick.ID, first, last) {
		r.warn(models.Warning{
			Kind: models.WarnPTOViolation, Unit: first, Tier: def.Tier, Type: def.Type, Users: []string{pick.ID},
			Message: fmt.Sprintf("%s covers %s over recorded time off", pick.ID, key),
		})
	}
}

// excludeCapped drops users already at the monthly cap for this shift type
func excludeCapped(users []models.User, l *Ledger, key string) []models.User {
	var out []models.User
	for _, u := range users {
		if l.MonthTypeCount(u.ID, key) < weeklyShiftCap {
			out = append(out, u)
		}
	}
	return out
}

// excludeBackToBack drops users who held this shift type the week before
func excludeBackToBack(users []models.User, l *Ledger, key string, prev time.Time) []models.User {
	var out []models.User
	for _, u := range users {
		if !l.LastAssignedUnit(u.ID, key).Equal(prev) {
			out = append(out, u)
		}
	}
	return out
}

// restrictToLowestTypeCount keeps only the candidates holding the minimum
// per-type count for this rotation key
func restrictToLowestTypeCount(users []models.User, l *Ledger, key string) []models.User {
	lowest := l.TypeCount(users[0].ID, key)
	for _, u := range users[1:] {
		if c := l.TypeCount(u.ID, key); c < lowest {
			lowest = c
		}
	}
	var out []models.User
	for _, u := range users {
		if l.TypeCount(u.ID, key) == lowest {
			out = append(out, u)
		}
	}
	return out
}
