package scheduler

import (
	"fmt"
	"strings"

	"github.com/arnavshah/oncall-rota-go/pkg/models"
)

// extendedPTODays is the time-off threshold beyond which a user drops out of
// the fairness spread comparison. Extended leave never affects eligibility
// for assignment, only how balance is measured.
const extendedPTODays = 2

// checkAssignments runs the post-generation policy checks over a finished
// assignment set. All findings are advisory.
func (s *Scheduler) checkAssignments(assignments []models.Assignment, l *Ledger, year, month int) []models.Warning {
	var warnings []models.Warning
	warnings = append(warnings, s.checkPTOViolations(assignments)...)
	warnings = append(warnings, checkDoubleBookings(assignments)...)
	warnings = append(warnings, s.checkImbalance(l, year, month)...)
	warnings = append(warnings, s.checkRotationPriority(l, year, month)...)
	return warnings
}

// checkPTOViolations flags non-emergency assignments that land on the
// holder's recorded time off
func (s *Scheduler) checkPTOViolations(assignments []models.Assignment) []models.Warning {
	var warnings []models.Warning
	for _, a := range assignments {
		if a.IsEmergency {
			continue
		}
		if !s.avail.IsAvailable(a.UserID, a.Unit, a.LastDay()) {
			warnings = append(warnings, models.Warning{
				Kind: models.WarnPTOViolation, Unit: a.Unit, Tier: a.Tier, Type: a.Type, Users: []string{a.UserID},
				Message: fmt.Sprintf("%s holds %s over recorded time off without an emergency flag", a.UserID, a.Key()),
			})
		}
	}
	return warnings
}

// checkDoubleBookings flags overlapping same-user assignments where neither
// side carries the double flag
func checkDoubleBookings(assignments []models.Assignment) []models.Warning {
	byUser := make(map[string][]models.Assignment)
	var users []string
	for _, a := range assignments {
		if _, ok := byUser[a.UserID]; !ok {
			users = append(users, a.UserID)
		}
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}

	var warnings []models.Warning
	for _, user := range users {
		held := byUser[user]
		for i := 0; i < len(held); i++ {
			for j := i + 1; j < len(held); j++ {
				if held[i].Overlaps(held[j]) && !held[i].IsDouble && !held[j].IsDouble {
					warnings = append(warnings, models.Warning{
						Kind: models.WarnDoubleBooking, Unit: held[j].Unit, Tier: held[j].Tier, Type: held[j].Type, Users: []string{user},
						Message: fmt.Sprintf("%s holds %s and %s on overlapping days without a double flag", user, held[i].Key(), held[j].Key()),
					})
				}
			}
		}
	}
	return warnings
}

// checkImbalance flags tiers whose month counts spread wider than the
// configured tolerance across users without extended time off
func (s *Scheduler) checkImbalance(l *Ledger, year, month int) []models.Warning {
	var warnings []models.Warning
	for _, tier := range models.TierOrder {
		var lo, hi int
		var counted []string
		for _, u := range s.Roster.Tier(tier) {
			if s.avail.PTODayCount(u.ID, year, month) > extendedPTODays {
				continue
			}
			c := l.peek(u.ID).MonthCount
			if len(counted) == 0 || c < lo {
				lo = c
			}
			if len(counted) == 0 || c > hi {
				hi = c
			}
			counted = append(counted, u.ID)
		}
		if len(counted) > 1 && hi-lo > s.Tolerance {
			warnings = append(warnings, models.Warning{
				Kind: models.WarnImbalance, Tier: tier, Users: counted,
				Message: fmt.Sprintf("%s month counts spread %d wider than tolerance %d", tier, hi-lo, s.Tolerance),
			})
		}
	}
	return warnings
}

// checkRotationPriority flags weekly rotations where someone drew a second
// unit of a shift type while an available candidate still has none
func (s *Scheduler) checkRotationPriority(l *Ledger, year, month int) []models.Warning {
	weeks := MonthWeeks(year, month)
	var warnings []models.Warning
	for _, def := range weeklyDefinitions() {
		key := def.Key()
		var atCap, waiting []string
		for _, u := range s.Roster.Tier(def.Tier) {
			if !s.availableAnyWeek(u.ID, weeks) {
				continue
			}
			switch c := l.MonthTypeCount(u.ID, key); {
			case c >= weeklyShiftCap:
				atCap = append(atCap, u.ID)
			case c == 0:
				waiting = append(waiting, u.ID)
			}
		}
		if len(atCap) > 0 && len(waiting) > 0 {
			warnings = append(warnings, models.Warning{
				Kind: models.WarnRotationPriority, Tier: def.Tier, Type: def.Type, Users: append(atCap, waiting...),
				Message: fmt.Sprintf("%s drew two %s units while %s has none", strings.Join(atCap, ", "), key, strings.Join(waiting, ", ")),
			})
		}
	}
	return warnings
}

// availableAnyWeek reports whether the user has at least one fully free week
func (s *Scheduler) availableAnyWeek(userID string, weeks []Week) bool {
	for _, w := range weeks {
		if s.avail.IsAvailable(userID, w.Start, w.End) {
			return true
		}
	}
	return false
}
