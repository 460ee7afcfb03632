package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arnavshah/oncall-rota-go/pkg/models"
)

// Availability answers time-off queries for one generation run
type Availability struct {
	ranges map[string][]models.PTORange
}

// NewAvailability indexes parsed PTO ranges by user
func NewAvailability(ranges []models.PTORange) *Availability {
	a := &Availability{ranges: make(map[string][]models.PTORange)}
	for _, r := range ranges {
		a.ranges[r.UserID] = append(a.ranges[r.UserID], r)
	}
	return a
}

// ParsePTO normalizes raw per-user range lists into an Availability. A
// malformed range voids the owning user's PTO entirely for the run and
// records a warning; other users are unaffected.
func ParsePTO(raw map[string][]string) (*Availability, []models.Warning) {
	users := make([]string, 0, len(raw))
	for user := range raw {
		users = append(users, user)
	}
	sort.Strings(users)

	var ranges []models.PTORange
	var warnings []models.Warning
	for _, user := range users {
		var parsed []models.PTORange
		ok := true
		for _, s := range raw[user] {
			if strings.TrimSpace(s) == "" {
				continue
			}
			r, err := ParsePTORange(user, s)
			if err != nil {
				warnings = append(warnings, models.Warning{
					Kind:    models.WarnMalformedPTO,
					Users:   []string{user},
					Message: fmt.Sprintf("ignoring all time off for %s: %v", user, err),
				})
				ok = false
				break
			}
			parsed = append(parsed, r)
		}
		if ok {
			ranges = append(ranges, parsed...)
		}
	}
	return NewAvailability(ranges), warnings
}

// ParsePTORange normalizes one range string such as "05/03/2024-09/03/2024".
// Endpoints prefer a month-first reading; if either endpoint's first
// component exceeds 12 the whole range is read day-first. A bare date stands
// for a one-day range.
func ParsePTORange(userID, s string) (models.PTORange, error) {
	raw := strings.TrimSpace(s)
	parts := strings.Split(raw, "-")
	if len(parts) > 2 {
		return models.PTORange{}, fmt.Errorf("%w: %q", ErrMalformedPTORange, raw)
	}

	startComp, err := dateComponents(parts[0])
	if err != nil {
		return models.PTORange{}, fmt.Errorf("%w: %q: %v", ErrMalformedPTORange, raw, err)
	}
	endComp := startComp
	if len(parts) == 2 {
		endComp, err = dateComponents(parts[1])
		if err != nil {
			return models.PTORange{}, fmt.Errorf("%w: %q: %v", ErrMalformedPTORange, raw, err)
		}
	}

	dayFirst := startComp[0] > 12 || endComp[0] > 12
	start, err := composeDate(startComp, dayFirst)
	if err != nil {
		return models.PTORange{}, fmt.Errorf("%w: %q: %v", ErrMalformedPTORange, raw, err)
	}
	end, err := composeDate(endComp, dayFirst)
	if err != nil {
		return models.PTORange{}, fmt.Errorf("%w: %q: %v", ErrMalformedPTORange, raw, err)
	}
	if start.After(end) {
		return models.PTORange{}, fmt.Errorf("%w: %q: start after end", ErrMalformedPTORange, raw)
	}
	return models.PTORange{UserID: userID, Start: start, End: end, Raw: raw}, nil
}

// dateComponents splits one endpoint into its three numeric parts
func dateComponents(s string) ([3]int, error) {
	var comp [3]int
	fields := strings.Split(strings.TrimSpace(s), "/")
	if len(fields) != 3 {
		return comp, fmt.Errorf("%q is not D/M/Y or M/D/Y", s)
	}
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 1 {
			return comp, fmt.Errorf("bad date component %q", f)
		}
		comp[i] = n
	}
	return comp, nil
}

// composeDate builds a calendar day from endpoint components, rejecting
// dates that do not exist
func composeDate(comp [3]int, dayFirst bool) (time.Time, error) {
	month, day := comp[0], comp[1]
	if dayFirst {
		month, day = day, month
	}
	if month > 12 {
		return time.Time{}, fmt.Errorf("month %d out of range", month)
	}
	d := Date(comp[2], time.Month(month), day)
	if d.Day() != day || d.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("no such date %02d/%02d/%04d", day, month, comp[2])
	}
	return d, nil
}

// SplitRanges breaks a comma-separated PTO field into individual range strings
func SplitRanges(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsAvailable reports whether the user is free of time off for every day
// from first through last inclusive
func (a *Availability) IsAvailable(userID string, first, last time.Time) bool {
	for _, r := range a.ranges[userID] {
		if !first.After(r.End) && !r.Start.After(last) {
			return false
		}
	}
	return true
}

// PTODayCount counts the user's distinct time-off days inside the target
// month. Overlapping ranges count each day once.
func (a *Availability) PTODayCount(userID string, year, month int) int {
	first := Date(year, time.Month(month), 1)
	last := first.AddDate(0, 1, -1)
	days := make(map[time.Time]bool)
	for _, r := range a.ranges[userID] {
		lo, hi := r.Start, r.End
		if lo.Before(first) {
			lo = first
		}
		if hi.After(last) {
			hi = last
		}
		for d := lo; !d.After(hi); d = d.AddDate(0, 0, 1) {
			days[d] = true
		}
	}
	return len(days)
}
