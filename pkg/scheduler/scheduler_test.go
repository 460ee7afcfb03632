package scheduler

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/arnavshah/oncall-rota-go/pkg/models"
)

func findAssignment(as []models.Assignment, tier models.Tier, st models.ShiftType, unit time.Time) (models.Assignment, bool) {
	for _, a := range as {
		if a.Tier == tier && a.Type == st && a.Unit.Equal(unit) {
			return a, true
		}
	}
	return models.Assignment{}, false
}

func kindCount(warnings []models.Warning, kind string) int {
	n := 0
	for _, w := range warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

func TestGenerate_TwoUserDailyRotation(t *testing.T) {
	roster := models.NewRosterFromLists([]string{"alice", "bob"}, nil, nil)
	s := New(roster, nil, nil)

	result, err := s.Generate(2024, 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(result.Assignments) != 62 {
		t.Errorf("Expected 62 assignments for March, got %d", len(result.Assignments))
	}
	if len(result.Report) != 0 {
		t.Errorf("Expected no warnings, got %d: %v", len(result.Report), result.Report)
	}

	// Mornings alternate starting from roster order, evenings take whoever
	// is left that day.
	for day := 1; day <= 31; day++ {
		unit := Date(2024, time.March, day)
		morning, ok := findAssignment(result.Assignments, models.TierTwo, models.ShiftMorning, unit)
		if !ok {
			t.Fatalf("No tier2 morning assignment on %s", unit.Format("2006-01-02"))
		}
		evening, ok := findAssignment(result.Assignments, models.TierTwo, models.ShiftEvening, unit)
		if !ok {
			t.Fatalf("No tier2 evening assignment on %s", unit.Format("2006-01-02"))
		}

		wantMorning := "alice"
		if day%2 == 0 {
			wantMorning = "bob"
		}
		if morning.UserID != wantMorning {
			t.Errorf("Day %d morning: expected %s, got %s", day, wantMorning, morning.UserID)
		}
		if evening.UserID == morning.UserID {
			t.Errorf("Day %d: same user holds both tier2 shifts", day)
		}
	}

	for _, user := range []string{"alice", "bob"} {
		entry := result.Ledger.Entry(user)
		if entry.MonthCount != 31 {
			t.Errorf("Expected %s to end the month with 31 shifts, got %d", user, entry.MonthCount)
		}
		if entry.CumulativeCount != 31 {
			t.Errorf("Expected %s cumulative count 31, got %d", user, entry.CumulativeCount)
		}
	}
}

func TestGenerate_WeeklyRotationAlternates(t *testing.T) {
	roster := models.NewRosterFromLists(nil, []string{"eve", "frank"}, nil)
	s := New(roster, nil, nil)

	// March 2024 spans five Monday-Sunday weeks.
	result, err := s.Generate(2024, 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	weeks := MonthWeeks(2024, 3)
	if len(weeks) != 5 {
		t.Fatalf("Expected 5 weeks, got %d", len(weeks))
	}

	wantMorning := []string{"eve", "frank", "eve", "frank", "eve"}
	wantEvening := []string{"frank", "eve", "frank", "eve", "frank"}
	for i, week := range weeks {
		morning, ok := findAssignment(result.Assignments, models.TierThree, models.ShiftMorning, week.Start)
		if !ok {
			t.Fatalf("No tier3 morning assignment for week of %s", week.Start.Format("2006-01-02"))
		}
		if morning.UserID != wantMorning[i] {
			t.Errorf("Week %d morning: expected %s, got %s", i+1, wantMorning[i], morning.UserID)
		}
		evening, ok := findAssignment(result.Assignments, models.TierThree, models.ShiftEvening, week.Start)
		if !ok {
			t.Fatalf("No tier3 evening assignment for week of %s", week.Start.Format("2006-01-02"))
		}
		if evening.UserID != wantEvening[i] {
			t.Errorf("Week %d evening: expected %s, got %s", i+1, wantEvening[i], evening.UserID)
		}
	}

	// The fifth week forces a third unit on someone; both cap relaxations
	// are reported, and nothing else is.
	if got := kindCount(result.Report, models.WarnRotationCap); got != 2 {
		t.Errorf("Expected 2 rotation cap warnings, got %d", got)
	}
	if len(result.Report) != 2 {
		t.Errorf("Expected only the cap warnings, got %v", result.Report)
	}
}

func TestGenerate_SoloUserFullMonthPTO(t *testing.T) {
	roster := models.NewRosterFromLists([]string{"solo"}, nil, nil)
	pto := map[string][]string{"solo": {"03/01/2024-03/31/2024"}}
	s := New(roster, pto, nil)

	result, err := s.Generate(2024, 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(result.Assignments) != 62 {
		t.Fatalf("Expected every tier2 unit filled, got %d of 62", len(result.Assignments))
	}
	for _, a := range result.Assignments {
		if a.UserID != "solo" {
			t.Errorf("Expected solo on every unit, got %s", a.UserID)
		}
		if !a.IsEmergency {
			t.Errorf("Expected emergency flag on %s %s", a.Key(), a.Unit.Format("2006-01-02"))
		}
		if a.Type == models.ShiftEvening && !a.IsDouble {
			t.Errorf("Evening on %s should carry the double flag", a.Unit.Format("2006-01-02"))
		}
	}

	if got := kindCount(result.Report, models.WarnEmergency); got != 62 {
		t.Errorf("Expected 62 emergency warnings, got %d", got)
	}
	if got := kindCount(result.Report, models.WarnPTOViolation); got != 62 {
		t.Errorf("Expected 62 PTO violation warnings, got %d", got)
	}
}

func TestGenerate_CrossTierThenDoubleFallback(t *testing.T) {
	roster := models.NewRosterFromLists([]string{"amy", "ben"}, []string{"ted", "uma", "vic"}, nil)
	pto := map[string][]string{
		"amy": {"03/05/2024"},
		"ben": {"03/05/2024"},
	}
	s := New(roster, pto, nil)

	result, err := s.Generate(2024, 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// March 5 falls in the week of March 4, where uma holds no weekly
	// shift: she is the only cross-tier candidate for the morning.
	day := Date(2024, time.March, 5)
	morning, ok := findAssignment(result.Assignments, models.TierTwo, models.ShiftMorning, day)
	if !ok {
		t.Fatal("No tier2 morning assignment on March 5")
	}
	if morning.UserID != "uma" {
		t.Errorf("Expected uma to cross-cover the morning, got %s", morning.UserID)
	}
	if morning.IsDouble || morning.IsEmergency {
		t.Errorf("Cross-tier coverage should carry no flags, got %+v", morning)
	}

	// With uma consumed, the evening can only be a double shift.
	evening, ok := findAssignment(result.Assignments, models.TierTwo, models.ShiftEvening, day)
	if !ok {
		t.Fatal("No tier2 evening assignment on March 5")
	}
	if !evening.IsDouble {
		t.Errorf("Expected a double-shift evening, got %+v", evening)
	}
	if evening.IsEmergency {
		t.Error("Evening should not need the emergency path")
	}

	if kindCount(result.Report, models.WarnCrossTier) == 0 {
		t.Error("Expected a cross-tier warning")
	}
	if kindCount(result.Report, models.WarnDoubleShift) == 0 {
		t.Error("Expected a double-shift warning")
	}

	// Nobody with time off may hold an unflagged assignment.
	for _, a := range result.Assignments {
		if !a.IsEmergency && !s.avail.IsAvailable(a.UserID, a.Unit, a.LastDay()) {
			t.Errorf("%s holds %s over time off without the emergency flag", a.UserID, a.Key())
		}
	}
}

func TestGenerate_UpgradeWeekLeftUnassigned(t *testing.T) {
	roster := models.NewRosterFromLists(nil, nil, []string{"walt"})
	pto := map[string][]string{"walt": {"02/26/2024-03/03/2024"}}
	s := New(roster, pto, nil)

	result, err := s.Generate(2024, 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// First week is walt's PTO: the unit stays empty rather than falling
	// back, the remaining four go to walt.
	if len(result.Assignments) != 4 {
		t.Fatalf("Expected 4 upgrade assignments, got %d", len(result.Assignments))
	}
	weeks := MonthWeeks(2024, 3)
	if _, ok := findAssignment(result.Assignments, models.TierUpgrade, models.ShiftFull, weeks[0].Start); ok {
		t.Error("First upgrade week should be unassigned")
	}
	for _, a := range result.Assignments {
		if a.UserID != "walt" || a.IsEmergency || a.IsDouble {
			t.Errorf("Unexpected assignment %+v", a)
		}
	}

	if got := kindCount(result.Report, models.WarnUpgradeUnfilled); got != 1 {
		t.Errorf("Expected 1 unfilled upgrade warning, got %d", got)
	}
	if got := kindCount(result.Report, models.WarnBackToBack); got != 3 {
		t.Errorf("Expected 3 back-to-back warnings for a solo rotation, got %d", got)
	}
	if got := kindCount(result.Report, models.WarnRotationCap); got != 2 {
		t.Errorf("Expected 2 cap warnings once walt passes two units, got %d", got)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	roster := models.NewRosterFromLists([]string{"alice", "bob", "carol"}, []string{"dave", "erin"}, []string{"fred"})
	pto := map[string][]string{
		"alice": {"03/11/2024-03/15/2024"},
		"dave":  {"18/03/2024-24/03/2024"},
	}

	s := New(roster, pto, nil)
	first, err := s.Generate(2024, 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := s.Generate(2024, 3)
	if err != nil {
		t.Fatalf("Second generate failed: %v", err)
	}

	if !reflect.DeepEqual(first.Assignments, second.Assignments) {
		t.Error("Repeated generation produced different assignments")
	}
	if !reflect.DeepEqual(first.Report, second.Report) {
		t.Error("Repeated generation produced different reports")
	}

	// A fresh scheduler over the same inputs agrees too.
	third, err := New(roster, pto, nil).Generate(2024, 3)
	if err != nil {
		t.Fatalf("Fresh generate failed: %v", err)
	}
	if !reflect.DeepEqual(first.Assignments, third.Assignments) {
		t.Error("Fresh scheduler produced different assignments")
	}
}

func TestGenerate_InvalidMonth(t *testing.T) {
	s := New(models.NewRoster(), nil, nil)

	for _, tc := range []struct{ year, month int }{
		{2024, 0},
		{2024, 13},
		{0, 5},
	} {
		if _, err := s.Generate(tc.year, tc.month); !errors.Is(err, ErrInvalidMonth) {
			t.Errorf("Generate(%d, %d): expected ErrInvalidMonth, got %v", tc.year, tc.month, err)
		}
	}
}

func TestGenerate_SeededLedgerBiasesSelection(t *testing.T) {
	roster := models.NewRosterFromLists([]string{"alice", "bob"}, nil, nil)
	seed := NewLedgerFromEntries([]models.LedgerEntry{
		{UserID: "alice", CumulativeCount: 5},
	})
	s := New(roster, nil, seed)

	result, err := s.Generate(2024, 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	morning, _ := findAssignment(result.Assignments, models.TierTwo, models.ShiftMorning, Date(2024, time.March, 1))
	if morning.UserID != "bob" {
		t.Errorf("Expected bob to open the month with the lighter history, got %s", morning.UserID)
	}
	if seed.Entry("alice").MonthCount != 0 || seed.Entry("alice").CumulativeCount != 5 {
		t.Error("Generate mutated the seed ledger")
	}
}

func TestGenerate_MonthCountStartsAtZeroAfterImport(t *testing.T) {
	prior := []models.Assignment{
		{Unit: Date(2024, time.February, 5), Tier: models.TierTwo, Type: models.ShiftMorning, Cadence: models.CadenceDaily, UserID: "carol"},
		{Unit: Date(2024, time.February, 6), Tier: models.TierTwo, Type: models.ShiftMorning, Cadence: models.CadenceDaily, UserID: "carol"},
		{Unit: Date(2024, time.February, 5), Tier: models.TierTwo, Type: models.ShiftEvening, Cadence: models.CadenceDaily, UserID: "carol"},
	}
	ledger := NewLedger()
	ledger.UpdateFromSchedule(prior)

	if got := ledger.Entry("carol").CumulativeCount; got != 3 {
		t.Fatalf("Expected cumulative count 3 after import, got %d", got)
	}

	roster := models.NewRosterFromLists([]string{"carol", "dan"}, nil, nil)
	result, err := New(roster, nil, ledger).Generate(2024, 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	carol := result.Ledger.Entry("carol")
	if carol.MonthCount != 31 {
		t.Errorf("Expected March month count 31, got %d", carol.MonthCount)
	}
	if carol.CumulativeCount != 34 {
		t.Errorf("Expected cumulative 3 imported + 31 new, got %d", carol.CumulativeCount)
	}
}

func TestGenerate_EmptyTiersProduceNoUnits(t *testing.T) {
	result, err := New(models.NewRoster(), nil, nil).Generate(2024, 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(result.Assignments) != 0 || len(result.Report) != 0 {
		t.Errorf("Expected an empty, silent schedule, got %d assignments and %d warnings",
			len(result.Assignments), len(result.Report))
	}
}
