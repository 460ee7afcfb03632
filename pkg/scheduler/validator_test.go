package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arnavshah/oncall-rota-go/pkg/models"
)

func warningsOfKind(warnings []models.Warning, kind string) []models.Warning {
	var out []models.Warning
	for _, w := range warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

func TestValidate_FlagsUnmarkedPTOViolation(t *testing.T) {
	roster := models.NewRosterFromLists([]string{"alice", "bob"}, nil, nil)
	s := New(roster, map[string][]string{"alice": {"03/10/2024"}}, nil)

	assignments := []models.Assignment{
		{Unit: Date(2024, time.March, 10), Tier: models.TierTwo, Type: models.ShiftMorning, Cadence: models.CadenceDaily, UserID: "alice"},
		{Unit: Date(2024, time.March, 10), Tier: models.TierTwo, Type: models.ShiftEvening, Cadence: models.CadenceDaily, UserID: "bob"},
	}

	warnings, err := s.Validate(2024, 3, assignments)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, models.WarnPTOViolation, warnings[0].Kind)
	require.Equal(t, []string{"alice"}, warnings[0].Users)

	// The emergency flag accounts for the conflict, so the same
	// assignment passes once it carries one.
	assignments[0].IsEmergency = true
	warnings, err = s.Validate(2024, 3, assignments)
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidate_FlagsUnmarkedDoubleBooking(t *testing.T) {
	roster := models.NewRosterFromLists([]string{"alice", "bob"}, nil, nil)
	s := New(roster, nil, nil)
	s.Tolerance = 5

	assignments := []models.Assignment{
		{Unit: Date(2024, time.March, 5), Tier: models.TierTwo, Type: models.ShiftMorning, Cadence: models.CadenceDaily, UserID: "alice"},
		{Unit: Date(2024, time.March, 5), Tier: models.TierTwo, Type: models.ShiftEvening, Cadence: models.CadenceDaily, UserID: "alice"},
	}

	warnings, err := s.Validate(2024, 3, assignments)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, models.WarnDoubleBooking, warnings[0].Kind)
	require.Equal(t, []string{"alice"}, warnings[0].Users)

	assignments[1].IsDouble = true
	warnings, err = s.Validate(2024, 3, assignments)
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidate_FlagsImbalanceBeyondTolerance(t *testing.T) {
	roster := models.NewRosterFromLists([]string{"alice", "bob", "carol"}, nil, nil)
	s := New(roster, map[string][]string{"carol": {"03/01/2024-03/15/2024"}}, nil)

	assignments := []models.Assignment{
		{Unit: Date(2024, time.March, 4), Tier: models.TierTwo, Type: models.ShiftMorning, Cadence: models.CadenceDaily, UserID: "alice"},
		{Unit: Date(2024, time.March, 5), Tier: models.TierTwo, Type: models.ShiftMorning, Cadence: models.CadenceDaily, UserID: "alice"},
		{Unit: Date(2024, time.March, 6), Tier: models.TierTwo, Type: models.ShiftMorning, Cadence: models.CadenceDaily, UserID: "alice"},
	}

	warnings, err := s.Validate(2024, 3, assignments)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, models.WarnImbalance, warnings[0].Kind)
	require.Equal(t, models.TierTwo, warnings[0].Tier)
	// Carol's extended time off keeps her out of the spread.
	require.Equal(t, []string{"alice", "bob"}, warnings[0].Users)

	s.Tolerance = 3
	warnings, err = s.Validate(2024, 3, assignments)
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidate_FlagsRotationPriorityBreach(t *testing.T) {
	roster := models.NewRosterFromLists(nil, []string{"xena", "yuri", "zane"}, nil)
	s := New(roster, nil, nil)
	s.Tolerance = 5

	assignments := []models.Assignment{
		{Unit: Date(2024, time.March, 4), Tier: models.TierThree, Type: models.ShiftMorning, Cadence: models.CadenceWeekly, UserID: "xena"},
		{Unit: Date(2024, time.March, 11), Tier: models.TierThree, Type: models.ShiftMorning, Cadence: models.CadenceWeekly, UserID: "xena"},
		{Unit: Date(2024, time.March, 18), Tier: models.TierThree, Type: models.ShiftMorning, Cadence: models.CadenceWeekly, UserID: "yuri"},
	}

	warnings, err := s.Validate(2024, 3, assignments)
	require.NoError(t, err)
	priority := warningsOfKind(warnings, models.WarnRotationPriority)
	require.Len(t, priority, 1)
	require.Equal(t, models.TierThree, priority[0].Tier)
	require.Equal(t, models.ShiftMorning, priority[0].Type)
	require.Equal(t, []string{"xena", "zane"}, priority[0].Users)

	// Zane off for the whole month has no week to claim, so the breach
	// disappears.
	away := New(roster, map[string][]string{"zane": {"02/26/2024-03/31/2024"}}, nil)
	away.Tolerance = 5
	warnings, err = away.Validate(2024, 3, assignments)
	require.NoError(t, err)
	require.Empty(t, warningsOfKind(warnings, models.WarnRotationPriority))
}

func TestValidate_ReportsVoidedPTO(t *testing.T) {
	roster := models.NewRosterFromLists([]string{"alice"}, nil, nil)
	s := New(roster, map[string][]string{"alice": {"bogus"}}, nil)

	assignments := []models.Assignment{
		{Unit: Date(2024, time.March, 10), Tier: models.TierTwo, Type: models.ShiftMorning, Cadence: models.CadenceDaily, UserID: "alice"},
	}

	warnings, err := s.Validate(2024, 3, assignments)
	require.NoError(t, err)
	// The voided range is disclosed, and with no normalized PTO left the
	// assignment itself passes.
	require.Len(t, warnings, 1)
	require.Equal(t, models.WarnMalformedPTO, warnings[0].Kind)
}

func TestValidate_InvalidMonth(t *testing.T) {
	s := New(models.NewRosterFromLists([]string{"alice"}, nil, nil), nil, nil)
	for _, tc := range []struct{ year, month int }{
		{2024, 0},
		{2024, 13},
		{0, 3},
	} {
		_, err := s.Validate(tc.year, tc.month, nil)
		require.ErrorIs(t, err, ErrInvalidMonth)
	}
}
