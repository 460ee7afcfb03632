package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnavshah/oncall-rota-go/pkg/models"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "rota.yaml"))
	require.NoError(t, err)
	require.Equal(t, 1, cfg.Tolerance)
	require.Len(t, cfg.Shifts, 5)
}

func TestParse_ToleranceAndOverride(t *testing.T) {
	cfg, err := Parse([]byte(`
tolerance: 3
shifts:
  - tier: upgrade
    shift_type: full
    label: 12pm-8:30pm CET
`))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Tolerance)

	d, ok := cfg.ShiftFor(models.TierUpgrade, models.ShiftFull)
	require.True(t, ok)
	require.Equal(t, "12pm-8:30pm CET", d.TimeLabel)
	// Fields the override leaves empty keep the built-in values.
	require.Equal(t, "12:00", d.Start)
	require.Equal(t, "20:30", d.End)

	morning, ok := cfg.ShiftFor(models.TierTwo, models.ShiftMorning)
	require.True(t, ok)
	require.Equal(t, "11:00am-5:00pm EST", morning.TimeLabel)
}

func TestParse_ExplicitZeroTolerance(t *testing.T) {
	cfg, err := Parse([]byte("tolerance: 0\n"))
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Tolerance)
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse([]byte("tolerance: -1\n"))
	require.Error(t, err)

	_, err = Parse([]byte("shifts:\n  - tier: tier9\n    shift_type: morning\n"))
	require.Error(t, err)

	_, err = Parse([]byte("tolerance: [\n"))
	require.Error(t, err)
}
