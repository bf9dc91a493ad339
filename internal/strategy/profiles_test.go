package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinProfilesAreValid(t *testing.T) {
	for _, p := range BuiltinProfiles() {
		assert.NoError(t, p.Validate(), p.Name)
	}

	m := NewProfileManager()
	names := []string{}
	for _, p := range m.List() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"aggressive", "conservative", "moderate"}, names)

	_, err := m.Get("reckless")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileManager_LoadYAML(t *testing.T) {
	m := NewProfileManager()
	err := m.LoadYAML([]byte(`
profiles:
  conservative:
    max_bets: 3
  sharp:
    description: high edge only
    min_expected_value: 0.05
    allowed_risk_levels: [low]
`))
	require.NoError(t, err)

	conservative, err := m.Get("conservative")
	require.NoError(t, err)
	assert.Equal(t, 3, conservative.MaxBets)
	assert.Equal(t, 0.1, conservative.KellyFraction)

	sharp, err := m.Get("sharp")
	require.NoError(t, err)
	assert.Equal(t, "sharp", sharp.Name)
	assert.Equal(t, 0.25, sharp.KellyFraction)
	assert.Equal(t, 0.05, sharp.MinExpectedValue)
	assert.Equal(t, []RiskLevel{RiskLow}, sharp.AllowedRiskLevels)
	assert.Equal(t, DefaultWeights, sharp.Weights)
}

func TestProfileManager_LoadYAMLRejectsInvalid(t *testing.T) {
	m := NewProfileManager()
	err := m.LoadYAML([]byte(`
profiles:
  moderate:
    max_bets: 2
  broken:
    kelly_fraction: 2
`))
	require.Error(t, err)

	// nothing is applied when any entry fails
	moderate, err := m.Get("moderate")
	require.NoError(t, err)
	assert.Equal(t, 10, moderate.MaxBets)

	assert.Error(t, m.LoadYAML([]byte("profiles: [")))
}

func TestProfileManager_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles:\n  aggressive:\n    allowed_risk_levels: [medium, extreme]\n"), 0o644))

	m := NewProfileManager()
	assert.Error(t, m.LoadFile(path))
	assert.Error(t, m.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestRiskProfile_Validate(t *testing.T) {
	base := BuiltinProfiles()[1]

	tests := []struct {
		name   string
		mutate func(p *RiskProfile)
	}{
		{name: "missing name", mutate: func(p *RiskProfile) { p.Name = "" }},
		{name: "zero stake", mutate: func(p *RiskProfile) { p.MaxStakePct = 0 }},
		{name: "exposure above one", mutate: func(p *RiskProfile) { p.MaxExposurePct = 1.5 }},
		{name: "negative confidence", mutate: func(p *RiskProfile) { p.MinConfidence = -0.1 }},
		{name: "no risk levels", mutate: func(p *RiskProfile) { p.AllowedRiskLevels = nil }},
		{name: "zero weights", mutate: func(p *RiskProfile) { p.Weights = ConfidenceWeights{} }},
		{name: "no bets", mutate: func(p *RiskProfile) { p.MaxBets = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			p.AllowedRiskLevels = append([]RiskLevel(nil), base.AllowedRiskLevels...)
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}

	assert.True(t, base.Allows(RiskMedium))
	assert.False(t, base.Allows(RiskHigh))
}
