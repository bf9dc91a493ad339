package strategy

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrProfileNotFound is returned for unknown risk profile names
var ErrProfileNotFound = errors.New("risk profile not found")

// RiskLevel buckets an opportunity by how much can go wrong
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// ConfidenceWeights weight each component of an opportunity's confidence
type ConfidenceWeights struct {
	Edge        float64 `yaml:"edge" json:"edge"`
	Consistency float64 `yaml:"consistency" json:"consistency"`
	Sources     float64 `yaml:"sources" json:"sources"`
	Sentiment   float64 `yaml:"sentiment" json:"sentiment"`
	Injury      float64 `yaml:"injury" json:"injury"`
}

func (w ConfidenceWeights) total() float64 {
	return w.Edge + w.Consistency + w.Sources + w.Sentiment + w.Injury
}

// DefaultWeights are used by the built-in profiles
var DefaultWeights = ConfidenceWeights{
	Edge:        0.35,
	Consistency: 0.25,
	Sources:     0.15,
	Sentiment:   0.10,
	Injury:      0.15,
}

// RiskProfile holds the thresholds and sizing rules for one bettor appetite
type RiskProfile struct {
	Name              string            `yaml:"name" json:"name"`
	Description       string            `yaml:"description" json:"description"`
	KellyFraction     float64           `yaml:"kelly_fraction" json:"kelly_fraction"`
	MaxStakePct       float64           `yaml:"max_stake_pct" json:"max_stake_pct"`
	MaxExposurePct    float64           `yaml:"max_exposure_pct" json:"max_exposure_pct"`
	MinConfidence     float64           `yaml:"min_confidence" json:"min_confidence"`
	MinExpectedValue  float64           `yaml:"min_expected_value" json:"min_expected_value"`
	AllowedRiskLevels []RiskLevel       `yaml:"allowed_risk_levels" json:"allowed_risk_levels"`
	MaxBets           int               `yaml:"max_bets" json:"max_bets"`
	Weights           ConfidenceWeights `yaml:"weights" json:"weights"`
}

// Allows reports whether the profile accepts a risk level
func (p RiskProfile) Allows(level RiskLevel) bool {
	for _, l := range p.AllowedRiskLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Validate checks fractions are in (0,1] and thresholds in [0,1]
func (p RiskProfile) Validate() error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	if p.KellyFraction <= 0 || p.KellyFraction > 1 {
		return fmt.Errorf("profile %s: kelly_fraction must be in (0, 1]", p.Name)
	}
	if p.MaxStakePct <= 0 || p.MaxStakePct > 1 {
		return fmt.Errorf("profile %s: max_stake_pct must be in (0, 1]", p.Name)
	}
	if p.MaxExposurePct <= 0 || p.MaxExposurePct > 1 {
		return fmt.Errorf("profile %s: max_exposure_pct must be in (0, 1]", p.Name)
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("profile %s: min_confidence must be in [0, 1]", p.Name)
	}
	if p.MinExpectedValue < 0 || p.MinExpectedValue > 1 {
		return fmt.Errorf("profile %s: min_expected_value must be in [0, 1]", p.Name)
	}
	if p.MaxBets < 1 {
		return fmt.Errorf("profile %s: max_bets must be at least 1", p.Name)
	}
	if len(p.AllowedRiskLevels) == 0 {
		return fmt.Errorf("profile %s: at least one risk level must be allowed", p.Name)
	}
	for _, l := range p.AllowedRiskLevels {
		if !l.valid() {
			return fmt.Errorf("profile %s: unknown risk level %q", p.Name, l)
		}
	}
	w := p.Weights
	if w.Edge < 0 || w.Consistency < 0 || w.Sources < 0 || w.Sentiment < 0 || w.Injury < 0 || w.total() == 0 {
		return fmt.Errorf("profile %s: weights must be non-negative and not all zero", p.Name)
	}
	return nil
}

// BuiltinProfiles returns the conservative, moderate and aggressive defaults
func BuiltinProfiles() []RiskProfile {
	return []RiskProfile{
		{
			Name:              "conservative",
			Description:       "Small fractional Kelly, low-risk bets only",
			KellyFraction:     0.1,
			MaxStakePct:       0.02,
			MaxExposurePct:    0.10,
			MinConfidence:     0.7,
			MinExpectedValue:  0.03,
			AllowedRiskLevels: []RiskLevel{RiskLow},
			MaxBets:           5,
			Weights:           DefaultWeights,
		},
		{
			Name:              "moderate",
			Description:       "Quarter Kelly across low and medium risk",
			KellyFraction:     0.25,
			MaxStakePct:       0.05,
			MaxExposurePct:    0.25,
			MinConfidence:     0.6,
			MinExpectedValue:  0.02,
			AllowedRiskLevels: []RiskLevel{RiskLow, RiskMedium},
			MaxBets:           10,
			Weights:           DefaultWeights,
		},
		{
			Name:              "aggressive",
			Description:       "Half Kelly, every risk level",
			KellyFraction:     0.5,
			MaxStakePct:       0.10,
			MaxExposurePct:    0.50,
			MinConfidence:     0.5,
			MinExpectedValue:  0.01,
			AllowedRiskLevels: []RiskLevel{RiskLow, RiskMedium, RiskHigh},
			MaxBets:           20,
			Weights:           DefaultWeights,
		},
	}
}

// ProfileManager holds the named risk profiles
type ProfileManager struct {
	mu       sync.RWMutex
	profiles map[string]RiskProfile
}

// NewProfileManager creates a manager seeded with the built-in profiles
func NewProfileManager() *ProfileManager {
	m := &ProfileManager{profiles: make(map[string]RiskProfile)}
	for _, p := range BuiltinProfiles() {
		m.profiles[p.Name] = p
	}
	return m
}

type profilesFile struct {
	Profiles map[string]yaml.Node `yaml:"profiles"`
}

// LoadFile applies a YAML file of profile overrides. Fields missing from an
// entry keep the existing profile's values; new profiles start from moderate.
func (m *ProfileManager) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read risk profiles file: %w", err)
	}
	return m.LoadYAML(data)
}

// LoadYAML applies profile overrides from YAML bytes
func (m *ProfileManager) LoadYAML(data []byte) error {
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse risk profiles: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	updated := make(map[string]RiskProfile, len(file.Profiles))
	for name, node := range file.Profiles {
		base, ok := m.profiles[name]
		if !ok {
			base = m.profiles["moderate"]
			base.Description = ""
		}
		if err := node.Decode(&base); err != nil {
			return fmt.Errorf("failed to decode profile %s: %w", name, err)
		}
		base.Name = name
		if err := base.Validate(); err != nil {
			return err
		}
		updated[name] = base
	}
	for name, p := range updated {
		m.profiles[name] = p
	}
	return nil
}

// Get returns the named profile
func (m *ProfileManager) Get(name string) (RiskProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[name]
	if !ok {
		return RiskProfile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return p, nil
}

// List returns every profile sorted by name
func (m *ProfileManager) List() []RiskProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RiskProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Upsert validates and stores a profile
func (m *ProfileManager) Upsert(p RiskProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.Name] = p
	return nil
}
