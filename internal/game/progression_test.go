package game

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/etiquette-quest/internal/types"
)

func TestPrerequisiteCycleIsRejected(t *testing.T) {
	_, err := NewCatalog(
		[]*types.Country{testCountry("japan")},
		[]*types.Scenario{
			testScenario("a", "japan", "c"),
			testScenario("b", "japan", "a"),
			testScenario("c", "japan", "b"),
			testScenario("d", "japan", ""),
		},
	)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Len(t, cfgErr.Problems, 1)
	assert.Contains(t, cfgErr.Problems[0], "prerequisite cycle")
}

func TestSelfPrerequisiteIsRejected(t *testing.T) {
	_, err := NewCatalog(
		[]*types.Country{testCountry("japan")},
		[]*types.Scenario{testScenario("a", "japan", "a")},
	)
	assert.ErrorIs(t, err, ErrInvalidContent)
}

func TestUnknownPrerequisiteIsRejected(t *testing.T) {
	_, err := NewCatalog(
		[]*types.Country{testCountry("japan")},
		[]*types.Scenario{testScenario("a", "japan", "ghost")},
	)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{`scenario "a" requires unknown scenario "ghost"`}, cfgErr.Problems)
}

func TestProgressionGate(t *testing.T) {
	// Setup
	catalog := loadCatalog(t)
	store := NewCompetenceStore(context.Background(), catalog, nil, nil)
	gate, err := NewProgressionGate(catalog, store)
	require.NoError(t, err)

	// Test case 1: Scenario without prerequisite
	unlocked, err := gate.IsUnlocked("tokyo_meeting")
	assert.NoError(t, err)
	assert.True(t, unlocked)

	// Test case 2: Prerequisite not completed
	unlocked, err = gate.IsUnlocked("tokyo_negotiation")
	assert.NoError(t, err)
	assert.False(t, unlocked)

	// Test case 3: Prerequisite completed
	require.NoError(t, store.MarkScenarioCompleted("japan", "tokyo_meeting"))
	unlocked, err = gate.IsUnlocked("tokyo_negotiation")
	assert.NoError(t, err)
	assert.True(t, unlocked)
	assert.True(t, gate.IsCompleted("tokyo_meeting"))

	// Test case 4: Chains unlock one link at a time
	unlocked, err = gate.IsUnlocked("tokyo_dinner")
	assert.NoError(t, err)
	assert.False(t, unlocked)

	// Test case 5: Unknown scenario
	_, err = gate.IsUnlocked("moon_landing")
	assert.ErrorIs(t, err, ErrUnknownScenario)
	assert.False(t, gate.IsCompleted("moon_landing"))
}

func TestUnlockedByReturnsACopy(t *testing.T) {
	catalog := loadCatalog(t)
	gate, err := NewProgressionGate(catalog, NewCompetenceStore(context.Background(), catalog, nil, nil))
	require.NoError(t, err)

	targets := gate.UnlockedBy("tokyo_meeting")
	assert.Equal(t, []string{"tokyo_negotiation"}, targets)

	targets[0] = "tampered"
	assert.Equal(t, []string{"tokyo_negotiation"}, gate.UnlockedBy("tokyo_meeting"))
	assert.Empty(t, gate.UnlockedBy("tokyo_dinner"))
}

func TestCountryUnlocked(t *testing.T) {
	catalog, err := NewCatalog(
		[]*types.Country{testCountry("japan"), testCountry("france")},
		[]*types.Scenario{
			testScenario("tokyo", "japan", ""),
			testScenario("paris", "france", "tokyo"),
		},
	)
	require.NoError(t, err)
	store := NewCompetenceStore(context.Background(), catalog, nil, nil)
	gate, err := NewProgressionGate(catalog, store)
	require.NoError(t, err)

	unlocked, err := gate.CountryUnlocked("japan")
	assert.NoError(t, err)
	assert.True(t, unlocked)

	unlocked, err = gate.CountryUnlocked("france")
	assert.NoError(t, err)
	assert.False(t, unlocked)

	require.NoError(t, store.MarkScenarioCompleted("japan", "tokyo"))
	unlocked, err = gate.CountryUnlocked("france")
	assert.NoError(t, err)
	assert.True(t, unlocked)

	_, err = gate.CountryUnlocked("atlantis")
	assert.ErrorIs(t, err, ErrUnknownCountry)
}
