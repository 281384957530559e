package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/user/etiquette-quest/internal/interfaces"
	"github.com/user/etiquette-quest/internal/presentation"
	"github.com/user/etiquette-quest/internal/types"
)

const contentDir = "../../assets/data"

func loadCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewDataLoader(contentDir).LoadCatalog()
	require.NoError(t, err)
	return catalog
}

type engine struct {
	catalog *Catalog
	store   *CompetenceStore
	gate    *ProgressionGate
	runtime *ScenarioRuntime
	queue   *presentation.Queue
}

func newEngine(t *testing.T, persistence interfaces.Persistence, opts ...RuntimeOption) *engine {
	t.Helper()
	catalog := loadCatalog(t)
	store := NewCompetenceStore(context.Background(), catalog, persistence, nil)
	gate, err := NewProgressionGate(catalog, store)
	require.NoError(t, err)
	queue := presentation.NewQueue()
	return &engine{
		catalog: catalog,
		store:   store,
		gate:    gate,
		runtime: NewScenarioRuntime(catalog, store, gate, queue, opts...),
		queue:   queue,
	}
}

// play answers each interaction of the running attempt with the given option index
func (e *engine) play(t *testing.T, answers ...int) *types.Step {
	t.Helper()
	var step *types.Step
	for _, answer := range answers {
		current, ok := e.runtime.CurrentInteraction()
		require.True(t, ok)
		var err error
		step, err = e.runtime.SelectOption(current.ID, answer)
		require.NoError(t, err)
	}
	return step
}

func testCountry(id string, skills ...string) *types.Country {
	country := &types.Country{ID: id, Name: id}
	for _, skill := range skills {
		country.Skills = append(country.Skills, types.Skill{ID: skill, Name: skill})
	}
	return country
}

func testScenario(id, countryID, prerequisite string) *types.Scenario {
	return &types.Scenario{
		ID:           id,
		CountryID:    countryID,
		Title:        id,
		Prerequisite: prerequisite,
		Interactions: []types.Interaction{
			{
				ID:     "q1",
				Prompt: "What do you do?",
				Options: []types.Option{
					{Text: "The right thing", Correct: true, Points: 10},
					{Text: "The wrong thing", Points: -5},
				},
			},
		},
	}
}
