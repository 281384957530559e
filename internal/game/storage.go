package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/user/etiquette-quest/internal/interfaces"
	"github.com/user/etiquette-quest/internal/storage"
	"github.com/user/etiquette-quest/internal/types"
)

// competenceKeyPrefix namespaces the competence blob of each player
const competenceKeyPrefix = "culturalQuest.competence"

// CompetenceStorage persists one player's competence state as a JSON blob
type CompetenceStorage struct {
	store storage.KeyValue
	key   string
}

var _ interfaces.Persistence = (*CompetenceStorage)(nil)

// NewCompetenceStorage creates a new competence storage for a player
func NewCompetenceStorage(store storage.KeyValue, playerID string) *CompetenceStorage {
	return &CompetenceStorage{
		store: store,
		key:   CompetenceKey(playerID),
	}
}

// CompetenceKey returns the storage key of a player's competence blob
func CompetenceKey(playerID string) string {
	return competenceKeyPrefix + ":" + playerID
}

// Load returns nil state on first run
func (cs *CompetenceStorage) Load(ctx context.Context) (*types.SavedState, error) {
	data, err := cs.store.Get(ctx, cs.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read competence state: %w", err)
	}

	var state types.SavedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse competence state: %w", err)
	}

	if state.CompetenceLevels == nil {
		state.CompetenceLevels = make(map[string]int)
	}
	if state.CulturalSkills == nil {
		state.CulturalSkills = make(map[string]map[string]types.SkillState)
	}
	if state.CompletedScenarios == nil {
		state.CompletedScenarios = make(map[string][]string)
	}

	return &state, nil
}

// Save writes the whole state in one call
func (cs *CompetenceStorage) Save(ctx context.Context, state *types.SavedState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal competence state: %w", err)
	}

	if err := cs.store.Set(ctx, cs.key, data); err != nil {
		return fmt.Errorf("failed to write competence state: %w", err)
	}
	return nil
}

// Delete removes the saved state
func (cs *CompetenceStorage) Delete(ctx context.Context) error {
	return cs.store.Delete(ctx, cs.key)
}
