package game

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/etiquette-quest/internal/storage"
	"github.com/user/etiquette-quest/internal/types"
)

func TestCompetenceStorage(t *testing.T) {
	// Setup
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	persistence := NewCompetenceStorage(kv, "5521999999999")

	// Test case 1: Nothing saved yet
	state, err := persistence.Load(ctx)
	assert.NoError(t, err)
	assert.Nil(t, state)

	// Test case 2: Save and load
	saved := &types.SavedState{
		CompetenceLevels: map[string]int{"japan": 25, "france": 0},
		CulturalSkills: map[string]map[string]types.SkillState{
			"japan":  {"bowing": {Unlocked: true}, "meishi": {Unlocked: true}, "nemawashi": {Unlocked: false}},
			"france": {"salutations": {Unlocked: false}},
		},
		CompletedScenarios: map[string][]string{"japan": {"tokyo_meeting"}},
	}
	require.NoError(t, persistence.Save(ctx, saved))

	state, err = persistence.Load(ctx)
	assert.NoError(t, err)
	assert.Equal(t, saved, state)

	// Test case 3: Blob layout under the namespaced key
	raw, err := kv.Get(ctx, "culturalQuest.competence:5521999999999")
	require.NoError(t, err)

	var blob map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &blob))
	assert.Contains(t, blob, "competenceLevels")
	assert.Contains(t, blob, "culturalSkills")
	assert.JSONEq(t, `{"japan":25,"france":0}`, string(blob["competenceLevels"]))
	assert.JSONEq(t, `{"bowing":{"unlocked":true},"meishi":{"unlocked":true},"nemawashi":{"unlocked":false}}`,
		string(mustGet(t, blob["culturalSkills"], "japan")))

	// Test case 4: Delete returns to first run
	require.NoError(t, persistence.Delete(ctx))
	state, err = persistence.Load(ctx)
	assert.NoError(t, err)
	assert.Nil(t, state)
}

func TestCompetenceStorageAcceptsMinimalBlob(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, CompetenceKey("p1"), []byte(`{"competenceLevels":{"japan":10}}`)))

	state, err := NewCompetenceStorage(kv, "p1").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, state.CompetenceLevels["japan"])
	assert.NotNil(t, state.CulturalSkills)
	assert.NotNil(t, state.CompletedScenarios)
}

func TestCompetenceStorageRejectsCorruptBlob(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, CompetenceKey("p1"), []byte("][")))

	state, err := NewCompetenceStorage(kv, "p1").Load(ctx)
	assert.Error(t, err)
	assert.Nil(t, state)
}

func mustGet(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	return fields[key]
}
