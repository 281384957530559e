package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/etiquette-quest/internal/interfaces"
	"github.com/user/etiquette-quest/internal/types"
	"go.uber.org/zap"
)

const saveTimeout = 5 * time.Second

// titleThresholds is ascending; a title applies from its threshold upwards
var titleThresholds = []struct {
	Points int
	Title  string
}{
	{0, "Novice"},
	{10, "Curious Traveler"},
	{20, "Cultural Student"},
	{30, "Cultural Explorer"},
	{40, "Cultural Practitioner"},
	{60, "Cultural Diplomat"},
	{80, "Cultural Expert"},
	{100, "Cultural Master"},
}

// CompetenceStore holds the authoritative per-country points and skills of one player
type CompetenceStore struct {
	catalog     *Catalog
	persistence interfaces.Persistence
	logger      *zap.Logger

	records map[string]*types.CompetenceRecord
	dirty   bool
	mu      sync.RWMutex
}

// NewCompetenceStore creates a store and restores its saved state.
// Missing or unreadable state falls back to zero points with every skill locked.
func NewCompetenceStore(ctx context.Context, catalog *Catalog, persistence interfaces.Persistence, logger *zap.Logger) *CompetenceStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	cs := &CompetenceStore{
		catalog:     catalog,
		persistence: persistence,
		logger:      logger,
		records:     make(map[string]*types.CompetenceRecord),
	}

	for _, country := range catalog.Countries() {
		cs.records[country.ID] = newRecord(country)
	}

	if persistence == nil {
		return cs
	}

	state, err := persistence.Load(ctx)
	if err != nil {
		cs.logger.Warn("Failed to load competence state, starting fresh", zap.Error(err))
		return cs
	}
	if state == nil {
		cs.logger.Debug("No saved competence state, first run")
		return cs
	}

	cs.restore(state)
	return cs
}

func newRecord(country *types.Country) *types.CompetenceRecord {
	record := &types.CompetenceRecord{
		CountryID:          country.ID,
		Skills:             make(map[string]types.SkillState, len(country.Skills)),
		CompletedScenarios: []string{},
	}
	for _, skill := range country.Skills {
		record.Skills[skill.ID] = types.SkillState{Unlocked: false}
	}
	return record
}

// restore copies saved values for known countries, skills and scenarios only
func (cs *CompetenceStore) restore(state *types.SavedState) {
	for countryID, record := range cs.records {
		record.Points = state.CompetenceLevels[countryID]

		for skillID, saved := range state.CulturalSkills[countryID] {
			if _, known := record.Skills[skillID]; known {
				record.Skills[skillID] = saved
			}
		}

		for _, scenarioID := range state.CompletedScenarios[countryID] {
			scenario, err := cs.catalog.Scenario(scenarioID)
			if err != nil || scenario.CountryID != countryID || containsString(record.CompletedScenarios, scenarioID) {
				continue
			}
			record.CompletedScenarios = append(record.CompletedScenarios, scenarioID)
		}
	}
}

// ApplyCompletedScore adds a completed attempt's score and unlocks the skills it reaches
func (cs *CompetenceStore) ApplyCompletedScore(countryID string, delta int) ([]string, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	record, err := cs.recordLocked(countryID)
	if err != nil {
		return nil, err
	}

	record.Points += delta
	unlocked := cs.recomputeLocked(countryID, record)

	cs.logger.Info("Applied completed score",
		zap.String("country_id", countryID),
		zap.Int("delta", delta),
		zap.Int("points", record.Points),
		zap.Strings("skills_unlocked", unlocked))

	cs.saveLocked()
	return unlocked, nil
}

// RecomputeUnlocks unlocks every skill whose threshold the current points reach.
// Skill i of n unlocks at i * ceil(100/n) points; unlocked skills stay unlocked.
func (cs *CompetenceStore) RecomputeUnlocks(countryID string) ([]string, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	record, err := cs.recordLocked(countryID)
	if err != nil {
		return nil, err
	}

	unlocked := cs.recomputeLocked(countryID, record)
	if len(unlocked) > 0 {
		cs.saveLocked()
	}
	return unlocked, nil
}

func (cs *CompetenceStore) recomputeLocked(countryID string, record *types.CompetenceRecord) []string {
	country, _ := cs.catalog.Country(countryID)
	step := skillStep(len(country.Skills))

	unlocked := []string{}
	for i, skill := range country.Skills {
		if record.Skills[skill.ID].Unlocked {
			continue
		}
		if record.Points >= i*step {
			record.Skills[skill.ID] = types.SkillState{Unlocked: true}
			unlocked = append(unlocked, skill.ID)
		}
	}
	return unlocked
}

func skillStep(skillCount int) int {
	if skillCount == 0 {
		return 0
	}
	return (100 + skillCount - 1) / skillCount
}

// TitleFor maps the country's points to the highest title reached
func (cs *CompetenceStore) TitleFor(countryID string) (string, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	record, err := cs.recordLocked(countryID)
	if err != nil {
		return "", err
	}
	return titleForPoints(record.Points), nil
}

func titleForPoints(points int) string {
	title := titleThresholds[0].Title
	for _, threshold := range titleThresholds {
		if points >= threshold.Points {
			title = threshold.Title
		}
	}
	return title
}

// NextSkill returns the first locked skill of a country, or nil when all are unlocked
func (cs *CompetenceStore) NextSkill(countryID string) (*types.SkillProgress, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	record, err := cs.recordLocked(countryID)
	if err != nil {
		return nil, err
	}

	country, _ := cs.catalog.Country(countryID)
	step := skillStep(len(country.Skills))
	for i, skill := range country.Skills {
		if record.Skills[skill.ID].Unlocked {
			continue
		}
		threshold := i * step
		needed := threshold - record.Points
		if needed < 0 {
			needed = 0
		}
		return &types.SkillProgress{Skill: skill, Threshold: threshold, PointsNeeded: needed}, nil
	}
	return nil, nil
}

// MarkScenarioCompleted records a passed scenario so that its dependents unlock
func (cs *CompetenceStore) MarkScenarioCompleted(countryID, scenarioID string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	record, err := cs.recordLocked(countryID)
	if err != nil {
		return err
	}

	scenario, err := cs.catalog.Scenario(scenarioID)
	if err != nil {
		return err
	}
	if scenario.CountryID != countryID {
		return fmt.Errorf("%w: %s does not belong to %s", ErrUnknownScenario, scenarioID, countryID)
	}

	if containsString(record.CompletedScenarios, scenarioID) {
		return nil
	}
	record.CompletedScenarios = append(record.CompletedScenarios, scenarioID)

	cs.saveLocked()
	return nil
}

// IsScenarioCompleted implements CompletionSource
func (cs *CompetenceStore) IsScenarioCompleted(countryID, scenarioID string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	record, exists := cs.records[countryID]
	if !exists {
		return false
	}
	return containsString(record.CompletedScenarios, scenarioID)
}

// Reset zeroes the points and relocks the skills and scenarios of one country
func (cs *CompetenceStore) Reset(countryID string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, err := cs.recordLocked(countryID); err != nil {
		return err
	}

	country, _ := cs.catalog.Country(countryID)
	cs.records[countryID] = newRecord(country)
	cs.logger.Info("Reset competence", zap.String("country_id", countryID))

	cs.saveLocked()
	return nil
}

// ResetAll resets every country
func (cs *CompetenceStore) ResetAll() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, country := range cs.catalog.Countries() {
		cs.records[country.ID] = newRecord(country)
	}
	cs.logger.Info("Reset competence for all countries")

	cs.saveLocked()
}

// Record returns a copy of one country's record
func (cs *CompetenceStore) Record(countryID string) (types.CompetenceRecord, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	record, err := cs.recordLocked(countryID)
	if err != nil {
		return types.CompetenceRecord{}, err
	}
	return copyRecord(record), nil
}

// Records returns copies of every record in catalog order
func (cs *CompetenceStore) Records() []types.CompetenceRecord {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	records := make([]types.CompetenceRecord, 0, len(cs.records))
	for _, country := range cs.catalog.Countries() {
		records = append(records, copyRecord(cs.records[country.ID]))
	}
	return records
}

// Snapshot returns the persisted form of the current state
func (cs *CompetenceStore) Snapshot() *types.SavedState {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.snapshotLocked()
}

func (cs *CompetenceStore) snapshotLocked() *types.SavedState {
	state := &types.SavedState{
		CompetenceLevels:   make(map[string]int, len(cs.records)),
		CulturalSkills:     make(map[string]map[string]types.SkillState, len(cs.records)),
		CompletedScenarios: make(map[string][]string),
	}
	for countryID, record := range cs.records {
		state.CompetenceLevels[countryID] = record.Points
		skills := make(map[string]types.SkillState, len(record.Skills))
		for skillID, skill := range record.Skills {
			skills[skillID] = skill
		}
		state.CulturalSkills[countryID] = skills
		if len(record.CompletedScenarios) > 0 {
			state.CompletedScenarios[countryID] = append([]string(nil), record.CompletedScenarios...)
		}
	}
	return state
}

// Flush retries the last save if it failed
func (cs *CompetenceStore) Flush(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.dirty || cs.persistence == nil {
		return nil
	}
	if err := cs.persistence.Save(ctx, cs.snapshotLocked()); err != nil {
		return fmt.Errorf("failed to flush competence state: %w", err)
	}
	cs.dirty = false
	return nil
}

// saveLocked persists eagerly; failures are logged and left for Flush
func (cs *CompetenceStore) saveLocked() {
	if cs.persistence == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := cs.persistence.Save(ctx, cs.snapshotLocked()); err != nil {
		cs.dirty = true
		cs.logger.Error("Failed to save competence state", zap.Error(err))
		return
	}
	cs.dirty = false
}

func (cs *CompetenceStore) recordLocked(countryID string) (*types.CompetenceRecord, error) {
	record, exists := cs.records[countryID]
	if !exists {
		return nil, &UnknownCountryError{CountryID: countryID}
	}
	return record, nil
}

func copyRecord(record *types.CompetenceRecord) types.CompetenceRecord {
	skills := make(map[string]types.SkillState, len(record.Skills))
	for skillID, skill := range record.Skills {
		skills[skillID] = skill
	}
	return types.CompetenceRecord{
		CountryID:          record.CountryID,
		Points:             record.Points,
		Skills:             skills,
		CompletedScenarios: append([]string{}, record.CompletedScenarios...),
	}
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
