package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/etiquette-quest/internal/interfaces"
	"github.com/user/etiquette-quest/internal/metrics"
	"github.com/user/etiquette-quest/internal/presentation"
	"github.com/user/etiquette-quest/internal/storage"
	"github.com/user/etiquette-quest/internal/types"
	"go.uber.org/zap"
)

// playersKey holds the roster of registered players
const playersKey = "culturalQuest.players"

// PlayerSession is the isolated engine state of one player
type PlayerSession struct {
	player  *types.Player
	store   *CompetenceStore
	gate    *ProgressionGate
	runtime *ScenarioRuntime
	queue   *presentation.Queue
	mu      sync.Mutex
}

// GameManager handles the players and routes their operations to their sessions
type GameManager struct {
	catalog   *Catalog
	kv        storage.KeyValue
	sessions  map[string]*PlayerSession
	stateLock sync.RWMutex
	Logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Ensure GameManager satisfies the interfaces.GameManager interface
var _ interfaces.GameManager = (*GameManager)(nil)

// NewGameManager creates a new game manager
func NewGameManager(catalog *Catalog, kv storage.KeyValue) *GameManager {
	if kv == nil {
		kv = storage.NewMemoryStore()
	}
	return &GameManager{
		catalog:  catalog,
		kv:       kv,
		sessions: make(map[string]*PlayerSession),
		Logger:   zap.NewNop(), // Will be set by the server
		now:      time.Now,
	}
}

// SetLogger sets the logger used by new sessions
func (gm *GameManager) SetLogger(logger *zap.Logger) {
	if logger != nil {
		gm.Logger = logger
	}
}

// SetMetrics sets the metrics recorder
func (gm *GameManager) SetMetrics(m *metrics.Metrics) {
	gm.metrics = m
}

// Catalog returns the content the manager serves
func (gm *GameManager) Catalog() *Catalog {
	return gm.catalog
}

// LoadPlayers restores the roster and every player's competence state
func (gm *GameManager) LoadPlayers(ctx context.Context) error {
	data, err := gm.kv.Get(ctx, playersKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read players: %w", err)
	}

	var players []*types.Player
	if err := json.Unmarshal(data, &players); err != nil {
		return fmt.Errorf("failed to parse players: %w", err)
	}

	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	for _, player := range players {
		if player == nil || player.ID == "" {
			continue
		}
		session, err := gm.newSession(ctx, player)
		if err != nil {
			return err
		}
		gm.sessions[player.ID] = session
	}
	gm.metrics.SetPlayers(len(gm.sessions))

	gm.Logger.Info("Players restored", zap.Int("count", len(gm.sessions)))
	return nil
}

func (gm *GameManager) newSession(ctx context.Context, player *types.Player) (*PlayerSession, error) {
	logger := gm.Logger.With(zap.String("player_id", player.ID))

	store := NewCompetenceStore(ctx, gm.catalog, NewCompetenceStorage(gm.kv, player.ID), logger)
	gate, err := NewProgressionGate(gm.catalog, store)
	if err != nil {
		return nil, err
	}

	queue := presentation.NewQueue()
	runtime := NewScenarioRuntime(gm.catalog, store, gate, queue,
		WithLogger(logger),
		WithClock(gm.now),
		OnScenarioCompleted(func(result types.ScenarioResult) {
			gm.metrics.ScenarioCompleted(result.CountryID, result.ScenarioID, result.Passed)
		}),
	)

	return &PlayerSession{
		player:  player,
		store:   store,
		gate:    gate,
		runtime: runtime,
		queue:   queue,
	}, nil
}

// saveRoster persists the registered players; the caller holds stateLock
func (gm *GameManager) saveRoster(ctx context.Context) error {
	players := make([]*types.Player, 0, len(gm.sessions))
	for _, session := range gm.sessions {
		players = append(players, session.player)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	data, err := json.MarshalIndent(players, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal players: %w", err)
	}
	if err := gm.kv.Set(ctx, playersKey, data); err != nil {
		return fmt.Errorf("failed to save players: %w", err)
	}
	return nil
}

// RegisterPlayer adds a new player to the game. An empty id gets a generated one.
func (gm *GameManager) RegisterPlayer(playerID, name string) (*types.Player, error) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	if playerID == "" {
		playerID = uuid.New().String()
	}

	// Check if player already exists
	if _, exists := gm.sessions[playerID]; exists {
		return nil, ErrPlayerExists
	}

	now := gm.now()
	player := &types.Player{
		ID:           playerID,
		Name:         name,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	session, err := gm.newSession(ctx, player)
	if err != nil {
		return nil, err
	}
	gm.sessions[playerID] = session

	if err := gm.saveRoster(ctx); err != nil {
		delete(gm.sessions, playerID)
		return nil, fmt.Errorf("failed to save game state: %w", err)
	}
	gm.metrics.SetPlayers(len(gm.sessions))

	gm.Logger.Info("Player registered", zap.String("player_id", playerID), zap.String("name", name))
	copied := *player
	return &copied, nil
}

// RemovePlayer flushes a player's state and drops the session. Saved competence is kept.
func (gm *GameManager) RemovePlayer(ctx context.Context, playerID string) error {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	session, exists := gm.sessions[playerID]
	if !exists {
		return ErrPlayerNotFound
	}

	if err := session.store.Flush(ctx); err != nil {
		return err
	}
	delete(gm.sessions, playerID)

	if err := gm.saveRoster(ctx); err != nil {
		gm.sessions[playerID] = session
		return fmt.Errorf("failed to save game state: %w", err)
	}
	gm.metrics.SetPlayers(len(gm.sessions))

	gm.Logger.Info("Player removed", zap.String("player_id", playerID))
	return nil
}

// GetPlayer retrieves a player by id
func (gm *GameManager) GetPlayer(playerID string) (*types.Player, error) {
	session, err := gm.session(playerID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	copied := *session.player
	return &copied, nil
}

// GetAllPlayers returns all players in the game, ordered by id
func (gm *GameManager) GetAllPlayers() []*types.Player {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	players := make([]*types.Player, 0, len(gm.sessions))
	for _, session := range gm.sessions {
		session.mu.Lock()
		copied := *session.player
		session.mu.Unlock()
		players = append(players, &copied)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

func (gm *GameManager) session(playerID string) (*PlayerSession, error) {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	session, exists := gm.sessions[playerID]
	if !exists {
		return nil, ErrPlayerNotFound
	}
	return session, nil
}

// withSession runs fn holding the player's session lock
func (gm *GameManager) withSession(playerID string, fn func(s *PlayerSession) error) error {
	session, err := gm.session(playerID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.player.LastActiveAt = gm.now()
	return fn(session)
}

// ListCountries returns every country with the player's standing in it
func (gm *GameManager) ListCountries(playerID string) ([]types.CountryStatus, error) {
	var statuses []types.CountryStatus
	err := gm.withSession(playerID, func(s *PlayerSession) error {
		statuses = make([]types.CountryStatus, 0, len(gm.catalog.Countries()))
		for _, country := range gm.catalog.Countries() {
			unlocked, err := s.gate.CountryUnlocked(country.ID)
			if err != nil {
				return err
			}
			record, err := s.store.Record(country.ID)
			if err != nil {
				return err
			}
			statuses = append(statuses, types.CountryStatus{
				Country:  country,
				Unlocked: unlocked,
				Points:   record.Points,
				Title:    titleForPoints(record.Points),
			})
		}
		return nil
	})
	return statuses, err
}

// ListScenarios returns the scenarios of a country with their availability for the player
func (gm *GameManager) ListScenarios(playerID, countryID string) ([]types.ScenarioStatus, error) {
	var statuses []types.ScenarioStatus
	err := gm.withSession(playerID, func(s *PlayerSession) error {
		scenarios, err := gm.catalog.ScenariosFor(countryID)
		if err != nil {
			return err
		}
		statuses = make([]types.ScenarioStatus, 0, len(scenarios))
		for _, scenario := range scenarios {
			unlocked, err := s.gate.IsUnlocked(scenario.ID)
			if err != nil {
				return err
			}
			statuses = append(statuses, types.ScenarioStatus{
				Scenario:  scenario,
				Unlocked:  unlocked,
				Completed: s.gate.IsCompleted(scenario.ID),
			})
		}
		return nil
	})
	return statuses, err
}

// StartScenario begins an attempt for the player
func (gm *GameManager) StartScenario(playerID, scenarioID string) (*types.Interaction, error) {
	var interaction *types.Interaction
	err := gm.withSession(playerID, func(s *PlayerSession) error {
		var err error
		interaction, err = s.runtime.Start(scenarioID)
		if errors.Is(err, ErrScenarioLocked) {
			gm.metrics.LockedStart()
		}
		if err != nil {
			return err
		}
		scenario, _ := gm.catalog.Scenario(scenarioID)
		gm.metrics.ScenarioStarted(scenario.CountryID, scenario.ID)
		return nil
	})
	return interaction, err
}

// CurrentInteraction returns the interaction awaiting the player's answer
func (gm *GameManager) CurrentInteraction(playerID string) (*types.Interaction, error) {
	var interaction *types.Interaction
	err := gm.withSession(playerID, func(s *PlayerSession) error {
		current, ok := s.runtime.CurrentInteraction()
		if !ok {
			return ErrNoActiveAttempt
		}
		interaction = current
		return nil
	})
	return interaction, err
}

// SelectOption answers the given interaction, which must be the current one
func (gm *GameManager) SelectOption(playerID, interactionID string, optionIndex int) (*types.Step, error) {
	var step *types.Step
	err := gm.withSession(playerID, func(s *PlayerSession) error {
		var err error
		step, err = gm.selectLocked(s, interactionID, optionIndex)
		return err
	})
	return step, err
}

// SelectCurrent answers whichever interaction is current
func (gm *GameManager) SelectCurrent(playerID string, optionIndex int) (*types.Step, error) {
	var step *types.Step
	err := gm.withSession(playerID, func(s *PlayerSession) error {
		current, ok := s.runtime.CurrentInteraction()
		if !ok {
			return ErrNoActiveAttempt
		}
		var err error
		step, err = gm.selectLocked(s, current.ID, optionIndex)
		return err
	})
	return step, err
}

func (gm *GameManager) selectLocked(s *PlayerSession, interactionID string, optionIndex int) (*types.Step, error) {
	step, err := s.runtime.SelectOption(interactionID, optionIndex)
	if errors.Is(err, ErrStaleInteraction) {
		gm.metrics.StaleSelection()
	}
	if err != nil {
		return nil, err
	}
	gm.metrics.OptionSelected(step.Feedback.Correct)
	return step, nil
}

// AbandonScenario discards the player's attempt without scoring it
func (gm *GameManager) AbandonScenario(playerID string) error {
	return gm.withSession(playerID, func(s *PlayerSession) error {
		if _, ok := s.runtime.CurrentInteraction(); !ok {
			return ErrNoActiveAttempt
		}
		s.runtime.Abandon()
		return nil
	})
}

// GetCompetence summarizes the player's competence in a country
func (gm *GameManager) GetCompetence(playerID, countryID string) (*types.CompetenceStatus, error) {
	var status *types.CompetenceStatus
	err := gm.withSession(playerID, func(s *PlayerSession) error {
		country, err := gm.catalog.Country(countryID)
		if err != nil {
			return err
		}
		record, err := s.store.Record(countryID)
		if err != nil {
			return err
		}
		next, err := s.store.NextSkill(countryID)
		if err != nil {
			return err
		}

		skills := make([]types.SkillStatus, 0, len(country.Skills))
		for _, skill := range country.Skills {
			skills = append(skills, types.SkillStatus{
				Skill:    skill,
				Unlocked: record.Skills[skill.ID].Unlocked,
			})
		}

		status = &types.CompetenceStatus{
			CountryID:   country.ID,
			CountryName: country.Name,
			Points:      record.Points,
			Title:       titleForPoints(record.Points),
			Skills:      skills,
			NextSkill:   next,
			Completed:   record.CompletedScenarios,
		}
		return nil
	})
	return status, err
}

// ResetCompetence resets one country, or every country when countryID is empty.
// An attempt running in a reset country is abandoned.
func (gm *GameManager) ResetCompetence(playerID, countryID string) error {
	return gm.withSession(playerID, func(s *PlayerSession) error {
		if countryID == "" {
			s.store.ResetAll()
		} else if err := s.store.Reset(countryID); err != nil {
			return err
		}

		if attempt, ok := s.runtime.Attempt(); ok && (countryID == "" || attempt.CountryID == countryID) {
			s.runtime.Abandon()
			s.queue.Drain()
		}
		return nil
	})
}

// DrainDisplay returns and clears the views queued for the player
func (gm *GameManager) DrainDisplay(playerID string) []types.View {
	session, err := gm.session(playerID)
	if err != nil {
		return []types.View{}
	}
	return session.queue.Drain()
}

// Flush retries pending saves of every session
func (gm *GameManager) Flush(ctx context.Context) error {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	var errs []error
	for playerID, session := range gm.sessions {
		session.mu.Lock()
		if err := session.store.Flush(ctx); err != nil {
			gm.Logger.Error("Failed to flush player state", zap.String("player_id", playerID), zap.Error(err))
			errs = append(errs, err)
		}
		session.mu.Unlock()
	}
	return errors.Join(errs...)
}
