package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/user/etiquette-quest/internal/interfaces"
	"github.com/user/etiquette-quest/internal/types"
	"go.uber.org/zap"
)

// RuntimeOption configures a ScenarioRuntime
type RuntimeOption func(*ScenarioRuntime)

// WithLogger sets the runtime logger
func WithLogger(logger *zap.Logger) RuntimeOption {
	return func(r *ScenarioRuntime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the timestamp source of player choices
func WithClock(now func() time.Time) RuntimeOption {
	return func(r *ScenarioRuntime) {
		if now != nil {
			r.now = now
		}
	}
}

// OnScenarioCompleted registers a callback invoked after every completed attempt
func OnScenarioCompleted(callback func(result types.ScenarioResult)) RuntimeOption {
	return func(r *ScenarioRuntime) {
		if callback != nil {
			r.observers = append(r.observers, callback)
		}
	}
}

// ScenarioRuntime drives one attempt at a time through a scenario's interactions, strictly in order
type ScenarioRuntime struct {
	catalog   *Catalog
	store     *CompetenceStore
	gate      *ProgressionGate
	presenter interfaces.PresentationPort
	logger    *zap.Logger
	now       func() time.Time
	observers []func(types.ScenarioResult)

	attempt    *types.ScenarioAttempt
	scenario   *types.Scenario
	lastResult *types.ScenarioResult
}

// NewScenarioRuntime creates an idle runtime
func NewScenarioRuntime(catalog *Catalog, store *CompetenceStore, gate *ProgressionGate, presenter interfaces.PresentationPort, opts ...RuntimeOption) *ScenarioRuntime {
	r := &ScenarioRuntime{
		catalog:   catalog,
		store:     store,
		gate:      gate,
		presenter: presenter,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins a new attempt and displays its first interaction.
// A locked scenario is rejected without touching the current state.
func (r *ScenarioRuntime) Start(scenarioID string) (*types.Interaction, error) {
	scenario, err := r.catalog.Scenario(scenarioID)
	if err != nil {
		return nil, err
	}

	unlocked, err := r.gate.IsUnlocked(scenarioID)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, &ScenarioLockedError{ScenarioID: scenarioID, Prerequisite: scenario.Prerequisite}
	}

	if r.attempt != nil {
		r.logger.Info("Abandoning attempt in favour of a new one",
			zap.String("attempt_id", r.attempt.ID),
			zap.String("scenario_id", r.attempt.ScenarioID))
	}

	r.scenario = scenario
	r.attempt = &types.ScenarioAttempt{
		ID:         uuid.New().String(),
		ScenarioID: scenario.ID,
		CountryID:  scenario.CountryID,
		Cursor:     0,
		Choices:    make([]types.PlayerChoice, 0, len(scenario.Interactions)),
		StartedAt:  r.now(),
	}

	r.logger.Info("Scenario started",
		zap.String("attempt_id", r.attempt.ID),
		zap.String("scenario_id", scenario.ID),
		zap.String("country_id", scenario.CountryID))

	first := &scenario.Interactions[0]
	r.display(first)
	return first, nil
}

// CurrentInteraction returns the interaction at the cursor, or false when there is none
func (r *ScenarioRuntime) CurrentInteraction() (*types.Interaction, bool) {
	if r.attempt == nil || r.attempt.Completed || r.attempt.Cursor >= len(r.scenario.Interactions) {
		return nil, false
	}
	return &r.scenario.Interactions[r.attempt.Cursor], true
}

// SelectOption records the player's answer to the current interaction and advances by one.
// A selection for any other interaction is rejected as stale and changes nothing.
func (r *ScenarioRuntime) SelectOption(interactionID string, optionIndex int) (*types.Step, error) {
	current, ok := r.CurrentInteraction()
	if !ok {
		return nil, ErrNoActiveAttempt
	}

	if interactionID != current.ID {
		r.logger.Warn("Stale interaction selected",
			zap.String("attempt_id", r.attempt.ID),
			zap.String("interaction_id", interactionID),
			zap.String("current_interaction_id", current.ID))
		r.display(current)
		return nil, &StaleInteractionError{Got: interactionID, Expected: current.ID}
	}

	if optionIndex < 0 || optionIndex >= len(current.Options) {
		return nil, fmt.Errorf("%w: %d for interaction %s", ErrUnknownOption, optionIndex, current.ID)
	}

	option := current.Options[optionIndex]
	r.attempt.Choices = append(r.attempt.Choices, types.PlayerChoice{
		InteractionID: current.ID,
		OptionIndex:   optionIndex,
		Option:        option,
		ChosenAt:      r.now(),
	})
	r.attempt.Cursor++

	step := &types.Step{
		Feedback: types.Feedback{
			InteractionID: current.ID,
			Correct:       option.Correct,
			Points:        option.Points,
			Text:          option.Feedback,
			Insight:       option.Insight,
			Highlight:     option.Highlight,
		},
	}

	if r.attempt.Cursor < len(r.scenario.Interactions) {
		next := &r.scenario.Interactions[r.attempt.Cursor]
		step.Next = next
		r.display(next)
		return step, nil
	}

	result, err := r.complete()
	if err != nil {
		return nil, err
	}
	step.Result = result
	return step, nil
}

// complete scores the finished attempt, applies it and reports it upward.
// The attempt is discarded whether or not the store accepts it.
func (r *ScenarioRuntime) complete() (*types.ScenarioResult, error) {
	attempt := r.attempt
	scenario := r.scenario
	r.attempt = nil
	r.scenario = nil

	score := attempt.Score()
	passed := score >= scenario.MinScore
	alreadyCompleted := r.gate.IsCompleted(scenario.ID)

	// A reset during the attempt may have relocked the scenario
	stillUnlocked, err := r.gate.IsUnlocked(scenario.ID)
	if err != nil {
		return nil, err
	}

	skills, err := r.store.ApplyCompletedScore(scenario.CountryID, score)
	if err != nil {
		r.logger.Error("Discarding attempt after failed score update",
			zap.String("attempt_id", attempt.ID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to apply score: %w", err)
	}

	unlockedScenarios := []string{}
	switch {
	case passed && !stillUnlocked:
		r.logger.Warn("Scenario relocked during attempt, completion not recorded",
			zap.String("attempt_id", attempt.ID),
			zap.String("scenario_id", scenario.ID),
			zap.String("prerequisite", scenario.Prerequisite))
	case passed:
		if err := r.store.MarkScenarioCompleted(scenario.CountryID, scenario.ID); err != nil {
			r.logger.Error("Discarding attempt after failed completion update",
				zap.String("attempt_id", attempt.ID),
				zap.Error(err))
			return nil, fmt.Errorf("failed to record completion: %w", err)
		}
		if !alreadyCompleted {
			unlockedScenarios = r.gate.UnlockedBy(scenario.ID)
		}
	}
	attempt.Completed = true

	record, err := r.store.Record(scenario.CountryID)
	if err != nil {
		return nil, err
	}

	insights := []string{}
	for _, choice := range attempt.Choices {
		if choice.Option.Correct && choice.Option.Insight != "" {
			insights = append(insights, choice.Option.Insight)
		}
	}

	result := &types.ScenarioResult{
		AttemptID:         attempt.ID,
		ScenarioID:        scenario.ID,
		CountryID:         scenario.CountryID,
		Score:             score,
		MaxScore:          scenario.MaxScore(),
		Passed:            passed,
		CorrectAnswers:    attempt.CorrectAnswers(),
		TotalInteractions: len(scenario.Interactions),
		InsightsUnlocked:  insights,
		SkillsUnlocked:    skills,
		ScenariosUnlocked: unlockedScenarios,
		Points:            record.Points,
		Title:             titleForPoints(record.Points),
	}

	r.logger.Info("Scenario completed",
		zap.String("attempt_id", attempt.ID),
		zap.String("scenario_id", scenario.ID),
		zap.Int("score", score),
		zap.Bool("passed", passed),
		zap.Strings("scenarios_unlocked", unlockedScenarios))

	r.lastResult = result

	if r.presenter != nil {
		r.presenter.DisplayResult(result)
	}
	for _, observer := range r.observers {
		observer(*result)
	}

	return result, nil
}

// Abandon discards the in-progress attempt, if any, without touching competence
func (r *ScenarioRuntime) Abandon() {
	if r.attempt == nil {
		return
	}
	r.logger.Info("Scenario abandoned",
		zap.String("attempt_id", r.attempt.ID),
		zap.String("scenario_id", r.attempt.ScenarioID),
		zap.Int("cursor", r.attempt.Cursor))
	r.attempt = nil
	r.scenario = nil
}

// Attempt returns a copy of the in-progress attempt
func (r *ScenarioRuntime) Attempt() (types.ScenarioAttempt, bool) {
	if r.attempt == nil {
		return types.ScenarioAttempt{}, false
	}
	attempt := *r.attempt
	attempt.Choices = append([]types.PlayerChoice(nil), r.attempt.Choices...)
	return attempt, true
}

// LastResult returns the result of the most recently completed attempt
func (r *ScenarioRuntime) LastResult() (*types.ScenarioResult, bool) {
	if r.lastResult == nil {
		return nil, false
	}
	return r.lastResult, true
}

func (r *ScenarioRuntime) display(interaction *types.Interaction) {
	if r.presenter != nil {
		r.presenter.DisplayInteraction(interaction)
	}
}
