package types

import "time"

// Country groups the scenarios and skills of one culture
type Country struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Scenarios []string `json:"scenarios" yaml:"scenarios"`
	Skills    []Skill  `json:"skills" yaml:"skills"`
}

// Skill is a cultural skill unlocked by competence points
type Skill struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Scenario is a themed, ordered sequence of interactions
type Scenario struct {
	ID          string `json:"id" yaml:"id"`
	CountryID   string `json:"country_id" yaml:"country"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Setting     string `json:"setting,omitempty" yaml:"setting"`

	// Traversal order is the slice order
	Interactions []Interaction `json:"interactions" yaml:"interactions"`

	// Empty means always available
	Prerequisite string `json:"prerequisite,omitempty" yaml:"prerequisite"`

	// Minimum score for the attempt to count as completed
	MinScore int `json:"min_score" yaml:"min_score"`

	// Scenarios made available on completion
	Unlocks []string `json:"unlocks,omitempty" yaml:"unlocks"`
}

// MaxScore returns the best score an attempt can reach
func (s *Scenario) MaxScore() int {
	total := 0
	for _, interaction := range s.Interactions {
		best := 0
		for i, option := range interaction.Options {
			if i == 0 || option.Points > best {
				best = option.Points
			}
		}
		total += best
	}
	return total
}

// Interaction is a single decision point within a scenario
type Interaction struct {
	ID        string   `json:"id" yaml:"id"`
	Prompt    string   `json:"prompt" yaml:"prompt"`
	Situation string   `json:"situation,omitempty" yaml:"situation"`
	Options   []Option `json:"options" yaml:"options"`
}

// Option is an answer to an interaction. Slice order is display order only.
type Option struct {
	Text      string `json:"text" yaml:"text"`
	Correct   bool   `json:"correct" yaml:"correct"`
	Points    int    `json:"points" yaml:"points"`
	Feedback  string `json:"feedback" yaml:"feedback"`
	Insight   string `json:"insight,omitempty" yaml:"insight"`
	Highlight string `json:"highlight,omitempty" yaml:"highlight"`
}

// PlayerChoice records one selection within an attempt
type PlayerChoice struct {
	InteractionID string    `json:"interaction_id"`
	OptionIndex   int       `json:"option_index"`
	Option        Option    `json:"option"`
	ChosenAt      time.Time `json:"chosen_at"`
}

// ScenarioAttempt is one in-progress traversal of a scenario
type ScenarioAttempt struct {
	ID         string         `json:"id"`
	ScenarioID string         `json:"scenario_id"`
	CountryID  string         `json:"country_id"`
	Cursor     int            `json:"cursor"`
	Choices    []PlayerChoice `json:"choices"`
	Completed  bool           `json:"completed"`
	StartedAt  time.Time      `json:"started_at"`
}

// Score sums the point deltas of every recorded choice
func (a *ScenarioAttempt) Score() int {
	score := 0
	for _, choice := range a.Choices {
		score += choice.Option.Points
	}
	return score
}

// CorrectAnswers counts choices flagged correct
func (a *ScenarioAttempt) CorrectAnswers() int {
	count := 0
	for _, choice := range a.Choices {
		if choice.Option.Correct {
			count++
		}
	}
	return count
}

// SkillState is the persisted state of one skill
type SkillState struct {
	Unlocked bool `json:"unlocked"`
}

// CompetenceRecord holds the per-country progression of a player
type CompetenceRecord struct {
	CountryID          string                `json:"country_id"`
	Points             int                   `json:"points"`
	Skills             map[string]SkillState `json:"skills"`
	CompletedScenarios []string              `json:"completed_scenarios"`
}

// SkillProgress describes the next skill to unlock
type SkillProgress struct {
	Skill        Skill `json:"skill"`
	Threshold    int   `json:"threshold"`
	PointsNeeded int   `json:"points_needed"`
}

// Feedback is returned for every accepted selection
type Feedback struct {
	InteractionID string `json:"interaction_id"`
	Correct       bool   `json:"correct"`
	Points        int    `json:"points"`
	Text          string `json:"text"`
	Insight       string `json:"insight,omitempty"`
	Highlight     string `json:"highlight,omitempty"`
}

// ScenarioResult summarizes a completed attempt
type ScenarioResult struct {
	AttemptID         string   `json:"attempt_id"`
	ScenarioID        string   `json:"scenario_id"`
	CountryID         string   `json:"country_id"`
	Score             int      `json:"score"`
	MaxScore          int      `json:"max_score"`
	Passed            bool     `json:"passed"`
	CorrectAnswers    int      `json:"correct_answers"`
	TotalInteractions int      `json:"total_interactions"`
	InsightsUnlocked  []string `json:"insights_unlocked"`
	SkillsUnlocked    []string `json:"skills_unlocked"`
	ScenariosUnlocked []string `json:"scenarios_unlocked"`
	Points            int      `json:"points"`
	Title             string   `json:"title"`
}

// Step is the outcome of a selection: either the next interaction or the result
type Step struct {
	Feedback Feedback        `json:"feedback"`
	Next     *Interaction    `json:"next,omitempty"`
	Result   *ScenarioResult `json:"result,omitempty"`
}

// SavedState is the persisted competence blob of one player
type SavedState struct {
	CompetenceLevels   map[string]int                   `json:"competenceLevels"`
	CulturalSkills     map[string]map[string]SkillState `json:"culturalSkills"`
	CompletedScenarios map[string][]string              `json:"completedScenarios,omitempty"`
}

// ViewKind tells a presentation what a View carries
type ViewKind string

const (
	ViewInteraction ViewKind = "interaction"
	ViewResult      ViewKind = "result"
)

// View is one display request emitted by the runtime
type View struct {
	Kind        ViewKind        `json:"kind"`
	Interaction *Interaction    `json:"interaction,omitempty"`
	Result      *ScenarioResult `json:"result,omitempty"`
}

// Player is a registered player of the host
type Player struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// CountryStatus is a country as seen by one player
type CountryStatus struct {
	Country  *Country `json:"country"`
	Unlocked bool     `json:"unlocked"`
	Points   int      `json:"points"`
	Title    string   `json:"title"`
}

// ScenarioStatus is a scenario as seen by one player
type ScenarioStatus struct {
	Scenario  *Scenario `json:"scenario"`
	Unlocked  bool      `json:"unlocked"`
	Completed bool      `json:"completed"`
}

// CompetenceStatus is the competence summary of one player for one country
type CompetenceStatus struct {
	CountryID   string         `json:"country_id"`
	CountryName string         `json:"country_name"`
	Points      int            `json:"points"`
	Title       string         `json:"title"`
	Skills      []SkillStatus  `json:"skills"`
	NextSkill   *SkillProgress `json:"next_skill,omitempty"`
	Completed   []string       `json:"completed_scenarios"`
}

// SkillStatus pairs a skill with its unlock flag
type SkillStatus struct {
	Skill    Skill `json:"skill"`
	Unlocked bool  `json:"unlocked"`
}
