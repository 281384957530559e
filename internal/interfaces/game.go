package interfaces

import (
	"context"

	"github.com/user/etiquette-quest/internal/types"
)

// PresentationPort is the view the runtime asks to display content
type PresentationPort interface {
	DisplayInteraction(interaction *types.Interaction)
	DisplayResult(result *types.ScenarioResult)
}

// Persistence loads and saves the competence state of one player.
// Load returns a nil state and a nil error when nothing was ever saved.
type Persistence interface {
	Load(ctx context.Context) (*types.SavedState, error)
	Save(ctx context.Context, state *types.SavedState) error
}

// MessageSender defines the interface for sending messages
type MessageSender interface {
	SendMessage(phoneNumber, recipient, message string) (string, error)
}

// GameManager defines the interface for game operations
type GameManager interface {
	RegisterPlayer(playerID, name string) (*types.Player, error)
	GetPlayer(playerID string) (*types.Player, error)
	GetAllPlayers() []*types.Player
	ListCountries(playerID string) ([]types.CountryStatus, error)
	ListScenarios(playerID, countryID string) ([]types.ScenarioStatus, error)
	StartScenario(playerID, scenarioID string) (*types.Interaction, error)
	CurrentInteraction(playerID string) (*types.Interaction, error)
	SelectOption(playerID, interactionID string, optionIndex int) (*types.Step, error)
	SelectCurrent(playerID string, optionIndex int) (*types.Step, error)
	AbandonScenario(playerID string) error
	GetCompetence(playerID, countryID string) (*types.CompetenceStatus, error)
	ResetCompetence(playerID, countryID string) error
	DrainDisplay(playerID string) []types.View
}
