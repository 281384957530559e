package server

import (
	"errors"
	"net/http"

	"github.com/user/etiquette-quest/internal/game"
	"github.com/user/etiquette-quest/internal/types"
)

// Code is a machine-readable error code
type Code string

const (
	CodeInternal         Code = "internal_error"
	CodeInvalidRequest   Code = "invalid_request"
	CodeScenarioLocked   Code = "scenario_locked"
	CodeStaleInteraction Code = "stale_interaction"
	CodeNoActiveAttempt  Code = "no_active_attempt"
	CodeUnknownOption    Code = "unknown_option"
	CodeUnknownScenario  Code = "unknown_scenario"
	CodeUnknownCountry   Code = "unknown_country"
	CodePlayerNotFound   Code = "player_not_found"
	CodePlayerExists     Code = "player_exists"
)

// errorMapping is checked in order with errors.Is
var errorMapping = []struct {
	target error
	code   Code
	status int
}{
	{game.ErrScenarioLocked, CodeScenarioLocked, http.StatusForbidden},
	{game.ErrStaleInteraction, CodeStaleInteraction, http.StatusConflict},
	{game.ErrNoActiveAttempt, CodeNoActiveAttempt, http.StatusConflict},
	{game.ErrUnknownOption, CodeUnknownOption, http.StatusBadRequest},
	{game.ErrUnknownScenario, CodeUnknownScenario, http.StatusNotFound},
	{game.ErrUnknownCountry, CodeUnknownCountry, http.StatusNotFound},
	{game.ErrPlayerNotFound, CodePlayerNotFound, http.StatusNotFound},
	{game.ErrPlayerExists, CodePlayerExists, http.StatusConflict},
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   Code   `json:"error"`
	Message string `json:"message"`

	// Views queued by the failed call, such as the current interaction after a stale selection
	Display []types.View `json:"display,omitempty"`
}

// classify maps an engine error to its code and HTTP status
func classify(err error) (Code, int) {
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			return m.code, m.status
		}
	}
	return CodeInternal, http.StatusInternalServerError
}
