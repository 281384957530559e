package game

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrScenarioLocked   = errors.New("scenario locked")
	ErrStaleInteraction = errors.New("stale interaction")
	ErrUnknownCountry   = errors.New("unknown country")
	ErrUnknownScenario  = errors.New("unknown scenario")
	ErrUnknownOption    = errors.New("unknown option")
	ErrNoActiveAttempt  = errors.New("no active attempt")
	ErrInvalidContent   = errors.New("invalid configuration")
	ErrPlayerExists     = errors.New("player already registered")
	ErrPlayerNotFound   = errors.New("player not found")
)

// ScenarioLockedError is returned when a scenario's prerequisite is not completed
type ScenarioLockedError struct {
	ScenarioID   string
	Prerequisite string
}

func (e *ScenarioLockedError) Error() string {
	return fmt.Sprintf("scenario %q is locked until %q is completed", e.ScenarioID, e.Prerequisite)
}

func (e *ScenarioLockedError) Unwrap() error { return ErrScenarioLocked }

// StaleInteractionError is returned when a selection targets an interaction that is no longer current
type StaleInteractionError struct {
	Got      string
	Expected string
}

func (e *StaleInteractionError) Error() string {
	return fmt.Sprintf("interaction %q is stale, current interaction is %q", e.Got, e.Expected)
}

func (e *StaleInteractionError) Unwrap() error { return ErrStaleInteraction }

// UnknownCountryError is returned for a country id absent from the catalog
type UnknownCountryError struct {
	CountryID string
}

func (e *UnknownCountryError) Error() string {
	return fmt.Sprintf("unknown country %q", e.CountryID)
}

func (e *UnknownCountryError) Unwrap() error { return ErrUnknownCountry }

// ConfigurationError reports malformed static content
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidContent }

func (e *ConfigurationError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ConfigurationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
