package game

import (
	"fmt"

	"github.com/user/etiquette-quest/internal/types"
)

// Catalog is the validated, read-only content of the game
type Catalog struct {
	countries     []*types.Country
	countryByID   map[string]*types.Country
	scenarios     []*types.Scenario
	scenarioByID  map[string]*types.Scenario
	unlockedByIDs map[string][]string
}

// NewCatalog validates content and indexes it. Every problem found is reported in one ConfigurationError.
// The catalog works on copies, so the given countries and scenarios are never modified.
func NewCatalog(countries []*types.Country, scenarios []*types.Scenario) (*Catalog, error) {
	c := &Catalog{
		countryByID:   make(map[string]*types.Country),
		scenarioByID:  make(map[string]*types.Scenario),
		unlockedByIDs: make(map[string][]string),
	}
	cfgErr := &ConfigurationError{}

	if len(countries) == 0 {
		cfgErr.add("no countries defined")
	}

	for _, country := range countries {
		if country == nil || country.ID == "" {
			cfgErr.add("country without id")
			continue
		}
		if _, exists := c.countryByID[country.ID]; exists {
			cfgErr.add("duplicate country %q", country.ID)
			continue
		}
		country = copyCountry(country)
		seenSkills := make(map[string]bool)
		for _, skill := range country.Skills {
			if skill.ID == "" {
				cfgErr.add("country %q has a skill without id", country.ID)
				continue
			}
			if seenSkills[skill.ID] {
				cfgErr.add("country %q has duplicate skill %q", country.ID, skill.ID)
			}
			seenSkills[skill.ID] = true
		}
		c.countryByID[country.ID] = country
		c.countries = append(c.countries, country)
	}

	for _, scenario := range scenarios {
		if scenario == nil || scenario.ID == "" {
			cfgErr.add("scenario without id")
			continue
		}
		if _, exists := c.scenarioByID[scenario.ID]; exists {
			cfgErr.add("duplicate scenario %q", scenario.ID)
			continue
		}
		copied := *scenario
		scenario = &copied
		validateScenario(scenario, cfgErr)
		c.scenarioByID[scenario.ID] = scenario
		c.scenarios = append(c.scenarios, scenario)
	}

	c.linkCountries(cfgErr)
	c.normalizeUnlocks(cfgErr)

	if err := cfgErr.orNil(); err != nil {
		return nil, err
	}

	if err := checkPrerequisiteGraph(c); err != nil {
		return nil, err
	}

	for _, scenario := range c.scenarios {
		if scenario.Prerequisite != "" {
			c.unlockedByIDs[scenario.Prerequisite] = append(c.unlockedByIDs[scenario.Prerequisite], scenario.ID)
		}
	}

	return c, nil
}

func copyCountry(country *types.Country) *types.Country {
	copied := *country
	copied.Scenarios = append([]string(nil), country.Scenarios...)
	return &copied
}

func validateScenario(scenario *types.Scenario, cfgErr *ConfigurationError) {
	if scenario.Title == "" {
		cfgErr.add("scenario %q has no title", scenario.ID)
	}
	if len(scenario.Interactions) == 0 {
		cfgErr.add("scenario %q has no interactions", scenario.ID)
		return
	}

	seen := make(map[string]bool)
	for i, interaction := range scenario.Interactions {
		if interaction.ID == "" {
			cfgErr.add("scenario %q interaction %d has no id", scenario.ID, i)
			continue
		}
		if seen[interaction.ID] {
			cfgErr.add("scenario %q has duplicate interaction %q", scenario.ID, interaction.ID)
		}
		seen[interaction.ID] = true

		if interaction.Prompt == "" {
			cfgErr.add("interaction %q in %q has no prompt", interaction.ID, scenario.ID)
		}
		if len(interaction.Options) == 0 {
			cfgErr.add("interaction %q in %q has no options", interaction.ID, scenario.ID)
		}
		for j, option := range interaction.Options {
			if option.Text == "" {
				cfgErr.add("interaction %q in %q option %d has no text", interaction.ID, scenario.ID, j)
			}
		}
	}

	if scenario.MinScore > scenario.MaxScore() {
		cfgErr.add("scenario %q min_score %d exceeds reachable score %d", scenario.ID, scenario.MinScore, scenario.MaxScore())
	}
}

// linkCountries reconciles country scenario lists with scenario country ids
func (c *Catalog) linkCountries(cfgErr *ConfigurationError) {
	for _, scenario := range c.scenarios {
		if _, exists := c.countryByID[scenario.CountryID]; !exists {
			cfgErr.add("scenario %q references unknown country %q", scenario.ID, scenario.CountryID)
		}
	}

	for _, country := range c.countries {
		if len(country.Scenarios) == 0 {
			for _, scenario := range c.scenarios {
				if scenario.CountryID == country.ID {
					country.Scenarios = append(country.Scenarios, scenario.ID)
				}
			}
			continue
		}

		listed := make(map[string]bool)
		for _, scenarioID := range country.Scenarios {
			scenario, exists := c.scenarioByID[scenarioID]
			if !exists {
				cfgErr.add("country %q lists unknown scenario %q", country.ID, scenarioID)
				continue
			}
			if scenario.CountryID != country.ID {
				cfgErr.add("country %q lists scenario %q owned by %q", country.ID, scenarioID, scenario.CountryID)
			}
			listed[scenarioID] = true
		}
		for _, scenario := range c.scenarios {
			if scenario.CountryID == country.ID && !listed[scenario.ID] {
				cfgErr.add("scenario %q is not listed by country %q", scenario.ID, country.ID)
			}
		}
	}
}

// normalizeUnlocks turns unlock targets into prerequisite edges
func (c *Catalog) normalizeUnlocks(cfgErr *ConfigurationError) {
	for _, scenario := range c.scenarios {
		for _, targetID := range scenario.Unlocks {
			target, exists := c.scenarioByID[targetID]
			if !exists {
				cfgErr.add("scenario %q unlocks unknown scenario %q", scenario.ID, targetID)
				continue
			}
			switch target.Prerequisite {
			case "":
				target.Prerequisite = scenario.ID
			case scenario.ID:
			default:
				cfgErr.add("scenario %q unlocks %q which already requires %q", scenario.ID, targetID, target.Prerequisite)
			}
		}
	}
}

// Countries returns the countries in load order
func (c *Catalog) Countries() []*types.Country {
	return c.countries
}

// Country looks a country up by id
func (c *Catalog) Country(countryID string) (*types.Country, error) {
	country, exists := c.countryByID[countryID]
	if !exists {
		return nil, &UnknownCountryError{CountryID: countryID}
	}
	return country, nil
}

// Scenarios returns the scenarios in load order
func (c *Catalog) Scenarios() []*types.Scenario {
	return c.scenarios
}

// Scenario looks a scenario up by id
func (c *Catalog) Scenario(scenarioID string) (*types.Scenario, error) {
	scenario, exists := c.scenarioByID[scenarioID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, scenarioID)
	}
	return scenario, nil
}

// ScenariosFor returns the scenarios owned by a country, in the country's order
func (c *Catalog) ScenariosFor(countryID string) ([]*types.Scenario, error) {
	country, err := c.Country(countryID)
	if err != nil {
		return nil, err
	}
	scenarios := make([]*types.Scenario, 0, len(country.Scenarios))
	for _, scenarioID := range country.Scenarios {
		scenarios = append(scenarios, c.scenarioByID[scenarioID])
	}
	return scenarios, nil
}
