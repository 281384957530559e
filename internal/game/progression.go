package game

// CompletionSource reports which scenarios a player has completed
type CompletionSource interface {
	IsScenarioCompleted(countryID, scenarioID string) bool
}

// ProgressionGate answers whether a scenario or country is available
type ProgressionGate struct {
	catalog     *Catalog
	completions CompletionSource
}

// NewProgressionGate validates the prerequisite graph before answering any question
func NewProgressionGate(catalog *Catalog, completions CompletionSource) (*ProgressionGate, error) {
	if err := checkPrerequisiteGraph(catalog); err != nil {
		return nil, err
	}
	return &ProgressionGate{
		catalog:     catalog,
		completions: completions,
	}, nil
}

// checkPrerequisiteGraph walks every prerequisite chain and reports unknown ids and cycles
func checkPrerequisiteGraph(catalog *Catalog) error {
	cfgErr := &ConfigurationError{}
	reportedMissing := make(map[string]bool)
	inCycle := make(map[string]bool)

	for _, scenario := range catalog.scenarios {
		visited := map[string]bool{scenario.ID: true}
		current := scenario
		for current.Prerequisite != "" {
			next, exists := catalog.scenarioByID[current.Prerequisite]
			if !exists {
				if !reportedMissing[current.ID] {
					cfgErr.add("scenario %q requires unknown scenario %q", current.ID, current.Prerequisite)
					reportedMissing[current.ID] = true
				}
				break
			}
			if visited[next.ID] {
				if !inCycle[next.ID] {
					cfgErr.add("prerequisite cycle through scenario %q", next.ID)
					for member := next; !inCycle[member.ID]; member = catalog.scenarioByID[member.Prerequisite] {
						inCycle[member.ID] = true
					}
				}
				break
			}
			visited[next.ID] = true
			current = next
		}
	}

	return cfgErr.orNil()
}

// IsUnlocked reports whether a scenario can be started
func (g *ProgressionGate) IsUnlocked(scenarioID string) (bool, error) {
	scenario, err := g.catalog.Scenario(scenarioID)
	if err != nil {
		return false, err
	}
	if scenario.Prerequisite == "" {
		return true, nil
	}
	return g.IsCompleted(scenario.Prerequisite), nil
}

// IsCompleted reports whether a scenario has been completed with a passing score
func (g *ProgressionGate) IsCompleted(scenarioID string) bool {
	scenario, err := g.catalog.Scenario(scenarioID)
	if err != nil {
		return false
	}
	return g.completions.IsScenarioCompleted(scenario.CountryID, scenario.ID)
}

// UnlockedBy returns the scenarios that become available when scenarioID is completed
func (g *ProgressionGate) UnlockedBy(scenarioID string) []string {
	targets := g.catalog.unlockedByIDs[scenarioID]
	out := make([]string, len(targets))
	copy(out, targets)
	return out
}

// CountryUnlocked reports whether any scenario of the country is available
func (g *ProgressionGate) CountryUnlocked(countryID string) (bool, error) {
	scenarios, err := g.catalog.ScenariosFor(countryID)
	if err != nil {
		return false, err
	}
	for _, scenario := range scenarios {
		unlocked, err := g.IsUnlocked(scenario.ID)
		if err != nil {
			return false, err
		}
		if unlocked {
			return true, nil
		}
	}
	return false, nil
}
