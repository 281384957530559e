package game

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/user/etiquette-quest/internal/types"
	"gopkg.in/yaml.v3"
)

// DataLoader handles loading game content from files
type DataLoader struct {
	basePath string
}

// NewDataLoader creates a new data loader
func NewDataLoader(basePath string) *DataLoader {
	return &DataLoader{
		basePath: basePath,
	}
}

type countriesFile struct {
	Countries []*types.Country `json:"countries" yaml:"countries"`
}

type scenariosFile struct {
	Scenarios []*types.Scenario `json:"scenarios" yaml:"scenarios"`
}

// LoadCountries loads country definitions from countries.yaml
func (dl *DataLoader) LoadCountries() ([]*types.Country, error) {
	path := filepath.Join(dl.basePath, "countries.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read countries file: %w", err)
	}

	var file countriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse countries data: %w", err)
	}

	return file.Countries, nil
}

// LoadScenarios loads every scenario file under scenarios/, sorted by path
func (dl *DataLoader) LoadScenarios() ([]*types.Scenario, error) {
	root := filepath.Join(dl.basePath, "scenarios")

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk scenarios directory: %w", err)
	}
	sort.Strings(paths)

	var scenarios []*types.Scenario
	for _, path := range paths {
		loaded, err := loadScenarioFile(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, loaded...)
	}

	return scenarios, nil
}

func loadScenarioFile(path string) ([]*types.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}

	var file scenariosFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &file)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}

	return file.Scenarios, nil
}

// LoadCatalog loads and validates all content
func (dl *DataLoader) LoadCatalog() (*Catalog, error) {
	countries, err := dl.LoadCountries()
	if err != nil {
		return nil, err
	}

	scenarios, err := dl.LoadScenarios()
	if err != nil {
		return nil, err
	}

	return NewCatalog(countries, scenarios)
}
