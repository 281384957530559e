package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCountries = `
countries:
  - id: brazil
    name: Brazil
    skills:
      - id: abraco
        name: Greetings
`

const testScenariosJSON = `{
  "scenarios": [
    {
      "id": "rio_meeting",
      "country_id": "brazil",
      "title": "Meeting in Rio",
      "interactions": [
        {
          "id": "greeting",
          "prompt": "How do you greet your host?",
          "options": [
            {"text": "A handshake and a warm smile", "correct": true, "points": 10, "feedback": "Good."},
            {"text": "A stiff nod", "correct": false, "points": 0, "feedback": "Too cold."}
          ]
        }
      ]
    }
  ]
}`

const testScenariosYAML = `
scenarios:
  - id: rio_dinner
    country: brazil
    title: Dinner in Rio
    prerequisite: rio_meeting
    interactions:
      - id: arrival
        prompt: Dinner is at eight. When do you arrive?
        options:
          - text: Around half past eight.
            correct: true
            points: 5
          - text: At eight sharp.
            points: 0
`

func writeContent(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestDataLoader(t *testing.T) {
	dir := writeContent(t, map[string]string{
		"countries.yaml":              testCountries,
		"scenarios/a_meeting.json":    testScenariosJSON,
		"scenarios/rio/b_dinner.yaml": testScenariosYAML,
		"scenarios/README.md":         "ignored",
	})

	catalog, err := NewDataLoader(dir).LoadCatalog()
	require.NoError(t, err)

	scenarios, err := catalog.ScenariosFor("brazil")
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "rio_meeting", scenarios[0].ID)
	assert.Equal(t, "rio_dinner", scenarios[1].ID)
	assert.Equal(t, "rio_meeting", scenarios[1].Prerequisite)
	assert.Equal(t, 10, scenarios[0].MaxScore())
}

func TestDataLoaderErrors(t *testing.T) {
	// Test case 1: Missing countries file
	_, err := NewDataLoader(t.TempDir()).LoadCatalog()
	assert.Error(t, err)

	// Test case 2: Missing scenarios directory
	dir := writeContent(t, map[string]string{"countries.yaml": testCountries})
	_, err = NewDataLoader(dir).LoadCatalog()
	assert.Error(t, err)

	// Test case 3: Malformed scenario file
	dir = writeContent(t, map[string]string{
		"countries.yaml":       testCountries,
		"scenarios/broken.yml": "scenarios: [",
	})
	_, err = NewDataLoader(dir).LoadCatalog()
	assert.Error(t, err)

	// Test case 4: Invalid content
	dir = writeContent(t, map[string]string{
		"countries.yaml":        testCountries,
		"scenarios/dinner.yaml": testScenariosYAML,
	})
	_, err = NewDataLoader(dir).LoadCatalog()
	assert.ErrorIs(t, err, ErrInvalidContent)
}
