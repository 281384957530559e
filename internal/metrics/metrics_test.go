package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ScenarioStarted("japan", "tokyo_meeting")
	m.ScenarioStarted("japan", "tokyo_meeting")
	m.OptionSelected(true)
	m.OptionSelected(false)
	m.OptionSelected(true)
	m.StaleSelection()
	m.LockedStart()
	m.ScenarioCompleted("japan", "tokyo_meeting", true)
	m.SetPlayers(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.scenariosStarted.WithLabelValues("japan", "tokyo_meeting")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.selections.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.selections.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleSelections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lockedStarts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scenariosCompleted.WithLabelValues("japan", "tokyo_meeting", "true")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.playersRegistered))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ScenarioStarted("japan", "tokyo_meeting")
		m.OptionSelected(true)
		m.StaleSelection()
		m.LockedStart()
		m.ScenarioCompleted("japan", "tokyo_meeting", false)
		m.SetPlayers(1)
	})
	assert.Nil(t, m.Registry())
}

func TestHandler(t *testing.T) {
	m := New()
	m.StaleSelection()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "etiquette_quest_stale_selections_total 1")
}
