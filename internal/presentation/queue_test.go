package presentation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/user/etiquette-quest/internal/types"
)

func TestQueueDrainKeepsDisplayOrder(t *testing.T) {
	queue := NewQueue()
	first := &types.Interaction{ID: "greeting"}
	result := &types.ScenarioResult{ScenarioID: "tokyo_meeting", Score: 25}

	queue.DisplayInteraction(first)
	queue.DisplayResult(result)
	assert.Equal(t, 2, queue.Len())

	views := queue.Drain()
	assert.Len(t, views, 2)
	assert.Equal(t, types.ViewInteraction, views[0].Kind)
	assert.Equal(t, "greeting", views[0].Interaction.ID)
	assert.Equal(t, types.ViewResult, views[1].Kind)
	assert.Equal(t, 25, views[1].Result.Score)

	// Drained queue is empty but never nil
	views = queue.Drain()
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestQueueConcurrentDisplay(t *testing.T) {
	queue := NewQueue()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queue.DisplayInteraction(&types.Interaction{ID: "x"})
		}()
	}
	wg.Wait()

	assert.Len(t, queue.Drain(), 50)
}
