package presentation

import (
	"sync"

	"github.com/user/etiquette-quest/internal/interfaces"
	"github.com/user/etiquette-quest/internal/types"
)

// Queue buffers display requests until a transport drains them
type Queue struct {
	views []types.View
	mu    sync.Mutex
}

var _ interfaces.PresentationPort = (*Queue)(nil)

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// DisplayInteraction queues an interaction view
func (q *Queue) DisplayInteraction(interaction *types.Interaction) {
	q.push(types.View{Kind: types.ViewInteraction, Interaction: interaction})
}

// DisplayResult queues a result view
func (q *Queue) DisplayResult(result *types.ScenarioResult) {
	q.push(types.View{Kind: types.ViewResult, Result: result})
}

func (q *Queue) push(view types.View) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.views = append(q.views, view)
}

// Drain returns the queued views in display order and empties the queue
func (q *Queue) Drain() []types.View {
	q.mu.Lock()
	defer q.mu.Unlock()

	views := q.views
	q.views = nil
	if views == nil {
		return []types.View{}
	}
	return views
}

// Len returns the number of queued views
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.views)
}
