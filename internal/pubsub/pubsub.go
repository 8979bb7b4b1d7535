package pubsub

import (
	"sync"
	"time"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
)

type Event interface {
}

type Publisher[E Event] interface {
	PublishEvent(*E) error
	AddSubscriber(Subscriber[E])
}

type Subscriber[E Event] interface {
	ConsumeEvent(*E) error
}

// StatusEvent announces an observed or transitional workspace status.
type StatusEvent struct {
	WorkspaceID string           `json:"workspace_id"`
	Status      workspace.Status `json:"status"`
	Time        time.Time        `json:"time"`
}

// SimplePublisher calls ConsumeEvent on each subscriber in the order they were
// added. Every subscriber sees the event even if an earlier one failed; the
// first error is returned.
type SimplePublisher[E Event] struct {
	mu          sync.RWMutex
	subscribers []Subscriber[E]
}

func NewSimplePublisher[E Event](subscribers ...Subscriber[E]) *SimplePublisher[E] {
	return &SimplePublisher[E]{
		subscribers: subscribers,
	}
}

func (p *SimplePublisher[E]) PublishEvent(e *E) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var first error
	for _, s := range p.subscribers {
		err := s.ConsumeEvent(e)
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (p *SimplePublisher[E]) AddSubscriber(s Subscriber[E]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, s)
}
