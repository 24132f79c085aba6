package events

import (
	"log/slog"
	"sync"

	"github.com/Tatenda/fullstori/pkg/logger"
)

// subscriberBuffer bounds how far a slow subscriber may fall behind before
// events are dropped for it.
const subscriberBuffer = 64

type subscriber struct {
	ch   chan ChangeEvent
	done chan struct{}
}

// Service fans change notifications out to per-graph subscribers. Each
// subscriber receives events in emission order on its own goroutine.
type Service struct {
	log *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]map[uint64]*subscriber
	nextID      uint64
}

// NewService creates a new events service
func NewService(log *slog.Logger) *Service {
	return &Service{
		log:         log.With(logger.Scope("events.svc")),
		subscribers: make(map[string]map[uint64]*subscriber),
	}
}

// Subscribe registers cb for changes to graphID. The returned function
// unsubscribes; it is safe to call more than once.
func (s *Service) Subscribe(graphID string, cb func(ChangeEvent)) func() {
	sub := &subscriber{
		ch:   make(chan ChangeEvent, subscriberBuffer),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	if s.subscribers[graphID] == nil {
		s.subscribers[graphID] = make(map[uint64]*subscriber)
	}
	s.subscribers[graphID][id] = sub
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case e := <-sub.ch:
				cb(e)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers[graphID], id)
			if len(s.subscribers[graphID]) == 0 {
				delete(s.subscribers, graphID)
			}
			s.mu.Unlock()
			close(sub.done)
		})
	}
}

// Emit delivers e to every subscriber of e.GraphID without blocking.
func (s *Service) Emit(e ChangeEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscribers[e.GraphID] {
		select {
		case sub.ch <- e:
		default:
			s.log.Warn("dropping change event for slow subscriber",
				slog.String("graph_id", e.GraphID),
				slog.String("type", string(e.Type)),
			)
		}
	}
}

// EmitChange is shorthand for Emit(NewChange(...)).
func (s *Service) EmitChange(t ChangeType, graphID, id string, data map[string]any) {
	s.Emit(NewChange(t, graphID, id, data))
}

// GetSubscriberCount returns the number of subscribers for a graph
func (s *Service) GetSubscriberCount(graphID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers[graphID])
}

// GetTotalSubscriberCount returns the number of subscribers across all graphs
func (s *Service) GetTotalSubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, subs := range s.subscribers {
		total += len(subs)
	}
	return total
}
