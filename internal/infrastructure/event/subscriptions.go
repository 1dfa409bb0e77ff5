package event

import (
	"slices"
	"sync"

	"github.com/storefront/backend/internal/domain/shared"
)

// subscriptions maps event types to handlers. Handlers registered without
// types receive every event, after the typed ones.
type subscriptions struct {
	mu     sync.RWMutex
	byType map[string][]shared.EventHandler
	all    []shared.EventHandler
}

func newSubscriptions() *subscriptions {
	return &subscriptions{byType: make(map[string][]shared.EventHandler)}
}

// add is idempotent per handler and type
func (s *subscriptions) add(h shared.EventHandler, eventTypes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(eventTypes) == 0 {
		s.all = appendUnique(s.all, h)
		return
	}
	for _, t := range eventTypes {
		s.byType[t] = appendUnique(s.byType[t], h)
	}
}

func (s *subscriptions) remove(h shared.EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	same := func(other shared.EventHandler) bool { return other == h }
	s.all = slices.DeleteFunc(s.all, same)
	for t, hs := range s.byType {
		if hs = slices.DeleteFunc(hs, same); len(hs) == 0 {
			delete(s.byType, t)
		} else {
			s.byType[t] = hs
		}
	}
}

// match returns a snapshot safe to iterate without the lock
func (s *subscriptions) match(eventType string) []shared.EventHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Concat(s.byType[eventType], s.all)
}

// count returns the number of distinct handlers
func (s *subscriptions) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	distinct := make(map[shared.EventHandler]struct{}, len(s.all))
	for _, h := range s.all {
		distinct[h] = struct{}{}
	}
	for _, hs := range s.byType {
		for _, h := range hs {
			distinct[h] = struct{}{}
		}
	}
	return len(distinct)
}

func appendUnique(hs []shared.EventHandler, h shared.EventHandler) []shared.EventHandler {
	if slices.Contains(hs, h) {
		return hs
	}
	return append(hs, h)
}
