package cache

import (
	"context"
	"sync"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
)

const defaultSweepInterval = 5 * time.Minute

type claim struct {
	result    string
	completed bool
	until     time.Time
}

// LocalIdempotency keeps idempotency keys in process memory. Expired keys
// are ignored on lookup and swept periodically until Close.
type LocalIdempotency struct {
	mu     sync.Mutex
	claims map[string]claim
	clock  func() time.Time

	quit     chan struct{}
	sweeping sync.WaitGroup
	once     sync.Once
}

func NewLocalIdempotency(sweepEvery time.Duration) *LocalIdempotency {
	if sweepEvery <= 0 {
		sweepEvery = defaultSweepInterval
	}
	l := &LocalIdempotency{
		claims: map[string]claim{},
		clock:  time.Now,
		quit:   make(chan struct{}),
	}
	l.sweeping.Add(1)
	go l.sweepLoop(sweepEvery)
	return l
}

// live returns the unexpired claim for key. Callers hold mu.
func (l *LocalIdempotency) live(key string) (claim, bool) {
	c, ok := l.claims[key]
	if ok && l.clock().Before(c.until) {
		return c, true
	}
	return claim{}, false
}

func (l *LocalIdempotency) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.live(key); taken {
		return false, nil
	}
	l.claims[key] = claim{until: l.clock().Add(ttl)}
	return true, nil
}

func (l *LocalIdempotency) Complete(_ context.Context, key, result string, ttl time.Duration) error {
	l.mu.Lock()
	l.claims[key] = claim{result: result, completed: true, until: l.clock().Add(ttl)}
	l.mu.Unlock()
	return nil
}

func (l *LocalIdempotency) Result(_ context.Context, key string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.live(key)
	if !ok || !c.completed {
		return "", false, nil
	}
	return c.result, true, nil
}

// Release frees a pending reservation; completed keys stay.
func (l *LocalIdempotency) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.claims[key]; ok && !c.completed {
		delete(l.claims, key)
	}
	return nil
}

// Len counts stored keys, expired ones included until the next sweep
func (l *LocalIdempotency) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.claims)
}

// Close stops the sweeper. It may be called more than once.
func (l *LocalIdempotency) Close() error {
	l.once.Do(func() {
		close(l.quit)
		l.sweeping.Wait()
	})
	return nil
}

func (l *LocalIdempotency) sweepLoop(every time.Duration) {
	defer l.sweeping.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.quit:
			return
		case <-t.C:
			l.sweep()
		}
	}
}

func (l *LocalIdempotency) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	for key, c := range l.claims {
		if !now.Before(c.until) {
			delete(l.claims, key)
		}
	}
}

var _ shared.IdempotencyStore = (*LocalIdempotency)(nil)
