package cart

import (
	"sync"

	"github.com/phuocduongts/storefront/internal/metrics"
)

// CartChanged is published after every successful cart mutation.
type CartChanged struct {
	UserID int64
}

type subscriber struct {
	id int
	fn func(CartChanged)
}

// Bus delivers CartChanged events to subscribers synchronously, in
// subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a func that removes it again.
func (b *Bus) Subscribe(fn func(CartChanged)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *Bus) Publish(evt CartChanged) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	metrics.CartEvents.Inc()
	for _, s := range subs {
		s.fn(evt)
	}
}
