package session

import "sync"

// broadcaster fans the latest value out to subscribers. Each subscriber holds
// at most one pending value; a newer value replaces an unread one.
type broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

func (b *broadcaster[T]) subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[chan T]struct{})
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

func (b *broadcaster[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
