package matrix

import (
	"sync"
)

// UpdateChannel is the channel matrix change events are published on.
const UpdateChannel = "so_prq_matrix"

// Bus is a small in-process publish/subscribe channel. Repository writes
// publish a matrix update; editor sessions subscribe for its lifetime and
// release the subscription on teardown.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(payload string)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]func(payload string))}
}

// Subscribe registers fn on the channel and returns the release function.
// Releasing twice is harmless.
func (b *Bus) Subscribe(channel string, fn func(payload string)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]func(payload string))
	}
	id := b.nextID
	b.nextID++
	b.subs[channel][id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[channel], id)
	}
}

// Publish delivers the payload to every current subscriber of the channel.
func (b *Bus) Publish(channel, payload string) {
	b.mu.RLock()
	fns := make([]func(string), 0, len(b.subs[channel]))
	for _, fn := range b.subs[channel] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(payload)
	}
}
