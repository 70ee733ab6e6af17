package tasksync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Signal tells sibling caches that the task list changed
type Signal struct {
	Origin string `json:"origin"`
	Reason string `json:"reason"`
}

// Broadcaster carries invalidation signals between caches, possibly in
// other processes.
type Broadcaster interface {
	Publish(ctx context.Context, sig Signal) error
	// Subscribe registers fn and returns a function that removes it
	Subscribe(fn func(Signal)) (func(), error)
}

// LocalBroadcaster delivers signals to subscribers in the same process.
type LocalBroadcaster struct {
	mu   sync.RWMutex
	subs map[int]func(Signal)
	next int
}

func NewLocalBroadcaster() *LocalBroadcaster {
	return &LocalBroadcaster{subs: make(map[int]func(Signal))}
}

// Publish delivers sig synchronously to every subscriber, the sender included
func (b *LocalBroadcaster) Publish(_ context.Context, sig Signal) error {
	b.mu.RLock()
	subs := make([]func(Signal), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(sig)
	}
	return nil
}

func (b *LocalBroadcaster) Subscribe(fn func(Signal)) (func(), error) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}, nil
}

func encodeSignal(sig Signal) ([]byte, error) {
	payload, err := json.Marshal(sig)
	if err != nil {
		return nil, fmt.Errorf("encode signal: %w", err)
	}
	return payload, nil
}

func decodeSignal(payload []byte) (Signal, error) {
	var sig Signal
	if err := json.Unmarshal(payload, &sig); err != nil {
		return Signal{}, fmt.Errorf("decode signal: %w", err)
	}
	if sig.Origin == "" {
		return Signal{}, fmt.Errorf("decode signal: missing origin")
	}
	return sig, nil
}
