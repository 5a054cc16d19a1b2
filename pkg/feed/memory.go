package feed

import (
	"context"
	"sync"
)

// Memory is an in-process Feed for single-instance deployments and tests.
type Memory struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewMemory() *Memory {
	return &Memory{subs: map[string]map[chan struct{}]struct{}{}}
}

func (m *Memory) Publish(_ context.Context, topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[topic] {
		notify(ch)
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topics ...string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	for _, t := range topics {
		if m.subs[t] == nil {
			m.subs[t] = map[chan struct{}]struct{}{}
		}
		m.subs[t][ch] = struct{}{}
	}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		for _, t := range topics {
			delete(m.subs[t], ch)
			if len(m.subs[t]) == 0 {
				delete(m.subs, t)
			}
		}
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}
