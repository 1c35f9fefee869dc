// Package live pushes "something changed" signals to long-lived readers such
// as the SSE endpoints. Signals carry no payload; subscribers reload.
package live

import (
	"context"
	"log"
	"sync"
)

// Hub fans change signals out per topic.
type Hub interface {
	// Notify signals every subscriber of topic. It never blocks on slow readers.
	Notify(ctx context.Context, topic string)
	// Subscribe returns a channel of signals for topic and a func that ends
	// the subscription. Bursts may be coalesced into one signal.
	Subscribe(ctx context.Context, topic string) (<-chan struct{}, func(), error)
}

// Subscription is a running Watch. Close stops it and waits for the last
// delivery to return.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Close stops the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the subscription has stopped.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Watch delivers load's result now and after every signal on topic, until
// ctx ends or Close is called. A failed load is logged and skipped.
func Watch[T any](ctx context.Context, hub Hub, topic string, load func(context.Context) (T, error), deliver func(T)) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	signals, unsubscribe, err := hub.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		defer unsubscribe()

		push := func() {
			v, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("live %s: reload failed: %v", topic, err)
				}
				return
			}
			deliver(v)
		}

		push()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				push()
			}
		}
	}()
	return sub, nil
}

// MemoryHub is an in-process Hub for single-instance deployments and tests.
type MemoryHub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: make(map[string]map[chan struct{}]struct{})}
}

// Notify signals topic's subscribers, dropping the signal for any that
// already have one pending.
func (h *MemoryHub) Notify(_ context.Context, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe registers a subscriber on topic.
func (h *MemoryHub) Subscribe(_ context.Context, topic string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan struct{}]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[topic], ch)
			h.mu.Unlock()
		})
	}, nil
}

// Subscribers returns the number of open subscriptions on topic.
func (h *MemoryHub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}
