// Package events fans out connection-state changes and terminal output
// to registered listeners. Listener failures are isolated from each
// other and from the transport that produced the event.
package events

import (
	"sort"
	"sync"
	"time"
)

// OutputKind says which remote stream a chunk came from.
type OutputKind int

const (
	Stdout OutputKind = iota
	Stderr
)

// Output is one chunk of terminal bytes. Ephemeral: forwarded to
// listeners, never persisted.
type Output struct {
	Data []byte
	Time time.Time
	Kind OutputKind
}

// Handle identifies a registered listener for removal.
type Handle int

// Bus holds two independent listener registries. Dispatch iterates a
// snapshot in registration order, so listeners may add or remove
// listeners (including themselves) during delivery.
type Bus struct {
	mu       sync.Mutex
	nextID   Handle
	connSubs map[Handle]func(connected bool)
	outSubs  map[Handle]func(Output)
}

func NewBus() *Bus {
	return &Bus{
		connSubs: make(map[Handle]func(bool)),
		outSubs:  make(map[Handle]func(Output)),
	}
}

// SubscribeConnection registers a connection-state listener.
func (b *Bus) SubscribeConnection(fn func(connected bool)) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.connSubs[b.nextID] = fn
	return b.nextID
}

// UnsubscribeConnection removes a connection-state listener.
func (b *Bus) UnsubscribeConnection(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.connSubs, h)
}

// SubscribeOutput registers a terminal-output listener.
func (b *Bus) SubscribeOutput(fn func(Output)) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.outSubs[b.nextID] = fn
	return b.nextID
}

// UnsubscribeOutput removes a terminal-output listener.
func (b *Bus) UnsubscribeOutput(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.outSubs, h)
}

// PublishConnection delivers a state change to every connection listener.
func (b *Bus) PublishConnection(connected bool) {
	for _, fn := range snapshot(b, b.connSubs) {
		deliver(func() { fn(connected) })
	}
}

// PublishOutput delivers a terminal chunk to every output listener.
func (b *Bus) PublishOutput(ev Output) {
	for _, fn := range snapshot(b, b.outSubs) {
		deliver(func() { fn(ev) })
	}
}

// snapshot copies the current listeners ordered by handle, which is
// registration order.
func snapshot[T any](b *Bus, subs map[Handle]T) []T {
	b.mu.Lock()
	handles := make([]Handle, 0, len(subs))
	for h := range subs {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	out := make([]T, len(handles))
	for i, h := range handles {
		out[i] = subs[h]
	}
	b.mu.Unlock()
	return out
}

// deliver invokes one listener, discarding a panic so it cannot prevent
// delivery to the listeners after it.
func deliver(fn func()) {
	defer func() { _ = recover() }()
	fn()
}
