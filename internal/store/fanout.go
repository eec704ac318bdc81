package store

import (
	"context"
	"sync"
)

// Fanout tracks live collection subscribers and pushes fresh snapshots
// to them after each mutation. Both drivers embed it; it is in-process
// only, so changes made by another process are not observed (accepted:
// the import pipeline works from an explicit snapshot anyway).
type Fanout struct {
	mu   sync.Mutex
	next int
	subs map[subKey]map[int]chan []Document
}

type subKey struct {
	userID     string
	collection string
}

// NewFanout returns an empty subscriber registry.
func NewFanout() *Fanout {
	return &Fanout{subs: make(map[subKey]map[int]chan []Document)}
}

// Add registers a subscriber and returns its channel and cancel func.
func (f *Fanout) Add(userID, collection string) (<-chan []Document, CancelFunc) {
	return f.add(userID, collection)
}

func (f *Fanout) add(userID, collection string) (chan []Document, CancelFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := subKey{userID, collection}
	if f.subs[key] == nil {
		f.subs[key] = make(map[int]chan []Document)
	}
	id := f.next
	f.next++

	ch := make(chan []Document, 1)
	f.subs[key][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if sub, ok := f.subs[key][id]; ok {
				delete(f.subs[key], id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// AddCurrent registers a subscriber and primes only its channel with the
// snapshot returned by list. Existing subscribers see nothing; they got
// theirs when they joined.
func (f *Fanout) AddCurrent(userID, collection string, list func() ([]Document, error)) (<-chan []Document, CancelFunc) {
	ch, cancel := f.add(userID, collection)
	if docs, err := list(); err == nil {
		send(ch, docs)
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of the collection.
// Slow subscribers keep only the latest snapshot: a pending stale one
// is replaced rather than blocking the writer.
func (f *Fanout) Publish(userID, collection string, docs []Document) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs[subKey{userID, collection}] {
		send(ch, docs)
	}
}

// send delivers docs without blocking, replacing a pending stale
// snapshot if the receiver has not drained yet.
func send(ch chan []Document, docs []Document) {
	select {
	case ch <- docs:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- docs
	}
}

// HasSubscribers reports whether anyone is listening on the collection,
// letting drivers skip the snapshot query when nobody cares.
func (f *Fanout) HasSubscribers(userID, collection string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[subKey{userID, collection}]) > 0
}

// PublishCurrent queries the current set via list and publishes it.
// Drivers call it after each successful mutation.
func (f *Fanout) PublishCurrent(ctx context.Context, userID, collection string, list func(context.Context, string, string) ([]Document, error)) {
	if !f.HasSubscribers(userID, collection) {
		return
	}
	docs, err := list(ctx, userID, collection)
	if err != nil {
		return
	}
	f.Publish(userID, collection, docs)
}
