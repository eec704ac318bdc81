// Package memstore is an in-memory driver for the document store, used
// by tests and by local development (STORE_DRIVER=memory). It keeps the
// same semantics as pgstore: creation-ordered listing, atomic batch
// writes and snapshot subscriptions.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/financas/server/internal/store"
)

type document struct {
	id   string
	data json.RawMessage
	seq  int64
}

// Store implements store.Store with mutex-guarded maps.
type Store struct {
	mu     sync.RWMutex
	seq    int64
	data   map[string]map[string][]document // userID -> collection -> docs in creation order
	fanout *store.Fanout
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		data:   make(map[string]map[string][]document),
		fanout: store.NewFanout(),
	}
}

func (s *Store) collection(userID, col string) []document {
	if cols, ok := s.data[userID]; ok {
		return cols[col]
	}
	return nil
}

func (s *Store) put(userID, col string, doc document) {
	if s.data[userID] == nil {
		s.data[userID] = make(map[string][]document)
	}
	s.data[userID][col] = append(s.data[userID][col], doc)
}

func (s *Store) Create(ctx context.Context, userID, col string, data json.RawMessage) (string, error) {
	s.mu.Lock()
	id := uuid.NewString()
	s.seq++
	s.put(userID, col, document{id: id, data: clone(data), seq: s.seq})
	s.mu.Unlock()

	s.publish(ctx, userID, col)
	return id, nil
}

func (s *Store) Update(ctx context.Context, userID, col, id string, data json.RawMessage) error {
	s.mu.Lock()
	docs := s.collection(userID, col)
	found := false
	for i := range docs {
		if docs[i].id == id {
			docs[i].data = clone(data)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return store.ErrNotFound
	}
	s.publish(ctx, userID, col)
	return nil
}

func (s *Store) Delete(ctx context.Context, userID, col, id string) error {
	s.mu.Lock()
	docs := s.collection(userID, col)
	idx := -1
	for i := range docs {
		if docs[i].id == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		s.data[userID][col] = append(docs[:idx:idx], docs[idx+1:]...)
	}
	s.mu.Unlock()

	if idx < 0 {
		return store.ErrNotFound
	}
	s.publish(ctx, userID, col)
	return nil
}

func (s *Store) Get(ctx context.Context, userID, col, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.collection(userID, col) {
		if d.id == id {
			return store.Document{ID: d.id, Data: clone(d.data)}, nil
		}
	}
	return store.Document{}, store.ErrNotFound
}

func (s *Store) List(ctx context.Context, userID, col string) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(userID, col), nil
}

func (s *Store) snapshot(userID, col string) []store.Document {
	docs := s.collection(userID, col)
	out := make([]store.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, store.Document{ID: d.id, Data: clone(d.data)})
	}
	return out
}

// BatchWrite validates every write against current state first, then
// applies them all under one lock so readers never observe a partial
// batch.
func (s *Store) BatchWrite(ctx context.Context, userID string, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}

	s.mu.Lock()
	for _, w := range writes {
		if w.Op != store.OpUpdate {
			continue
		}
		found := false
		for _, d := range s.collection(userID, w.Collection) {
			if d.id == w.ID {
				found = true
				break
			}
		}
		if !found {
			s.mu.Unlock()
			return fmt.Errorf("batch update in %s: %w", w.Collection, store.ErrNotFound)
		}
	}

	touched := map[string]bool{}
	for _, w := range writes {
		touched[w.Collection] = true
		switch w.Op {
		case store.OpCreate:
			s.seq++
			s.put(userID, w.Collection, document{id: uuid.NewString(), data: clone(w.Data), seq: s.seq})
		case store.OpUpdate:
			docs := s.collection(userID, w.Collection)
			for i := range docs {
				if docs[i].id == w.ID {
					docs[i].data = clone(w.Data)
					break
				}
			}
		}
	}
	s.mu.Unlock()

	for col := range touched {
		s.publish(ctx, userID, col)
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, userID, col string) (<-chan []store.Document, store.CancelFunc) {
	return s.fanout.AddCurrent(userID, col, func() ([]store.Document, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.snapshot(userID, col), nil
	})
}

func (s *Store) Close() {}

func (s *Store) publish(ctx context.Context, userID, col string) {
	s.fanout.PublishCurrent(ctx, userID, col, s.List)
}

func clone(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
