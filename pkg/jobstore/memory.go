package jobstore

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.RWMutex
	items map[uint]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[uint]Snapshot)}
}

func (m *MemoryStore) Get(_ context.Context, documentID uint) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[documentID]
	if !ok {
		return Snapshot{}, false, nil
	}
	return s.clone(), true, nil
}

func (m *MemoryStore) Set(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	m.items[s.DocumentID] = s.clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Update(_ context.Context, documentID uint, fn func(*Snapshot)) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.items[documentID]
	if !ok {
		s = Snapshot{DocumentID: documentID}
	}
	s = s.clone()
	fn(&s)
	s.DocumentID = documentID
	m.items[documentID] = s
	return s.clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, documentID uint) error {
	m.mu.Lock()
	delete(m.items, documentID)
	m.mu.Unlock()
	return nil
}
