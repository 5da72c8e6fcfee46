package db

import (
	"context"
	"sync"
)

// MemorySlot keeps a slot in memory. Used by tests and when no durable
// backend is configured.
type MemorySlot struct {
	mu    sync.RWMutex
	value []byte
	set   bool
}

// NewMemorySlot creates an empty in-memory slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

// Get returns a copy of the stored value.
func (s *MemorySlot) Get(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return nil, ErrSlotEmpty
	}
	return append([]byte(nil), s.value...), nil
}

// Put replaces the stored value.
func (s *MemorySlot) Put(_ context.Context, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = append([]byte(nil), value...)
	s.set = true
	return nil
}
