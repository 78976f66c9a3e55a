// Package memory provides a process-local token store. A credential kept here
// lives exactly as long as the process, like a tab-scoped session.
package memory

import (
	"context"
	"sync"
)

type Store struct {
	mu    sync.RWMutex
	token string
}

func New() *Store { return &Store{} }

func (s *Store) Get(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *Store) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}
