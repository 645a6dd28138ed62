// Package store keeps the per-group history of analyzed pages.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/logging"
	"github.com/raysh454/harstyle/internal/model"
)

var ErrEmptyGroup = errors.New("store: empty group key")

// Store is the process-wide map from group key to accumulated state.
// Implementations are safe for concurrent use. Per group, entries are kept
// in Record order; AnalyzedData[i] and KnowledgeData[i] always belong to the
// same page.
type Store interface {
	Record(group, url string, ext *model.ExtractionResult, kn *model.KnowledgeSnapshot) error
	Get(group string) (*model.GroupState, bool)
	Groups() []string
	Summarize() map[string]*model.GroupState
	Close() error
}

// MemoryStore is a Store held in memory for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	groups map[string]*model.GroupState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{groups: make(map[string]*model.GroupState)}
}

// Record appends one page to its group, creating the group on first use.
func (s *MemoryStore) Record(group, url string, ext *model.ExtractionResult, kn *model.KnowledgeSnapshot) error {
	if group == "" {
		return ErrEmptyGroup
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[group]
	if !ok {
		g = model.NewGroupState()
		s.groups[group] = g
	}
	g.AnalyzedData = append(g.AnalyzedData, ext)
	g.KnowledgeData = append(g.KnowledgeData, kn)
	return nil
}

// Get returns a snapshot of one group.
func (s *MemoryStore) Get(group string) (*model.GroupState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[group]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

// Groups returns the known group keys, sorted.
func (s *MemoryStore) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.groups))
	for k := range s.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Summarize returns a snapshot of every group.
func (s *MemoryStore) Summarize() map[string]*model.GroupState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*model.GroupState, len(s.groups))
	for k, g := range s.groups {
		out[k] = g.Clone()
	}
	return out
}

func (s *MemoryStore) Close() error { return nil }

// Open builds the store selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig, logger logging.Logger) (Store, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverSQLite:
		return OpenSQLiteStore(ctx, cfg.Path, logger)
	}
	return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
}
