package match

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Store persists matches. Update applies fn atomically with respect to other
// updates of the same match; fn may be called more than once on conflicts.
// Create fails with ErrPlayerBusy when a player already holds an active match.
type Store interface {
	Create(ctx context.Context, m *Match) error
	Load(ctx context.Context, id string) (*Match, error)
	Update(ctx context.Context, id string, fn func(*Match) error) (*Match, error)
	MatchesByPlayer(ctx context.Context, playerID string) ([]*Match, error)
	ActiveIDs(ctx context.Context) ([]string, error)
}

// MemoryStore keeps matches in process. Used for local runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	matches map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{matches: map[string][]byte{}}
}

func (s *MemoryStore) Create(_ context.Context, m *Match) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return ErrInvalidArgs
	}
	for id, held := range s.matches {
		cur, err := decodeMatch(held)
		if err != nil {
			return err
		}
		if cur.Status != StatusActive {
			continue
		}
		for _, p := range m.Players {
			if _, ok := cur.Player(p.ID); ok {
				return fmt.Errorf("%s in %s: %w", p.ID, id, ErrPlayerBusy)
			}
		}
	}
	s.matches[m.ID] = raw
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Match, error) {
	s.mu.Lock()
	raw, ok := s.matches[strings.TrimSpace(id)]
	s.mu.Unlock()
	if !ok {
		return nil, ErrMatchNotFound
	}
	return decodeMatch(raw)
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Match) error) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.matches[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrMatchNotFound
	}
	cur, err := decodeMatch(raw)
	if err != nil {
		return nil, err
	}
	if err := fn(cur); err != nil {
		return nil, err
	}
	cur.Version++
	next, err := json.Marshal(cur)
	if err != nil {
		return nil, err
	}
	s.matches[cur.ID] = next
	return cur, nil
}

func (s *MemoryStore) MatchesByPlayer(_ context.Context, playerID string) ([]*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Match
	for _, raw := range s.matches {
		m, err := decodeMatch(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := m.Player(playerID); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) ActiveIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, raw := range s.matches {
		m, err := decodeMatch(raw)
		if err != nil {
			return nil, err
		}
		if m.Status == StatusActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func decodeMatch(raw []byte) (*Match, error) {
	var m Match
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
