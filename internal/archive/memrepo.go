package archive

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// memrepo keeps archived games in memory when no DATABASE_URL is configured.
type memrepo struct {
	mu        sync.RWMutex
	byID      map[string]*Game
	bySession map[string][]string
}

func NewMemoryRepository() Repository {
	return &memrepo{
		byID:      make(map[string]*Game),
		bySession: make(map[string][]string),
	}
}

func (m *memrepo) SaveGame(ctx context.Context, g *Game) error {
	if g == nil || strings.TrimSpace(g.ID) == "" {
		return ErrEmptyGame
	}
	cp := *g
	cp.Placements = append([]string(nil), g.Placements...)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[g.ID]; !exists {
		m.bySession[g.SessionID] = append(m.bySession[g.SessionID], g.ID)
	}
	m.byID[g.ID] = &cp
	return nil
}

func (m *memrepo) GetGame(ctx context.Context, id string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memrepo) RecentGames(ctx context.Context, sessionID string, limit int) ([]*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.bySession[sessionID]
	items := make([]*Game, 0, len(ids))
	for _, id := range ids {
		cp := *m.byID[id]
		items = append(items, &cp)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].EndedAt.After(items[j].EndedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
